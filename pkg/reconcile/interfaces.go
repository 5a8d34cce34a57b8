// Package reconcile brings a remote ledger up to date with a local source.
//
// A run fetches both sides, matches accounts and transactions, plans the
// create and update operations needed to converge them and applies the plan
// through a bounded worker pool. Remote-only records are reported and never
// deleted.
package reconcile

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
)

// RemoteLedger is the authoritative ledger being synchronized to.
// Calls fail with *ledger.GatewayError on a non-success response.
type RemoteLedger interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListTransactions(ctx context.Context, start, end civil.Date) ([]ledger.Transaction, error)
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, remoteID string, t ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, remoteID string) error
}

// LocalSource supplies the records the remote ledger must contain.
//
// A source may return usable records together with a *ledger.RecordErrors
// listing the records it had to reject; the run continues and reports them.
type LocalSource interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListTransactions(ctx context.Context, asOf civil.Date) ([]ledger.Transaction, error)
}

// Reporter receives the result of every run. Reporter errors are logged and
// never fail the run.
type Reporter interface {
	Report(ctx context.Context, result *SyncResult) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, result *SyncResult) error

// Report calls f(ctx, result).
func (f ReporterFunc) Report(ctx context.Context, result *SyncResult) error {
	return f(ctx, result)
}
