package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Phase is the state of a sync run.
type Phase string

const (
	PhaseFetching Phase = "fetching"
	PhaseMatching Phase = "matching"
	PhasePlanning Phase = "planning"
	PhaseApplying Phase = "applying"
	PhaseReported Phase = "reported"
	PhaseAborted  Phase = "aborted"
)

// Terminal reports whether no further transition can happen from p.
func (p Phase) Terminal() bool {
	return p == PhaseReported || p == PhaseAborted
}

// OpKind identifies an operation against the remote ledger.
type OpKind string

const (
	OpCreateAccount      OpKind = "create_account"
	OpCreateTransaction  OpKind = "create_transaction"
	OpUpdateTransaction  OpKind = "update_transaction"
	OpReplaceTransaction OpKind = "replace_transaction"
	OpSkip               OpKind = "skip"
	OpValidate           OpKind = "validate"
)

// Outcome is the result of one operation, or of one rejected record.
// Exactly one of Account and Transaction is set, except for records the
// source rejected before they could be built.
type Outcome struct {
	Op          OpKind
	Record      string
	Account     *ledger.Account
	Transaction *ledger.Transaction
	Err         error
}

// RemoteID returns the remote id of the record the outcome refers to.
func (o Outcome) RemoteID() string {
	switch {
	case o.Account != nil:
		return o.Account.RemoteID
	case o.Transaction != nil:
		return o.Transaction.RemoteID
	}
	return ""
}

// Message returns the error text of a failed outcome, or "".
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Kind returns "account", "transaction" or "record".
func (o Outcome) Kind() string {
	switch {
	case o.Account != nil:
		return "account"
	case o.Transaction != nil:
		return "transaction"
	}
	return "record"
}

func accountOutcome(op OpKind, a ledger.Account, err error) Outcome {
	return Outcome{Op: op, Record: a.String(), Account: &a, Err: err}
}

func transactionOutcome(op OpKind, t ledger.Transaction, err error) Outcome {
	return Outcome{Op: op, Record: t.String(), Transaction: &t, Err: err}
}

// BalanceDrift reports a matched account whose balances disagree.
type BalanceDrift struct {
	Account ledger.Account
	Local   decimal.Decimal
	Remote  decimal.Decimal
}

// Difference returns Local minus Remote.
func (d BalanceDrift) Difference() decimal.Decimal {
	return d.Local.Sub(d.Remote)
}

func (d BalanceDrift) String() string {
	return fmt.Sprintf("%s: local %s, remote %s (%s)",
		d.Account.Name, d.Local.StringFixed(2), d.Remote.StringFixed(2), d.Difference().StringFixed(2))
}

// SyncResult is the outcome of one run.
type SyncResult struct {
	RunID      string
	State      Phase
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Err is the fatal error of an aborted run.
	Err error

	Created []Outcome
	Updated []Outcome
	Skipped []Outcome
	Failed  []Outcome

	RemoteOnlyAccounts     []ledger.Account
	RemoteOnlyTransactions []ledger.Transaction
	BalanceDrifts          []BalanceDrift

	Plan *Plan
}

// HasFailures reports whether at least one record failed.
func (r *SyncResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// Outcomes returns every outcome: created, updated, skipped then failed.
func (r *SyncResult) Outcomes() []Outcome {
	all := make([]Outcome, 0, len(r.Created)+len(r.Updated)+len(r.Skipped)+len(r.Failed))
	r.Each(func(_ Status, o Outcome) {
		all = append(all, o)
	})
	return all
}

// Status classifies an outcome within a result.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Each calls fn for every outcome with its status, in the order of Outcomes.
func (r *SyncResult) Each(fn func(Status, Outcome)) {
	for _, group := range []struct {
		status   Status
		outcomes []Outcome
	}{
		{StatusCreated, r.Created},
		{StatusUpdated, r.Updated},
		{StatusSkipped, r.Skipped},
		{StatusFailed, r.Failed},
	} {
		for _, o := range group.outcomes {
			fn(group.status, o)
		}
	}
}

// recorder collects outcomes from concurrent workers.
type recorder struct {
	mu     sync.Mutex
	result *SyncResult
}

func (r *recorder) created(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Created = append(r.result.Created, o)
}

func (r *recorder) updated(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Updated = append(r.result.Updated, o)
}

func (r *recorder) skipped(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Skipped = append(r.result.Skipped, o)
}

func (r *recorder) failed(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Failed = append(r.result.Failed, o)
}
