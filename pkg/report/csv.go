// Package report writes the result of sync runs and dumps of ledger records
// as CSV and markdown.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/pathutil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
)

// StatusRemoteOnly marks rows of records present only in the remote ledger.
const StatusRemoteOnly = "remote_only"

// OutcomeHeader is the header row of a run report.
var OutcomeHeader = []string{
	"status", "op", "kind", "remote_id", "date", "amount",
	"type", "description", "source", "destination", "error",
}

// TransactionHeader is the header row of a transaction dump.
var TransactionHeader = []string{
	"remote_id", "date", "amount", "type", "description", "source", "destination",
}

// AccountHeader is the header row of an account dump.
var AccountHeader = []string{
	"remote_id", "name", "type", "balance", "currency",
}

// CSVReporter writes the report of every run to its own CSV file.
type CSVReporter struct {
	paths  *pathutil.PathResolver
	logger *slog.Logger
}

// NewCSVReporter creates a CSVReporter writing under the reports directory
// of paths.
func NewCSVReporter(paths *pathutil.PathResolver, logger *slog.Logger) *CSVReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVReporter{paths: paths, logger: logger}
}

// Report implements reconcile.Reporter.
func (r *CSVReporter) Report(ctx context.Context, result *reconcile.SyncResult) error {
	path, err := r.paths.GetReportPath(result.StartedAt, result.RunID)
	if err != nil {
		return err
	}
	if err := r.paths.EnsureParentDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteOutcomesCSV(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}

	r.logger.Info("Report written", "run_id", result.RunID, "path", path)
	return nil
}

// WriteOutcomesCSV writes one row per outcome of result, followed by one
// row per remote-only account and transaction.
func WriteOutcomesCSV(w io.Writer, result *reconcile.SyncResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutcomeHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var writeErr error
	write := func(row []string) {
		if writeErr == nil {
			writeErr = cw.Write(row)
		}
	}

	result.Each(func(status reconcile.Status, o reconcile.Outcome) {
		write(outcomeRow(string(status), string(o.Op), o))
	})
	for _, a := range result.RemoteOnlyAccounts {
		write(outcomeRow(StatusRemoteOnly, "", reconcile.Outcome{Record: a.String(), Account: &a}))
	}
	for _, t := range result.RemoteOnlyTransactions {
		write(outcomeRow(StatusRemoteOnly, "", reconcile.Outcome{Record: t.String(), Transaction: &t}))
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write row: %w", writeErr)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

func outcomeRow(status, op string, o reconcile.Outcome) []string {
	row := []string{status, op, o.Kind(), o.RemoteID(), "", "", "", o.Record, "", "", o.Message()}
	switch {
	case o.Transaction != nil:
		t := o.Transaction
		row[4] = t.Date.String()
		row[5] = t.Amount.StringFixed(2)
		row[6] = string(t.Type)
		row[7] = t.Description
		row[8] = t.Source.Name
		row[9] = t.Destination.Name
	case o.Account != nil:
		row[5] = o.Account.CurrentBalance.StringFixed(2)
		row[6] = string(o.Account.Type)
		row[7] = o.Account.Name
	}
	return row
}

// WriteTransactionsCSV writes transactions with a header row.
func WriteTransactionsCSV(w io.Writer, transactions []ledger.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range transactions {
		row := []string{
			t.RemoteID,
			t.Date.String(),
			t.Amount.StringFixed(2),
			string(t.Type),
			t.Description,
			t.Source.Name,
			t.Destination.Name,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", t.RemoteID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAccountsCSV writes accounts with a header row.
func WriteAccountsCSV(w io.Writer, accounts []ledger.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AccountHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, a := range accounts {
		row := []string{
			a.RemoteID,
			a.Name,
			string(a.Type),
			a.CurrentBalance.StringFixed(2),
			a.Currency,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write account %s: %w", a.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
