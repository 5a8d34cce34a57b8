package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
)

// Metadata keys maintained by Report.
const (
	MetadataLastRun           = "last_run"
	MetadataLastSuccessfulRun = "last_successful_run"
	MetadataLastSuccessfulAt  = "last_successful_at"
)

// RunRecord represents a stored sync run.
type RunRecord struct {
	RunID                  string
	State                  reconcile.Phase
	DryRun                 bool
	StartedAt              time.Time
	FinishedAt             sql.NullTime
	Error                  sql.NullString
	Created                int
	Updated                int
	Skipped                int
	Failed                 int
	RemoteOnlyAccounts     int
	RemoteOnlyTransactions int
	BalanceDrifts          int
}

// OutcomeRecord represents a stored record outcome.
type OutcomeRecord struct {
	ID       int64
	RunID    string
	Status   reconcile.Status
	Op       reconcile.OpKind
	Kind     string
	Record   string
	RemoteID sql.NullString
	Date     sql.NullString
	Amount   sql.NullString
	Error    sql.NullString
}

// SyncHistory manages sync history operations.
type SyncHistory struct {
	conn *Connection
}

// NewSyncHistory creates a new SyncHistory instance.
func NewSyncHistory(conn *Connection) *SyncHistory {
	return &SyncHistory{conn: conn}
}

// Report records a run and its outcomes. Reporting the same run again
// replaces it. It implements reconcile.Reporter.
func (s *SyncHistory) Report(ctx context.Context, result *reconcile.SyncResult) error {
	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_outcomes WHERE run_id = ?`, result.RunID); err != nil {
			return fmt.Errorf("failed to clear outcomes: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sync_outcomes (run_id, status, op, kind, record, remote_id, date, amount, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		var insertErr error
		result.Each(func(status reconcile.Status, o reconcile.Outcome) {
			if insertErr != nil {
				return
			}
			var date, amount sql.NullString
			if t := o.Transaction; t != nil {
				date = sql.NullString{String: t.Date.String(), Valid: true}
				amount = sql.NullString{String: t.Amount.String(), Valid: true}
			}
			_, insertErr = stmt.ExecContext(ctx,
				result.RunID,
				string(status),
				string(o.Op),
				o.Kind(),
				o.Record,
				nullString(o.RemoteID()),
				date,
				amount,
				nullString(o.Message()),
			)
		})
		if insertErr != nil {
			return fmt.Errorf("failed to record outcome: %w", insertErr)
		}

		if err := setMetadata(ctx, tx, MetadataLastRun, result.RunID); err != nil {
			return err
		}
		if result.State == reconcile.PhaseReported && !result.DryRun && !result.HasFailures() {
			if err := setMetadata(ctx, tx, MetadataLastSuccessfulRun, result.RunID); err != nil {
				return err
			}
			if err := setMetadata(ctx, tx, MetadataLastSuccessfulAt, result.FinishedAt.UTC().Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record sync run %s: %w", result.RunID, err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, r *reconcile.SyncResult) error {
	query := `
		INSERT INTO sync_runs (run_id, state, dry_run, started_at, finished_at, error,
			created, updated, skipped, failed, remote_only_accounts, remote_only_transactions, balance_drifts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state,
			dry_run = excluded.dry_run,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			error = excluded.error,
			created = excluded.created,
			updated = excluded.updated,
			skipped = excluded.skipped,
			failed = excluded.failed,
			remote_only_accounts = excluded.remote_only_accounts,
			remote_only_transactions = excluded.remote_only_transactions,
			balance_drifts = excluded.balance_drifts
	`

	finishedAt := sql.NullTime{Time: r.FinishedAt.UTC(), Valid: !r.FinishedAt.IsZero()}
	var runErr sql.NullString
	if r.Err != nil {
		runErr = sql.NullString{String: r.Err.Error(), Valid: true}
	}

	_, err := tx.ExecContext(ctx, query,
		r.RunID,
		string(r.State),
		r.DryRun,
		r.StartedAt.UTC(),
		finishedAt,
		runErr,
		len(r.Created),
		len(r.Updated),
		len(r.Skipped),
		len(r.Failed),
		len(r.RemoteOnlyAccounts),
		len(r.RemoteOnlyTransactions),
		len(r.BalanceDrifts),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const runColumns = `run_id, state, dry_run, started_at, finished_at, error, created, updated,
	skipped, failed, remote_only_accounts, remote_only_transactions, balance_drifts`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var r RunRecord
	var state string
	if err := row.Scan(
		&r.RunID,
		&state,
		&r.DryRun,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Error,
		&r.Created,
		&r.Updated,
		&r.Skipped,
		&r.Failed,
		&r.RemoteOnlyAccounts,
		&r.RemoteOnlyTransactions,
		&r.BalanceDrifts,
	); err != nil {
		return nil, err
	}
	r.State = reconcile.Phase(state)
	return &r, nil
}

// GetRun retrieves a run by id. It returns nil when the run is unknown.
func (s *SyncHistory) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (s *SyncHistory) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetOutcomes retrieves the outcomes of a run, optionally restricted to
// one status.
func (s *SyncHistory) GetOutcomes(ctx context.Context, runID string, status reconcile.Status) ([]OutcomeRecord, error) {
	query := `
		SELECT id, run_id, status, op, kind, record, remote_id, date, amount, error
		FROM sync_outcomes
		WHERE run_id = ? AND (? = '' OR status = ?)
		ORDER BY id
	`

	rows, err := s.conn.QueryContext(ctx, query, runID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		var status, op string
		if err := rows.Scan(
			&o.ID,
			&o.RunID,
			&status,
			&op,
			&o.Kind,
			&o.Record,
			&o.RemoteID,
			&o.Date,
			&o.Amount,
			&o.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Status = reconcile.Status(status)
		o.Op = reconcile.OpKind(op)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// DeleteRunsBefore deletes runs started before t, with their outcomes.
// It returns the number of runs deleted.
func (s *SyncHistory) DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM sync_runs WHERE started_at < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// Stats represents sync statistics.
type Stats struct {
	TotalRuns         int
	AbortedRuns       int
	DryRuns           int
	TotalCreated      int
	TotalUpdated      int
	TotalFailed       int
	LastRun           sql.NullString
	LastSuccessfulRun string
	LastSuccessfulAt  string
}

// GetStats retrieves sync statistics.
func (s *SyncHistory) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := s.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(state = 'aborted'), 0),
			COALESCE(SUM(dry_run), 0),
			COALESCE(SUM(CASE WHEN dry_run = 0 THEN created ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dry_run = 0 THEN updated ELSE 0 END), 0),
			COALESCE(SUM(failed), 0)
		FROM sync_runs
	`).Scan(
		&stats.TotalRuns,
		&stats.AbortedRuns,
		&stats.DryRuns,
		&stats.TotalCreated,
		&stats.TotalUpdated,
		&stats.TotalFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run counts: %w", err)
	}

	var lastRun sql.NullString
	if err := s.conn.QueryRowContext(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, MetadataLastRun).Scan(&lastRun); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	stats.LastRun = lastRun

	if stats.LastSuccessfulRun, err = s.GetMetadata(ctx, MetadataLastSuccessfulRun); err != nil {
		return nil, err
	}
	if stats.LastSuccessfulAt, err = s.GetMetadata(ctx, MetadataLastSuccessfulAt); err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (s *SyncHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM sync_metadata WHERE key = ?`

	var value string
	err := s.conn.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (s *SyncHistory) SetMetadata(ctx context.Context, key, value string) error {
	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		return setMetadata(ctx, tx, key, value)
	})
}

func setMetadata(ctx context.Context, tx *sql.Tx, key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
