// Package db provides SQLite storage for the history of sync runs.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per sync run
CREATE TABLE IF NOT EXISTS sync_runs (
    run_id TEXT PRIMARY KEY,
    state TEXT NOT NULL,               -- 'reported' or 'aborted'
    dry_run INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    error TEXT,                        -- fatal error of an aborted run
    created INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    remote_only_accounts INTEGER NOT NULL DEFAULT 0,
    remote_only_transactions INTEGER NOT NULL DEFAULT 0,
    balance_drifts INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started
    ON sync_runs(started_at);

-- One row per record outcome of a run
CREATE TABLE IF NOT EXISTS sync_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES sync_runs(run_id) ON DELETE CASCADE,
    status TEXT NOT NULL,              -- created, updated, skipped, failed
    op TEXT NOT NULL,
    kind TEXT NOT NULL,                -- account, transaction, record
    record TEXT NOT NULL,
    remote_id TEXT,
    date TEXT,                         -- YYYY-MM-DD
    amount TEXT,                       -- signed decimal
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_outcomes_run
    ON sync_outcomes(run_id, status);

-- Sync metadata table
-- Stores key-value metadata about sync operations
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}
