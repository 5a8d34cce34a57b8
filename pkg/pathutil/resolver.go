// Package pathutil provides centralized path management for the sync
// database and run reports.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathResolver manages paths for the sync database and reports.
type PathResolver struct {
	dataDir      string
	databasePath string
	reportsDir   string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataDir is the root directory for local state (e.g., ~/.local/share/firefly-sync)
	DataDir string
	// DatabasePath is the path to the SQLite database file for sync history
	DatabasePath string
	// ReportsDir is the directory for CSV reports of each run
	ReportsDir string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {DataDir}/sync.db
// If ReportsDir is empty, it defaults to {DataDir}/reports
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir, "sync.db")
	}

	reportsDir := config.ReportsDir
	if reportsDir == "" {
		reportsDir = filepath.Join(config.DataDir, "reports")
	}

	return &PathResolver{
		dataDir:      config.DataDir,
		databasePath: dbPath,
		reportsDir:   reportsDir,
	}
}

// FromEnv creates a PathResolver from environment variables.
// Expected environment variables:
//   - SYNC_DATA_DIR: Root directory for local state (required)
//   - SYNC_DB_PATH: Database file path (optional)
//   - SYNC_REPORTS_DIR: Reports directory (optional)
func FromEnv() (*PathResolver, error) {
	dataDir := os.Getenv("SYNC_DATA_DIR")
	if dataDir == "" {
		return nil, fmt.Errorf("SYNC_DATA_DIR environment variable is required")
	}

	return New(Config{
		DataDir:      dataDir,
		DatabasePath: os.Getenv("SYNC_DB_PATH"),
		ReportsDir:   os.Getenv("SYNC_REPORTS_DIR"),
	}), nil
}

// GetDataDir returns the data directory.
func (p *PathResolver) GetDataDir() string {
	return p.dataDir
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetReportsDir returns the reports directory.
func (p *PathResolver) GetReportsDir() string {
	return p.reportsDir
}

// GetReportPath returns the CSV report path of a run, grouped by month.
// Example: reports/2024-01/2024-01-31T120000_<run id>.csv
func (p *PathResolver) GetReportPath(startedAt time.Time, runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if filepath.Base(runID) != runID {
		return "", fmt.Errorf("invalid run id: %s", runID)
	}

	month := startedAt.Format("2006-01")
	filename := fmt.Sprintf("%s_%s.csv", startedAt.Format("2006-01-02T150405"), runID)
	return filepath.Join(p.reportsDir, month, filename), nil
}

// GetExportPath returns the path of an export file named name.
// Example: exports/accounts.csv
func (p *PathResolver) GetExportPath(name string) string {
	return filepath.Join(p.dataDir, "exports", name)
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
