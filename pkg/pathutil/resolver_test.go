package pathutil

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{DataDir: "/var/lib/firefly-sync"})

	if got, expected := p.GetDatabasePath(), "/var/lib/firefly-sync/sync.db"; got != expected {
		t.Errorf("GetDatabasePath() = %q, expected %q", got, expected)
	}
	if got, expected := p.GetReportsDir(), "/var/lib/firefly-sync/reports"; got != expected {
		t.Errorf("GetReportsDir() = %q, expected %q", got, expected)
	}

	p = New(Config{DataDir: "/data", DatabasePath: "/db/custom.db", ReportsDir: "/out"})
	if got := p.GetDatabasePath(); got != "/db/custom.db" {
		t.Errorf("GetDatabasePath() = %q, expected override", got)
	}
	if got := p.GetReportsDir(); got != "/out" {
		t.Errorf("GetReportsDir() = %q, expected override", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SYNC_DATA_DIR", "")
	if _, err := FromEnv(); err == nil {
		t.Errorf("FromEnv() expected error without SYNC_DATA_DIR")
	}

	t.Setenv("SYNC_DATA_DIR", "/data")
	t.Setenv("SYNC_DB_PATH", "")
	t.Setenv("SYNC_REPORTS_DIR", "/reports")
	p, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if p.GetDatabasePath() != "/data/sync.db" || p.GetReportsDir() != "/reports" {
		t.Errorf("FromEnv() = %q, %q", p.GetDatabasePath(), p.GetReportsDir())
	}
}

func TestGetReportPath(t *testing.T) {
	p := New(Config{DataDir: "/data"})
	startedAt := time.Date(2024, 1, 31, 12, 0, 5, 0, time.UTC)

	tests := []struct {
		runID    string
		expected string
		wantErr  bool
	}{
		{"abc-123", "/data/reports/2024-01/2024-01-31T120005_abc-123.csv", false},
		{"", "", true},
		{"../escape", "", true},
	}

	for _, tt := range tests {
		got, err := p.GetReportPath(startedAt, tt.runID)
		if (err != nil) != tt.wantErr {
			t.Errorf("GetReportPath(%q) error = %v, wantErr %v", tt.runID, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("GetReportPath(%q) = %q, expected %q", tt.runID, got, tt.expected)
		}
	}
}

func TestEnsureParentDir(t *testing.T) {
	root := t.TempDir()
	p := New(Config{DataDir: root})
	file := filepath.Join(root, "a", "b", "report.csv")

	if err := p.EnsureParentDir(file); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if !p.FileExists(filepath.Dir(file)) {
		t.Errorf("FileExists(%q) = false, expected true", filepath.Dir(file))
	}
	if p.FileExists(file) {
		t.Errorf("FileExists(%q) = true, expected false", file)
	}
	if got := p.GetExportPath("accounts.csv"); got != filepath.Join(root, "exports", "accounts.csv") {
		t.Errorf("GetExportPath() = %q", got)
	}
}
