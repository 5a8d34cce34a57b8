package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/pathutil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
	"github.com/shopspring/decimal"
)

var _ reconcile.Reporter = (*CSVReporter)(nil)
var _ reconcile.Reporter = (*SummaryReporter)(nil)

func testResult() *reconcile.SyncResult {
	groceries := ledger.Transaction{
		Date:        civil.Date{Year: 2024, Month: time.February, Day: 10},
		Amount:      decimal.RequireFromString("-54.3"),
		Type:        ledger.TransactionTypeWithdrawal,
		Description: "Groceries, weekly",
		Source:      ledger.AccountRef{Name: "Checking", RemoteID: "1"},
		Destination: ledger.AccountRef{Name: "Market"},
		RemoteID:    "41",
	}
	salary := ledger.Transaction{
		Date:        civil.Date{Year: 2024, Month: time.February, Day: 1},
		Amount:      decimal.RequireFromString("2500"),
		Type:        ledger.TransactionTypeDeposit,
		Description: "Salary",
		Source:      ledger.AccountRef{Name: "Employer"},
		Destination: ledger.AccountRef{Name: "Checking"},
	}
	savings := ledger.Account{
		Name:           "Savings",
		Type:           ledger.AccountTypeAsset,
		CurrentBalance: decimal.RequireFromString("100"),
		Currency:       "EUR",
		RemoteID:       "2",
	}
	gym := ledger.Transaction{
		Date:        civil.Date{Year: 2024, Month: time.February, Day: 3},
		Amount:      decimal.RequireFromString("-30"),
		Type:        ledger.TransactionTypeWithdrawal,
		Description: "Gym",
		RemoteID:    "7",
	}

	return &reconcile.SyncResult{
		RunID:      "run-7",
		State:      reconcile.PhaseReported,
		StartedAt:  time.Date(2024, 2, 11, 9, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 2, 11, 9, 30, 1, 500_000_000, time.UTC),
		Created: []reconcile.Outcome{
			{Op: reconcile.OpCreateAccount, Record: savings.String(), Account: &savings},
			{Op: reconcile.OpCreateTransaction, Record: groceries.String(), Transaction: &groceries},
		},
		Failed: []reconcile.Outcome{
			{Op: reconcile.OpCreateTransaction, Record: salary.String(), Transaction: &salary, Err: errors.New("status 422: invalid date")},
		},
		RemoteOnlyTransactions: []ledger.Transaction{gym},
		BalanceDrifts: []reconcile.BalanceDrift{
			{Account: savings, Local: decimal.RequireFromString("100"), Remote: decimal.RequireFromString("90.5")},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return rows
}

func TestWriteOutcomesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutcomesCSV(&buf, testResult()); err != nil {
		t.Fatalf("WriteOutcomesCSV() error = %v", err)
	}

	rows := readCSV(t, buf.Bytes())
	if len(rows) != 5 {
		t.Fatalf("WriteOutcomesCSV() wrote %d rows, expected 5", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(OutcomeHeader, ",") {
		t.Errorf("header = %v, expected %v", rows[0], OutcomeHeader)
	}

	tests := []struct {
		row      int
		expected []string
	}{
		{1, []string{"created", "create_account", "account", "2", "", "100.00", "asset", "Savings", "", "", ""}},
		{2, []string{"created", "create_transaction", "transaction", "41", "2024-02-10", "-54.30", "withdrawal", "Groceries, weekly", "Checking", "Market", ""}},
		{3, []string{"failed", "create_transaction", "transaction", "", "2024-02-01", "2500.00", "deposit", "Salary", "Employer", "Checking", "status 422: invalid date"}},
		{4, []string{"remote_only", "", "transaction", "7", "2024-02-03", "-30.00", "withdrawal", "Gym", "", "", ""}},
	}
	for _, tt := range tests {
		if got := strings.Join(rows[tt.row], "|"); got != strings.Join(tt.expected, "|") {
			t.Errorf("row %d = %q, expected %q", tt.row, got, strings.Join(tt.expected, "|"))
		}
	}
}

func TestCSVReporter(t *testing.T) {
	paths := pathutil.New(pathutil.Config{DataDir: t.TempDir()})
	result := testResult()

	if err := NewCSVReporter(paths, nil).Report(context.Background(), result); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	path, err := paths.GetReportPath(result.StartedAt, result.RunID)
	if err != nil {
		t.Fatalf("GetReportPath() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if rows := readCSV(t, data); len(rows) != 5 {
		t.Errorf("report has %d rows, expected 5", len(rows))
	}
}

func TestWriteDumps(t *testing.T) {
	result := testResult()

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, []ledger.Transaction{*result.Created[1].Transaction}); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 2 || rows[1][0] != "41" || rows[1][2] != "-54.30" || rows[1][4] != "Groceries, weekly" {
		t.Errorf("WriteTransactionsCSV() = %v", rows)
	}

	buf.Reset()
	if err := WriteAccountsCSV(&buf, []ledger.Account{*result.Created[0].Account}); err != nil {
		t.Fatalf("WriteAccountsCSV() error = %v", err)
	}
	rows = readCSV(t, buf.Bytes())
	expected := "2|Savings|asset|100.00|EUR"
	if len(rows) != 2 || strings.Join(rows[1], "|") != expected {
		t.Errorf("WriteAccountsCSV() = %v, expected row %q", rows, expected)
	}
}

func TestSummary(t *testing.T) {
	result := testResult()
	got := Summary(result)

	for _, want := range []string{
		"# Sync run-7",
		"| Duration | 1.5s |",
		"| Created | 2 |",
		"| Failed | 1 |",
		"| Remote only transactions | 1 |",
		"status 422: invalid date",
		"| Savings | 100.00 | 90.50 | 9.50 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Dry run") || strings.Contains(got, "## Plan") {
		t.Errorf("Summary() of a real run mentions the plan:\n%s", got)
	}

	result.DryRun = true
	result.Plan = &reconcile.Plan{
		Accounts: []reconcile.Operation{{Kind: reconcile.OpCreateAccount}},
		Transactions: []reconcile.Operation{
			{Kind: reconcile.OpCreateTransaction},
			{Kind: reconcile.OpCreateTransaction},
			{Kind: reconcile.OpReplaceTransaction},
		},
	}
	got = Summary(result)
	for _, want := range []string{
		"**Dry run**",
		"| create_account | 1 |",
		"| create_transaction | 2 |",
		"| replace_transaction | 1 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() of a dry run missing %q in:\n%s", want, got)
		}
	}
}

func TestSummaryAborted(t *testing.T) {
	result := &reconcile.SyncResult{
		RunID:     "run-8",
		State:     reconcile.PhaseAborted,
		StartedAt: time.Date(2024, 2, 11, 9, 30, 0, 0, time.UTC),
		Err:       errors.New("failed to list remote accounts"),
	}
	got := Summary(result)

	for _, want := range []string{"| State | aborted |", "| Duration | - |", "| Error | failed to list remote accounts |"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q in:\n%s", want, got)
		}
	}
}

func TestSummaryReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewSummaryReporter(&buf, 0).Report(context.Background(), testResult()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# Sync run-7") {
		t.Errorf("Report() wrote %q, expected raw markdown", buf.String())
	}

	buf.Reset()
	if err := NewSummaryReporter(&buf, 80).Report(context.Background(), testResult()); err != nil {
		t.Fatalf("Report() rendered error = %v", err)
	}
	if !strings.Contains(buf.String(), "run-7") {
		t.Errorf("rendered summary missing run id:\n%s", buf.String())
	}
}
