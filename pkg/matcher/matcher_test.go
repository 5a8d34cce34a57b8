package matcher

import (
	"fmt"
	"math/rand"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/shopspring/decimal"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func txn(id, day, amount, desc string) ledger.Transaction {
	a := decimal.RequireFromString(amount)
	return ledger.Transaction{
		Date:        date(day),
		Amount:      a,
		Type:        ledger.InferType(a),
		Description: desc,
		Source:      ledger.AccountRef{Name: "Checking"},
		Destination: ledger.AccountRef{Name: "Shop"},
		RemoteID:    id,
	}
}

func TestMatchTransactionsScenarios(t *testing.T) {
	m := New(Options{})

	t.Run("fuzzy description is matched", func(t *testing.T) {
		local := []ledger.Transaction{txn("", "2024-01-01", "-50.00", "SUPERMARKET X")}
		remote := []ledger.Transaction{txn("7", "2024-01-01", "-50.00", "SUPERMARKET X PARIS")}

		got := m.MatchTransactions(local, remote)
		if len(got.Pairs) != 1 || len(got.LocalOnly) != 0 || len(got.RemoteOnly) != 0 {
			t.Fatalf("MatchTransactions() = %d pairs, %d local-only, %d remote-only, expected 1/0/0",
				len(got.Pairs), len(got.LocalOnly), len(got.RemoteOnly))
		}
		if got.Pairs[0].Local.RemoteID != "7" {
			t.Errorf("matched local RemoteID = %q, expected 7", got.Pairs[0].Local.RemoteID)
		}
		if got.Pairs[0].Score < DefaultThreshold {
			t.Errorf("Score = %d, expected at least %d", got.Pairs[0].Score, DefaultThreshold)
		}
	})

	t.Run("one cent difference is never matched", func(t *testing.T) {
		local := []ledger.Transaction{txn("", "2024-01-01", "-50.00", "SUPERMARKET X")}
		remote := []ledger.Transaction{txn("7", "2024-01-01", "-50.01", "SUPERMARKET X")}

		got := m.MatchTransactions(local, remote)
		if len(got.Pairs) != 0 || len(got.LocalOnly) != 1 || len(got.RemoteOnly) != 1 {
			t.Fatalf("MatchTransactions() = %d pairs, %d local-only, %d remote-only, expected 0/1/1",
				len(got.Pairs), len(got.LocalOnly), len(got.RemoteOnly))
		}
	})

	t.Run("empty remote", func(t *testing.T) {
		local := []ledger.Transaction{
			txn("", "2024-01-01", "-1", "A"),
			txn("", "2024-01-02", "-2", "B"),
			txn("", "2024-01-03", "3", "C"),
		}
		got := m.MatchTransactions(local, nil)
		if len(got.LocalOnly) != 3 || len(got.Pairs) != 0 || len(got.RemoteOnly) != 0 {
			t.Errorf("MatchTransactions() local-only = %d, expected 3", len(got.LocalOnly))
		}
	})

	t.Run("empty local", func(t *testing.T) {
		remote := []ledger.Transaction{txn("1", "2024-01-01", "-1", "A"), txn("2", "2024-01-02", "-2", "B")}
		got := m.MatchTransactions(nil, remote)
		if len(got.RemoteOnly) != 2 || len(got.Pairs) != 0 || len(got.LocalOnly) != 0 {
			t.Errorf("MatchTransactions() remote-only = %d, expected 2", len(got.RemoteOnly))
		}
	})

	t.Run("description below threshold", func(t *testing.T) {
		local := []ledger.Transaction{txn("", "2024-01-01", "-9.99", "NETFLIX.COM")}
		remote := []ledger.Transaction{txn("3", "2024-01-01", "-9.99", "BOULANGERIE DU COIN")}
		got := m.MatchTransactions(local, remote)
		if len(got.Pairs) != 0 {
			t.Errorf("MatchTransactions() matched unrelated descriptions")
		}
	})

	t.Run("different date", func(t *testing.T) {
		local := []ledger.Transaction{txn("", "2024-01-01", "-5", "CAFE")}
		remote := []ledger.Transaction{txn("3", "2024-01-02", "-5", "CAFE")}
		if got := m.MatchTransactions(local, remote); len(got.Pairs) != 0 {
			t.Errorf("MatchTransactions() matched across dates with zero tolerance")
		}
	})
}

func TestMatchTransactionsDateTolerance(t *testing.T) {
	m := New(Options{DateToleranceDays: 2})
	local := []ledger.Transaction{txn("", "2024-01-03", "-5", "CAFE")}

	within := []ledger.Transaction{txn("3", "2024-01-01", "-5", "CAFE")}
	if got := m.MatchTransactions(local, within); len(got.Pairs) != 1 {
		t.Errorf("MatchTransactions() did not match within tolerance")
	}

	outside := []ledger.Transaction{txn("3", "2023-12-31", "-5", "CAFE")}
	if got := m.MatchTransactions(local, outside); len(got.Pairs) != 0 {
		t.Errorf("MatchTransactions() matched outside tolerance")
	}
}

func TestMatchTransactionsTieBreak(t *testing.T) {
	m := New(Options{})

	local := []ledger.Transaction{
		txn("", "2024-01-01", "-4.20", "BOULANGERIE"),
		txn("", "2024-01-01", "-4.20", "BOULANGERIE"),
	}
	// Deliberately not in id order.
	remote := []ledger.Transaction{
		txn("12", "2024-01-01", "-4.20", "BOULANGERIE"),
		txn("9", "2024-01-01", "-4.20", "BOULANGERIE"),
		txn("30", "2024-01-01", "-4.20", "BOULANGERIE"),
	}

	got := m.MatchTransactions(local, remote)
	if len(got.Pairs) != 2 {
		t.Fatalf("MatchTransactions() pairs = %d, expected 2", len(got.Pairs))
	}
	if got.Pairs[0].Remote.RemoteID != "9" || got.Pairs[1].Remote.RemoteID != "12" {
		t.Errorf("tie-break chose %s then %s, expected 9 then 12",
			got.Pairs[0].Remote.RemoteID, got.Pairs[1].Remote.RemoteID)
	}
	if len(got.RemoteOnly) != 1 || got.RemoteOnly[0].RemoteID != "30" {
		t.Errorf("RemoteOnly = %v, expected only id 30", got.RemoteOnly)
	}
}

func TestMatchTransactionsPrefersBestScore(t *testing.T) {
	m := New(Options{})
	local := []ledger.Transaction{txn("", "2024-01-01", "-20", "AMAZON MARKETPLACE")}
	remote := []ledger.Transaction{
		txn("1", "2024-01-01", "-20", "AMAZON MARKETPLACE EU"),
		txn("2", "2024-01-01", "-20", "AMAZON MARKETPLACE"),
	}
	got := m.MatchTransactions(local, remote)
	if len(got.Pairs) != 1 {
		t.Fatalf("pairs = %d, expected 1", len(got.Pairs))
	}
	// Both score 100 through the partial ratio, so the lowest id wins.
	if got.Pairs[0].Remote.RemoteID != "1" {
		t.Errorf("chose remote %s, expected 1", got.Pairs[0].Remote.RemoteID)
	}
}

func TestMatchTransactionsCustomSimilarity(t *testing.T) {
	exact := func(a, b string) int {
		if a == b {
			return 100
		}
		return 0
	}
	m := New(Options{Similarity: exact, Threshold: 100})
	local := []ledger.Transaction{txn("", "2024-01-01", "-1", "A B")}
	remote := []ledger.Transaction{txn("1", "2024-01-01", "-1", "A B C")}
	if got := m.MatchTransactions(local, remote); len(got.Pairs) != 0 {
		t.Errorf("custom similarity was not used")
	}
}

func TestMatchTransactionsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	descriptions := []string{"CAFE", "SUPERMARKET X", "SUPERMARKET X PARIS", "NETFLIX", "LOYER"}
	amounts := []string{"-5", "-5.01", "-12.30", "100", "-50"}
	days := []string{"2024-01-01", "2024-01-02"}

	random := func(n int, withIDs bool) []ledger.Transaction {
		out := make([]ledger.Transaction, n)
		for i := range out {
			id := ""
			if withIDs {
				id = fmt.Sprint(i + 1)
			}
			out[i] = txn(id, days[rng.Intn(len(days))], amounts[rng.Intn(len(amounts))], descriptions[rng.Intn(len(descriptions))])
		}
		return out
	}

	m := New(Options{})
	for round := 0; round < 200; round++ {
		local := random(rng.Intn(8), false)
		remote := random(rng.Intn(8), true)
		got := m.MatchTransactions(local, remote)

		if n := len(got.Pairs) + len(got.LocalOnly); n != len(local) {
			t.Fatalf("round %d: %d local classified, expected %d", round, n, len(local))
		}
		if n := len(got.Pairs) + len(got.RemoteOnly); n != len(remote) {
			t.Fatalf("round %d: %d remote classified, expected %d", round, n, len(remote))
		}

		used := map[string]bool{}
		for _, p := range got.Pairs {
			if used[p.Remote.RemoteID] {
				t.Fatalf("round %d: remote %s consumed twice", round, p.Remote.RemoteID)
			}
			used[p.Remote.RemoteID] = true
			if !p.Local.Amount.Equal(p.Remote.Amount) {
				t.Fatalf("round %d: matched different amounts %s and %s", round, p.Local.Amount, p.Remote.Amount)
			}
		}
	}
}

func TestMatchAccounts(t *testing.T) {
	local := []ledger.Account{
		{Name: "Checking", Type: ledger.AccountTypeAsset},
		{Name: "savings  book", Type: ledger.AccountTypeAsset},
		{Name: "CHECKING", Type: ledger.AccountTypeAsset},
		{Name: "Brokerage", Type: ledger.AccountTypeAsset},
	}
	remote := []ledger.Account{
		{Name: "Savings Book", Type: ledger.AccountTypeAsset, RemoteID: "4"},
		{Name: "checking", Type: ledger.AccountTypeAsset, RemoteID: "9"},
		{Name: "Checking", Type: ledger.AccountTypeAsset, RemoteID: "2"},
		{Name: "Groceries", Type: ledger.AccountTypeExpense, RemoteID: "11"},
	}

	got := MatchAccounts(local, remote, nil)

	if len(got.Pairs) != 2 {
		t.Fatalf("pairs = %d, expected 2", len(got.Pairs))
	}
	if got.Pairs[0].Local.Name != "Checking" || got.Pairs[0].Local.RemoteID != "2" {
		t.Errorf("Checking matched %q, expected lowest remote id 2", got.Pairs[0].Local.RemoteID)
	}
	if got.Pairs[1].Remote.RemoteID != "4" {
		t.Errorf("savings matched %q, expected 4", got.Pairs[1].Remote.RemoteID)
	}
	if len(got.LocalOnly) != 1 || got.LocalOnly[0].Name != "Brokerage" {
		t.Errorf("LocalOnly = %v, expected Brokerage", got.LocalOnly)
	}

	remoteOnly := map[string]bool{}
	for _, r := range got.RemoteOnly {
		remoteOnly[r.RemoteID] = true
	}
	if len(remoteOnly) != 2 || !remoteOnly["9"] || !remoteOnly["11"] {
		t.Errorf("RemoteOnly ids = %v, expected 9 and 11", remoteOnly)
	}
}

func TestMatchAccountsEmpty(t *testing.T) {
	local := []ledger.Account{{Name: "Checking", Type: ledger.AccountTypeAsset}}
	got := MatchAccounts(local, nil, nil)
	if len(got.LocalOnly) != 1 || len(got.Pairs) != 0 {
		t.Errorf("MatchAccounts() with no remote accounts = %+v", got)
	}

	got = MatchAccounts(nil, []ledger.Account{{Name: "x", RemoteID: "1"}}, nil)
	if len(got.RemoteOnly) != 1 {
		t.Errorf("MatchAccounts() with no local accounts RemoteOnly = %d, expected 1", len(got.RemoteOnly))
	}
}

func TestMatchAccountsSharedNameAcrossTypes(t *testing.T) {
	local := []ledger.Account{
		{Name: "Unknown", Type: ledger.AccountTypeExpense},
		{Name: "Cash", Type: ledger.AccountTypeAsset},
	}
	remote := []ledger.Account{
		{Name: "Unknown", Type: ledger.AccountTypeRevenue, RemoteID: "3"},
		{Name: "Unknown", Type: ledger.AccountTypeExpense, RemoteID: "7"},
		{Name: "Cash", Type: ledger.AccountTypeLiability, RemoteID: "1"},
	}

	got := MatchAccounts(local, remote, nil)

	if len(got.Pairs) != 1 || got.Pairs[0].Remote.RemoteID != "7" {
		t.Fatalf("Pairs = %+v, expected Unknown matched to expense 7", got.Pairs)
	}
	if len(got.LocalOnly) != 1 || got.LocalOnly[0].Name != "Cash" {
		t.Errorf("LocalOnly = %v, expected the asset Cash", got.LocalOnly)
	}
	if len(got.RemoteOnly) != 2 {
		t.Errorf("RemoteOnly = %v, expected revenue 3 and liability 1", got.RemoteOnly)
	}
}
