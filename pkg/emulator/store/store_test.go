package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustCreateAccount(t *testing.T, st *Store, name, accountType string) *firefly.AccountRead {
	t.Helper()
	a, err := st.CreateAccount(firefly.AccountStore{Name: name, Type: accountType, AccountRole: "defaultAsset"})
	if err != nil {
		t.Fatalf("CreateAccount(%q) error = %v", name, err)
	}
	return a
}

func split(typ, date, amount, desc, source, destination string) firefly.TransactionSplit {
	return firefly.TransactionSplit{
		Type:            typ,
		Date:            date,
		Amount:          amount,
		Description:     desc,
		SourceName:      source,
		DestinationName: destination,
	}
}

func balanceOf(t *testing.T, st *Store, id string) string {
	t.Helper()
	key, err := ParseID(id)
	if err != nil {
		t.Fatalf("ParseID(%q) error = %v", id, err)
	}
	a, err := st.GetAccount(key)
	if err != nil {
		t.Fatalf("GetAccount(%s) error = %v", id, err)
	}
	return a.Attributes.CurrentBalance
}

func TestTokens(t *testing.T) {
	st := newTestStore(t)
	if err := st.AddToken("secret"); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}

	tests := []struct {
		token    string
		expected bool
	}{
		{"secret", true},
		{"other", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := st.ValidToken(tt.token)
		if err != nil {
			t.Fatalf("ValidToken(%q) error = %v", tt.token, err)
		}
		if got != tt.expected {
			t.Errorf("ValidToken(%q) = %v, expected %v", tt.token, got, tt.expected)
		}
	}
}

func TestCreateAccount(t *testing.T) {
	st := newTestStore(t)

	a := mustCreateAccount(t, st, "Checking", "asset")
	if a.ID != "1" {
		t.Errorf("ID = %q, expected %q", a.ID, "1")
	}
	if a.Attributes.CurrentBalance != "0.00" {
		t.Errorf("CurrentBalance = %q, expected %q", a.Attributes.CurrentBalance, "0.00")
	}
	if a.Attributes.CurrencyCode != "EUR" {
		t.Errorf("CurrencyCode = %q, expected %q", a.Attributes.CurrencyCode, "EUR")
	}

	tests := []struct {
		name  string
		req   firefly.AccountStore
		field string
	}{
		{"duplicate name", firefly.AccountStore{Name: "checking", Type: "asset", AccountRole: "defaultAsset"}, "name"},
		{"empty name", firefly.AccountStore{Name: " ", Type: "asset", AccountRole: "defaultAsset"}, "name"},
		{"unknown type", firefly.AccountStore{Name: "X", Type: "bogus"}, "type"},
		{"asset without role", firefly.AccountStore{Name: "Y", Type: "asset"}, "account_role"},
		{"bad opening balance", firefly.AccountStore{Name: "Z", Type: "expense", OpeningBalance: "abc"}, "opening_balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreateAccount(tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("CreateAccount() error = %v, expected ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, expected %q", vErr.Field, tt.field)
			}
		})
	}

	// Same name with another type is allowed.
	mustCreateAccount(t, st, "Checking", "expense")
	all, err := st.ListAccounts("all")
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAccounts(all) = %d accounts, expected 2", len(all))
	}
	assets, _ := st.ListAccounts("asset")
	if len(assets) != 1 {
		t.Errorf("ListAccounts(asset) = %d accounts, expected 1", len(assets))
	}
}

func TestTransactionLifecycle(t *testing.T) {
	st := newTestStore(t)
	checking := mustCreateAccount(t, st, "Checking", "asset")
	savings := mustCreateAccount(t, st, "Savings", "asset")

	group, err := st.CreateTransaction(firefly.TransactionStore{Transactions: []firefly.TransactionSplit{
		split("withdrawal", "2024-01-05", "12.5", "CAFE", "Checking", "Cafe"),
	}})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	s := group.Attributes.Transactions[0]
	if s.SourceID != checking.ID {
		t.Errorf("SourceID = %q, expected %q", s.SourceID, checking.ID)
	}
	if s.Amount != "12.50" {
		t.Errorf("Amount = %q, expected %q", s.Amount, "12.50")
	}
	if got := balanceOf(t, st, checking.ID); got != "-12.50" {
		t.Errorf("checking balance = %q, expected %q", got, "-12.50")
	}

	expenses, _ := st.ListAccounts("expense")
	if len(expenses) != 1 || expenses[0].Attributes.Name != "Cafe" {
		t.Fatalf("expense accounts = %+v, expected one named Cafe", expenses)
	}

	_, err = st.CreateTransaction(firefly.TransactionStore{Transactions: []firefly.TransactionSplit{
		split("transfer", "2024-02-01", "100", "Saving", "Checking", "Savings"),
	}})
	if err != nil {
		t.Fatalf("CreateTransaction(transfer) error = %v", err)
	}
	if got := balanceOf(t, st, savings.ID); got != "100.00" {
		t.Errorf("savings balance = %q, expected %q", got, "100.00")
	}

	jan, err := st.ListTransactions("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(jan) != 1 {
		t.Errorf("ListTransactions(january) = %d, expected 1", len(jan))
	}

	id, _ := ParseID(group.ID)
	updated, err := st.UpdateTransaction(id, firefly.TransactionUpdate{Transactions: []firefly.TransactionSplit{
		split("withdrawal", "2024-01-05", "20", "CAFE 2", "Checking", "Cafe"),
	}})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.Attributes.Transactions[0].Description != "CAFE 2" {
		t.Errorf("Description = %q, expected %q", updated.Attributes.Transactions[0].Description, "CAFE 2")
	}
	if got := balanceOf(t, st, checking.ID); got != "-120.00" {
		t.Errorf("checking balance after update = %q, expected %q", got, "-120.00")
	}

	_, err = st.UpdateTransaction(id, firefly.TransactionUpdate{Transactions: []firefly.TransactionSplit{
		split("deposit", "2024-01-05", "20", "CAFE 2", "Cafe", "Checking"),
	}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("UpdateTransaction(type change) error = %v, expected ValidationError", err)
	}

	if err := st.DeleteTransaction(id); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if got := balanceOf(t, st, checking.ID); got != "-100.00" {
		t.Errorf("checking balance after delete = %q, expected %q", got, "-100.00")
	}
	if _, err := st.GetTransaction(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction() error = %v, expected ErrNotFound", err)
	}
	if err := st.DeleteTransaction(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTransaction() twice error = %v, expected ErrNotFound", err)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	st := newTestStore(t)
	mustCreateAccount(t, st, "Checking", "asset")

	tests := []struct {
		name  string
		split firefly.TransactionSplit
		field string
	}{
		{"bad type", split("opening balance", "2024-01-05", "1", "x", "Checking", "Shop"), "transactions.0.type"},
		{"bad date", split("withdrawal", "05/01/2024", "1", "x", "Checking", "Shop"), "transactions.0.date"},
		{"zero amount", split("withdrawal", "2024-01-05", "0", "x", "Checking", "Shop"), "transactions.0.amount"},
		{"negative amount", split("withdrawal", "2024-01-05", "-3", "x", "Checking", "Shop"), "transactions.0.amount"},
		{"no description", split("withdrawal", "2024-01-05", "1", "", "Checking", "Shop"), "transactions.0.description"},
		{"unknown asset", split("withdrawal", "2024-01-05", "1", "x", "Nowhere", "Shop"), "transactions.0.source_id"},
		{"unknown source id", firefly.TransactionSplit{Type: "withdrawal", Date: "2024-01-05", Amount: "1", Description: "x", SourceID: "99", DestinationName: "Shop"}, "transactions.0.source_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreateTransaction(firefly.TransactionStore{Transactions: []firefly.TransactionSplit{tt.split}})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("CreateTransaction() error = %v, expected ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, expected %q", vErr.Field, tt.field)
			}
		})
	}

	groups, _ := st.ListTransactions("", "")
	if len(groups) != 0 {
		t.Errorf("stored %d transactions after rejected requests, expected 0", len(groups))
	}
}

func TestCreateTransactionAccountRoles(t *testing.T) {
	st := newTestStore(t)
	checking := mustCreateAccount(t, st, "Checking", "asset")
	loan := mustCreateAccount(t, st, "Loan", "liabilities")
	revenue := mustCreateAccount(t, st, "Unknown", "revenue")
	expense := mustCreateAccount(t, st, "Unknown", "expense")

	byID := func(typ, source, destination string) firefly.TransactionSplit {
		return firefly.TransactionSplit{
			Type:          typ,
			Date:          "2024-01-04",
			Amount:        "3.10",
			Description:   "BAKERY",
			SourceID:      source,
			DestinationID: destination,
		}
	}

	tests := []struct {
		name  string
		split firefly.TransactionSplit
		field string // empty when the split is accepted
	}{
		{"withdrawal to expense", byID("withdrawal", checking.ID, expense.ID), ""},
		{"withdrawal to revenue", byID("withdrawal", checking.ID, revenue.ID), "transactions.0.destination_id"},
		{"deposit from revenue", byID("deposit", revenue.ID, checking.ID), ""},
		{"deposit from expense", byID("deposit", expense.ID, checking.ID), "transactions.0.source_id"},
		{"withdrawal from expense", byID("withdrawal", expense.ID, expense.ID), "transactions.0.source_id"},
		{"transfer to liability", byID("transfer", checking.ID, loan.ID), ""},
		{"transfer to revenue", byID("transfer", checking.ID, revenue.ID), "transactions.0.destination_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreateTransaction(firefly.TransactionStore{Transactions: []firefly.TransactionSplit{tt.split}})
			if tt.field == "" {
				if err != nil {
					t.Fatalf("CreateTransaction() error = %v, expected success", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("CreateTransaction() error = %v, expected ValidationError", err)
			}
			if vErr.Field != tt.field || vErr.Message != "This value is invalid for this field." {
				t.Errorf("ValidationError = %q %q, expected field %q", vErr.Field, vErr.Message, tt.field)
			}
		})
	}

	// Liability accounts stand in for asset accounts by name too.
	if _, err := st.CreateTransaction(firefly.TransactionStore{Transactions: []firefly.TransactionSplit{
		split("withdrawal", "2024-01-05", "20", "Interest", "Loan", "Bank"),
	}}); err != nil {
		t.Errorf("CreateTransaction() from liability by name error = %v", err)
	}
}
