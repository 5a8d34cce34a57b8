package firefly

import (
	"fmt"
	"strings"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Firefly transaction types that are not synchronized.
const (
	typeOpeningBalance = "opening balance"
	typeReconciliation = "reconciliation"
)

// errUnsupported marks records of a kind the record model does not carry.
type errUnsupported struct {
	kind, value string
}

func (e errUnsupported) Error() string {
	return fmt.Sprintf("unsupported %s %q", e.kind, e.value)
}

// accountType maps a Firefly account type to the record model.
func accountType(t string) (ledger.AccountType, error) {
	switch strings.ToLower(t) {
	case "asset":
		return ledger.AccountTypeAsset, nil
	case "expense":
		return ledger.AccountTypeExpense, nil
	case "revenue":
		return ledger.AccountTypeRevenue, nil
	case "liability", "liabilities", "loan", "debt", "mortgage":
		return ledger.AccountTypeLiability, nil
	}
	return "", errUnsupported{kind: "account type", value: t}
}

// AccountFromRead converts an API account. Accounts of internal types such as
// "initial-balance" or "cash" yield an error.
func AccountFromRead(r AccountRead) (ledger.Account, error) {
	t, err := accountType(r.Attributes.Type)
	if err != nil {
		return ledger.Account{}, err
	}
	balance := decimal.Zero
	if r.Attributes.CurrentBalance != "" {
		if balance, err = decimal.NewFromString(r.Attributes.CurrentBalance); err != nil {
			return ledger.Account{}, fmt.Errorf("invalid balance of account %s: %w", r.ID, err)
		}
	}
	return ledger.Account{
		Name:           r.Attributes.Name,
		Type:           t,
		CurrentBalance: balance,
		Currency:       r.Attributes.CurrencyCode,
		RemoteID:       r.ID,
	}, nil
}

// AccountStoreFrom builds the body creating a.
func AccountStoreFrom(a ledger.Account) AccountStore {
	store := AccountStore{
		Name:         a.Name,
		Type:         string(a.Type),
		CurrencyCode: a.Currency,
		Active:       true,
	}
	switch a.Type {
	case ledger.AccountTypeAsset:
		store.AccountRole = "defaultAsset"
	case ledger.AccountTypeLiability:
		store.Type = "liabilities"
	}
	return store
}

// TransactionFromRead converts a transaction group. Only the first split is
// used; the amount is signed negative for withdrawals.
func TransactionFromRead(r TransactionRead) (ledger.Transaction, error) {
	if len(r.Attributes.Transactions) == 0 {
		return ledger.Transaction{}, fmt.Errorf("transaction %s has no splits", r.ID)
	}
	split := r.Attributes.Transactions[0]

	t := ledger.TransactionType(strings.ToLower(split.Type))
	if !t.Valid() {
		return ledger.Transaction{}, errUnsupported{kind: "transaction type", value: split.Type}
	}
	date, err := ledger.ParseDate(split.Date)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	amount, err := decimal.NewFromString(split.Amount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount of transaction %s: %w", r.ID, err)
	}

	return ledger.Transaction{
		Date:        date,
		Amount:      ledger.SignAmount(amount, t),
		Type:        t,
		Description: split.Description,
		Source:      ledger.AccountRef{Name: split.SourceName, RemoteID: split.SourceID},
		Destination: ledger.AccountRef{Name: split.DestinationName, RemoteID: split.DestinationID},
		RemoteID:    r.ID,
	}, nil
}

// SplitFrom builds the wire split of t. Amounts are sent unsigned. Account
// ids take precedence over names when known.
func SplitFrom(t ledger.Transaction) TransactionSplit {
	split := TransactionSplit{
		Type:        string(t.Type),
		Date:        t.Date.String(),
		Amount:      t.Amount.Abs().String(),
		Description: t.Description,
	}
	if t.Source.RemoteID != "" {
		split.SourceID = t.Source.RemoteID
	} else {
		split.SourceName = t.Source.Name
	}
	if t.Destination.RemoteID != "" {
		split.DestinationID = t.Destination.RemoteID
	} else {
		split.DestinationName = t.Destination.Name
	}
	return split
}
