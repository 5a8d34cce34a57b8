// Package ledger provides the record model shared by the local source, the
// remote Firefly III gateway and the reconciliation engine.
package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// AccountType represents the kind of a ledger account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeExpense   AccountType = "expense"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeLiability AccountType = "liability"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeRevenue, AccountTypeLiability:
		return true
	}
	return false
}

// TransactionType represents the direction of a transaction.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

var ownedTypes = []AccountType{AccountTypeAsset, AccountTypeLiability}

// SourceTypes returns the account types that may fund a transaction of type
// t, in lookup order.
func (t TransactionType) SourceTypes() []AccountType {
	if t == TransactionTypeDeposit {
		return []AccountType{AccountTypeRevenue}
	}
	return ownedTypes
}

// DestinationTypes returns the account types that may receive a transaction
// of type t, in lookup order.
func (t TransactionType) DestinationTypes() []AccountType {
	if t == TransactionTypeWithdrawal {
		return []AccountType{AccountTypeExpense}
	}
	return ownedTypes
}

// Account represents an account in either the local source or the remote ledger.
type Account struct {
	Name           string
	Type           AccountType
	CurrentBalance decimal.Decimal
	Currency       string // ISO 4217 code
	RemoteID       string // empty until matched or created
}

// Key returns the identity of the account used for matching and creation.
func (a Account) Key() string {
	return AccountKey(a.Name, a.Type)
}

// AccountKey returns the identity of an account named name of type t.
// Firefly III keeps account names unique per type only.
func AccountKey(name string, t AccountType) string {
	return string(t) + ":" + NormalizeName(name)
}

func (a Account) String() string {
	return fmt.Sprintf("Account %-10s %s", a.Type, a.Name)
}

// AccountRef references an account by name and, once known, by remote id.
type AccountRef struct {
	Name     string
	RemoteID string
}

// Key returns the normalized account name of the reference.
func (r AccountRef) Key() string {
	return NormalizeName(r.Name)
}

// IsZero reports whether the reference names no account at all.
func (r AccountRef) IsZero() bool {
	return strings.TrimSpace(r.Name) == "" && r.RemoteID == ""
}

// Transaction represents a single-split transaction.
// Amount is signed: withdrawals are negative, deposits and transfers positive.
type Transaction struct {
	Date        civil.Date
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	Source      AccountRef
	Destination AccountRef
	RemoteID    string // empty until matched or created
}

func (t Transaction) String() string {
	if t.RemoteID != "" {
		return fmt.Sprintf("Transaction #%s %s %s %s %q", t.RemoteID, t.Date, t.Type, t.Amount.StringFixed(2), t.Description)
	}
	return fmt.Sprintf("Transaction %s %s %s %q", t.Date, t.Type, t.Amount.StringFixed(2), t.Description)
}

// NormalizeName folds an account name into its matching key: surrounding
// whitespace trimmed, inner whitespace collapsed, case folded.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CompareRemoteIDs orders remote ids numerically when both are integers and
// lexically otherwise. It returns -1, 0 or +1.
func CompareRemoteIDs(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
