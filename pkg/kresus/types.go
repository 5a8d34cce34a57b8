// Package kresus reads accounts and transactions from a Kresus instance and
// maps them onto the ledger record model.
package kresus

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AllData is the response of the Kresus "all data" endpoint. Only the parts
// needed for synchronization are decoded.
type AllData struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}

// Account is a Kresus bank account.
type Account struct {
	ID          int64           `json:"id"`
	Label       string          `json:"label"`
	CustomLabel string          `json:"customLabel"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	ImportDate  string          `json:"importDate"`
	Type        string          `json:"type"`
}

// DisplayName returns the custom label when set, the bank label otherwise.
func (a Account) DisplayName() string {
	if s := strings.TrimSpace(a.CustomLabel); s != "" {
		return s
	}
	return strings.TrimSpace(a.Label)
}

// Transaction is a Kresus bank operation. Amounts are signed: debits are
// negative.
type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"accountId"`
	Label       string          `json:"label"`
	RawLabel    string          `json:"rawLabel"`
	CustomLabel string          `json:"customLabel"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	DebitDate   string          `json:"debitDate"`
	Type        string          `json:"type"`
}

// Description returns the custom label when set, the bank label otherwise.
func (t Transaction) Description() string {
	if s := strings.TrimSpace(t.CustomLabel); s != "" {
		return s
	}
	if s := strings.TrimSpace(t.Label); s != "" {
		return s
	}
	return strings.TrimSpace(t.RawLabel)
}

// BookingDate returns the date the operation hit the account, falling back
// to the operation date.
func (t Transaction) BookingDate() string {
	if t.DebitDate != "" {
		return t.DebitDate
	}
	return t.Date
}
