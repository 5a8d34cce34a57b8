package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"
)

var accountTypes = map[string]bool{
	"asset":       true,
	"expense":     true,
	"revenue":     true,
	"liabilities": true,
	"liability":   true,
	"cash":        true,
}

// CreateAccount creates a new account. Names are unique per account type.
func (s *Store) CreateAccount(req firefly.AccountStore) (*firefly.AccountRead, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "The name field is required."}
	}
	if !accountTypes[req.Type] {
		return nil, &ValidationError{Field: "type", Message: "The selected type is invalid."}
	}
	if req.Type == "asset" && req.AccountRole == "" {
		return nil, &ValidationError{Field: "account_role", Message: "The account role field is required."}
	}
	balance := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		if balance, err = decimal.NewFromString(req.OpeningBalance); err != nil {
			return nil, &ValidationError{Field: "opening_balance", Message: "The opening balance must be a number."}
		}
	}

	var account *firefly.AccountRead
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketAccounts))
		existing, err := findAccount(b, req.Name, req.Type)
		if err != nil {
			return err
		}
		if existing != nil {
			return &ValidationError{Field: "name", Message: "This account name is already in use."}
		}
		account, err = insertAccount(b, req.Name, req.Type, req.AccountRole, req.CurrencyCode, balance)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(id int64) (*firefly.AccountRead, error) {
	var account firefly.AccountRead
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket([]byte(BucketAccounts)), id, &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts retrieves all accounts, optionally filtered by type.
// "all" or an empty type lists everything.
func (s *Store) ListAccounts(accountType string) ([]firefly.AccountRead, error) {
	var accounts []firefly.AccountRead
	err := s.db.View(func(tx *bolt.Tx) error {
		return each(tx.Bucket([]byte(BucketAccounts)), func(a *firefly.AccountRead) error {
			if accountType == "" || accountType == "all" || a.Attributes.Type == accountType {
				accounts = append(accounts, *a)
			}
			return nil
		})
	})
	return accounts, err
}

func findAccount(b *bolt.Bucket, name, accountType string) (*firefly.AccountRead, error) {
	var found *firefly.AccountRead
	err := each(b, func(a *firefly.AccountRead) error {
		if found == nil && a.Attributes.Type == accountType && strings.EqualFold(a.Attributes.Name, name) {
			found = a
		}
		return nil
	})
	return found, err
}

func insertAccount(b *bolt.Bucket, name, accountType, role, currency string, balance decimal.Decimal) (*firefly.AccountRead, error) {
	id, err := nextID(b)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}
	if currency == "" {
		currency = "EUR"
	}
	now := time.Now().Format(time.RFC3339)
	account := &firefly.AccountRead{
		Type: "accounts",
		ID:   strconv.FormatInt(id, 10),
		Attributes: firefly.AccountAttributes{
			Name:           name,
			Type:           accountType,
			AccountRole:    role,
			CurrencyCode:   currency,
			CurrentBalance: balance.StringFixed(2),
			Active:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	if err := put(b, id, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return account, nil
}

// adjustBalance adds delta to the balance of account id.
func adjustBalance(b *bolt.Bucket, id string, delta decimal.Decimal) error {
	key, err := ParseID(id)
	if err != nil {
		return err
	}
	var account firefly.AccountRead
	if err := get(b, key, &account); err != nil {
		return err
	}
	balance, err := decimal.NewFromString(account.Attributes.CurrentBalance)
	if err != nil {
		balance = decimal.Zero
	}
	account.Attributes.CurrentBalance = balance.Add(delta).StringFixed(2)
	return put(b, key, &account)
}
