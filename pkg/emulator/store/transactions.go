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

// CreateTransaction stores a transaction group. Accounts referenced only by
// name are resolved, and expense or revenue accounts are created on demand.
func (s *Store) CreateTransaction(req firefly.TransactionStore) (*firefly.TransactionRead, error) {
	if len(req.Transactions) == 0 {
		return nil, &ValidationError{Field: "transactions", Message: "Need at least one transaction."}
	}

	var group *firefly.TransactionRead
	err := s.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket([]byte(BucketAccounts))
		b := tx.Bucket([]byte(BucketTransactions))

		splits, err := resolveSplits(accounts, req.Transactions)
		if err != nil {
			return err
		}
		id, err := nextID(b)
		if err != nil {
			return fmt.Errorf("failed to generate ID: %w", err)
		}

		now := time.Now().Format(time.RFC3339)
		for i := range splits {
			splits[i].TransactionJournalID = strconv.FormatInt(id, 10)
		}
		group = &firefly.TransactionRead{
			Type: "transactions",
			ID:   strconv.FormatInt(id, 10),
			Attributes: firefly.TransactionAttributes{
				GroupTitle:   req.GroupTitle,
				CreatedAt:    now,
				UpdatedAt:    now,
				Transactions: splits,
			},
		}
		if err := applyBalances(accounts, splits, decimal.NewFromInt(1)); err != nil {
			return err
		}
		return put(b, id, group)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetTransaction retrieves a transaction group by ID.
func (s *Store) GetTransaction(id int64) (*firefly.TransactionRead, error) {
	var group firefly.TransactionRead
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket([]byte(BucketTransactions)), id, &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// ListTransactions retrieves the groups whose first split is dated between
// start and end inclusive (YYYY-MM-DD, empty for unbounded), in id order.
func (s *Store) ListTransactions(start, end string) ([]firefly.TransactionRead, error) {
	var groups []firefly.TransactionRead
	err := s.db.View(func(tx *bolt.Tx) error {
		return each(tx.Bucket([]byte(BucketTransactions)), func(g *firefly.TransactionRead) error {
			if len(g.Attributes.Transactions) == 0 {
				return nil
			}
			day := dayOf(g.Attributes.Transactions[0].Date)
			if (start == "" || day >= start) && (end == "" || day <= end) {
				groups = append(groups, *g)
			}
			return nil
		})
	})
	return groups, err
}

// UpdateTransaction replaces the splits of a group. The type of a split
// cannot change.
func (s *Store) UpdateTransaction(id int64, req firefly.TransactionUpdate) (*firefly.TransactionRead, error) {
	if len(req.Transactions) == 0 {
		return nil, &ValidationError{Field: "transactions", Message: "Need at least one transaction."}
	}

	var group firefly.TransactionRead
	err := s.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket([]byte(BucketAccounts))
		b := tx.Bucket([]byte(BucketTransactions))
		if err := get(b, id, &group); err != nil {
			return err
		}

		for i, split := range req.Transactions {
			if i < len(group.Attributes.Transactions) && split.Type != "" &&
				split.Type != group.Attributes.Transactions[i].Type {
				return &ValidationError{Field: "transactions." + strconv.Itoa(i) + ".type", Message: "The transaction type cannot be changed."}
			}
		}
		splits, err := resolveSplits(accounts, req.Transactions)
		if err != nil {
			return err
		}

		if err := applyBalances(accounts, group.Attributes.Transactions, decimal.NewFromInt(-1)); err != nil {
			return err
		}
		if err := applyBalances(accounts, splits, decimal.NewFromInt(1)); err != nil {
			return err
		}
		for i := range splits {
			splits[i].TransactionJournalID = group.ID
		}
		group.Attributes.Transactions = splits
		group.Attributes.UpdatedAt = time.Now().Format(time.RFC3339)
		return put(b, id, &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteTransaction removes a group and reverts its effect on balances.
func (s *Store) DeleteTransaction(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket([]byte(BucketAccounts))
		b := tx.Bucket([]byte(BucketTransactions))
		var group firefly.TransactionRead
		if err := get(b, id, &group); err != nil {
			return err
		}
		if err := applyBalances(accounts, group.Attributes.Transactions, decimal.NewFromInt(-1)); err != nil {
			return err
		}
		return b.Delete(itob(id))
	})
}

// resolveSplits validates splits and fills in account ids and names.
func resolveSplits(accounts *bolt.Bucket, in []firefly.TransactionSplit) ([]firefly.TransactionSplit, error) {
	out := make([]firefly.TransactionSplit, len(in))
	for i, split := range in {
		field := "transactions." + strconv.Itoa(i)
		switch split.Type {
		case "withdrawal", "deposit", "transfer":
		default:
			return nil, &ValidationError{Field: field + ".type", Message: "The selected type is invalid."}
		}
		if dayOf(split.Date) == "" {
			return nil, &ValidationError{Field: field + ".date", Message: "The date field is required."}
		}
		amount, err := decimal.NewFromString(split.Amount)
		if err != nil || !amount.IsPositive() {
			return nil, &ValidationError{Field: field + ".amount", Message: "The amount must be more than zero."}
		}
		if strings.TrimSpace(split.Description) == "" {
			return nil, &ValidationError{Field: field + ".description", Message: "The description field is required."}
		}

		sourceType, destinationType := "asset", "asset"
		switch split.Type {
		case "withdrawal":
			destinationType = "expense"
		case "deposit":
			sourceType = "revenue"
		}

		source, err := resolveAccount(accounts, split.SourceID, split.SourceName, sourceType)
		if err != nil {
			return nil, fieldError(err, field+".source_id")
		}
		destination, err := resolveAccount(accounts, split.DestinationID, split.DestinationName, destinationType)
		if err != nil {
			return nil, fieldError(err, field+".destination_id")
		}

		split.Amount = amount.StringFixed(2)
		split.SourceID, split.SourceName = source.ID, source.Attributes.Name
		split.DestinationID, split.DestinationName = destination.ID, destination.Attributes.Name
		if split.CurrencyCode == "" {
			split.CurrencyCode = source.Attributes.CurrencyCode
		}
		out[i] = split
	}
	return out, nil
}

// resolveAccount finds an account by id, then by name. An account given by id
// must fit the role of its split side. Missing expense and revenue accounts
// are created.
func resolveAccount(accounts *bolt.Bucket, id, name, accountType string) (*firefly.AccountRead, error) {
	if id != "" {
		key, err := ParseID(id)
		if err != nil {
			return nil, err
		}
		var account firefly.AccountRead
		if err := get(accounts, key, &account); err != nil {
			return nil, err
		}
		if !fitsRole(account.Attributes.Type, accountType) {
			return nil, &ValidationError{Message: "This value is invalid for this field."}
		}
		return &account, nil
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Message: "An account id or name is required."}
	}

	account, err := findAccount(accounts, name, accountType)
	if err != nil || account != nil {
		return account, err
	}
	if accountType == "asset" {
		for _, liability := range []string{"liabilities", "liability"} {
			if account, err = findAccount(accounts, name, liability); err != nil || account != nil {
				return account, err
			}
		}
		return nil, &ValidationError{Message: fmt.Sprintf("Could not find a valid account named %q.", name)}
	}
	return insertAccount(accounts, name, accountType, "", "", decimal.Zero)
}

// fitsRole reports whether an account of type accountType may stand on a
// split side that requires role. Liabilities stand in for asset accounts.
func fitsRole(accountType, role string) bool {
	if accountType == role {
		return true
	}
	return role == "asset" && (accountType == "liabilities" || accountType == "liability")
}

func fieldError(err error, field string) error {
	switch e := err.(type) {
	case *ValidationError:
		return &ValidationError{Field: field, Message: e.Message}
	}
	if err == ErrNotFound || err == ErrInvalidID {
		return &ValidationError{Field: field, Message: "This value is invalid for this field."}
	}
	return err
}

// applyBalances moves the split amounts, multiplied by sign, between the
// balances of the referenced accounts.
func applyBalances(accounts *bolt.Bucket, splits []firefly.TransactionSplit, sign decimal.Decimal) error {
	for _, split := range splits {
		amount, err := decimal.NewFromString(split.Amount)
		if err != nil {
			return fmt.Errorf("invalid stored amount %q: %w", split.Amount, err)
		}
		amount = amount.Mul(sign)
		if err := adjustBalance(accounts, split.SourceID, amount.Neg()); err != nil {
			return err
		}
		if err := adjustBalance(accounts, split.DestinationID, amount); err != nil {
			return err
		}
	}
	return nil
}

// dayOf returns the YYYY-MM-DD part of a date or timestamp.
func dayOf(date string) string {
	if len(date) < len("2006-01-02") {
		return ""
	}
	if _, err := time.Parse("2006-01-02", date[:10]); err != nil {
		return ""
	}
	return date[:10]
}
