package kresus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"golang.org/x/sync/singleflight"
)

// Fetcher downloads the Kresus dataset.
type Fetcher interface {
	FetchAll(ctx context.Context) (*AllData, error)
}

// SourceOptions configures a Source.
type SourceOptions struct {
	DefaultCurrency string // used when neither the account nor the mapping sets one. Default: EUR
	Logger          *slog.Logger
}

// Source is a local source backed by Kresus.
type Source struct {
	fetcher         Fetcher
	mapping         *Mapping
	defaultCurrency string
	logger          *slog.Logger

	// fetches shares one download between the concurrent reads of a run.
	fetches singleflight.Group
}

// NewSource creates a Source.
func NewSource(fetcher Fetcher, mapping *Mapping, opts SourceOptions) *Source {
	currency := mapping.DefaultCurrency()
	if currency == "" {
		currency = opts.DefaultCurrency
	}
	if currency == "" {
		currency = "EUR"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		fetcher:         fetcher,
		mapping:         mapping,
		defaultCurrency: currency,
		logger:          logger,
	}
}

func (s *Source) fetch(ctx context.Context) (*AllData, error) {
	v, err, _ := s.fetches.Do("all", func() (any, error) {
		return s.fetcher.FetchAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AllData), nil
}

// ListAccounts returns the mapped Kresus accounts. Accounts that cannot be
// normalized are listed in a *ledger.RecordErrors next to the others.
func (s *Source) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []ledger.Account
	errs := &ledger.RecordErrors{}
	for _, ka := range data.Accounts {
		m, ok := s.mapping.Lookup(ka.DisplayName())
		if !ok {
			s.logger.Debug("Ignoring unmapped account", "account", ka.DisplayName())
			continue
		}

		a, err := ledger.RawAccount{
			Name:     m.Firefly,
			Type:     m.Type,
			Balance:  ka.Balance.String(),
			Currency: ka.Currency,
		}.Normalize(s.defaultCurrency)
		if err != nil {
			errs.Add("kresus account "+ka.DisplayName(), err)
			continue
		}
		accounts = append(accounts, a)
	}

	s.logger.Info("Number of accounts to synchronize from kresus", "count", len(accounts))
	return accounts, errs.ErrOrNil()
}

// ListTransactions returns the transactions of mapped accounts booked on or
// after asOf, with inter-account movements paired into transfers.
func (s *Source) ListTransactions(ctx context.Context, asOf civil.Date) ([]ledger.Transaction, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[int64]bool, len(data.Accounts))
	names := make(map[int64]string, len(data.Accounts))
	for _, ka := range data.Accounts {
		known[ka.ID] = true
		if m, ok := s.mapping.Lookup(ka.DisplayName()); ok {
			names[ka.ID] = m.Firefly
		}
	}

	var transactions []ledger.Transaction
	errs := &ledger.RecordErrors{}
	for _, kt := range data.Transactions {
		label := "kresus transaction " + strconv.FormatInt(kt.ID, 10)

		account, ok := names[kt.AccountID]
		if !ok {
			if !known[kt.AccountID] {
				errs.Add(label, fmt.Errorf("unknown account id %d", kt.AccountID))
			}
			continue
		}

		date, err := ledger.ParseDate(kt.BookingDate())
		if err != nil {
			errs.Add(label, err)
			continue
		}
		if date.Before(asOf) {
			continue
		}

		source, destination := s.mapping.Counterparty(), account
		if kt.Amount.IsNegative() {
			source, destination = account, s.mapping.Counterparty()
		}
		t := ledger.Transaction{
			Date:        date,
			Amount:      kt.Amount,
			Type:        ledger.InferType(kt.Amount),
			Description: kt.Description(),
			Source:      ledger.AccountRef{Name: source},
			Destination: ledger.AccountRef{Name: destination},
		}
		if err := t.Validate(); err != nil {
			errs.Add(label, err)
			continue
		}
		transactions = append(transactions, t)
	}

	slices.SortStableFunc(transactions, byDate)
	transactions = pairTransfers(transactions, s.logger)

	s.logger.Info("Number of transactions to synchronize from kresus", "count", len(transactions))
	return transactions, errs.ErrOrNil()
}

// pairTransfers merges each withdrawal with the first later deposit of the
// same magnitude and date into a transfer. transactions must be sorted by
// date. A deposit back into the withdrawing account is not a transfer and is
// skipped.
func pairTransfers(transactions []ledger.Transaction, logger *slog.Logger) []ledger.Transaction {
	used := make([]bool, len(transactions))
	var transfers []ledger.Transaction

	for i, w := range transactions {
		if used[i] || w.Type != ledger.TransactionTypeWithdrawal {
			continue
		}
		for j := i + 1; j < len(transactions); j++ {
			d := transactions[j]
			if used[j] || d.Type != ledger.TransactionTypeDeposit ||
				!w.Amount.Abs().Equal(d.Amount) || w.Date != d.Date ||
				w.Source.Key() == d.Source.Key() || w.Destination.Key() == d.Destination.Key() {
				continue
			}
			if w.Source.Key() == d.Destination.Key() {
				logger.Warn("Withdrawal and deposit on the same account, not a transfer",
					"account", w.Source.Name, "date", w.Date, "amount", d.Amount.String())
				continue
			}

			logger.Info("Reconciled transfer", "withdrawal", w.Description, "deposit", d.Description)
			transfers = append(transfers, ledger.Transaction{
				Date:        w.Date,
				Amount:      d.Amount,
				Type:        ledger.TransactionTypeTransfer,
				Description: fmt.Sprintf("Transfer from %s to %s", w.Source.Name, d.Destination.Name),
				Source:      w.Source,
				Destination: d.Destination,
			})
			used[i], used[j] = true, true
			break
		}
	}

	out := make([]ledger.Transaction, 0, len(transactions)-len(transfers))
	for i, t := range transactions {
		if !used[i] {
			out = append(out, t)
		}
	}
	out = append(out, transfers...)
	slices.SortStableFunc(out, byDate)
	return out
}

func byDate(a, b ledger.Transaction) int {
	switch {
	case a.Date.Before(b.Date):
		return -1
	case a.Date.After(b.Date):
		return 1
	}
	return 0
}
