package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
)

// fakeLedger is an in-memory RemoteLedger recording every mutation.
type fakeLedger struct {
	mu           sync.Mutex
	accounts     []ledger.Account
	transactions []ledger.Transaction
	nextID       int
	calls        []string

	listErr         error
	failAccount     func(a ledger.Account) error
	failTransaction func(t ledger.Transaction) error

	createdRefs            []ledger.Transaction
	listedStart, listedEnd civil.Date
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{nextID: 100}
}

func (f *fakeLedger) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeLedger) addAccount(a ledger.Account) ledger.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.RemoteID == "" {
		a.RemoteID = f.id()
	}
	f.accounts = append(f.accounts, a)
	return a
}

func (f *fakeLedger) addTransaction(t ledger.Transaction) ledger.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.RemoteID == "" {
		t.RemoteID = f.id()
	}
	f.transactions = append(f.transactions, t)
	return t
}

func (f *fakeLedger) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLedger) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ledger.Account(nil), f.accounts...), nil
}

func (f *fakeLedger) ListTransactions(ctx context.Context, start, end civil.Date) ([]ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.listedStart, f.listedEnd = start, end
	var out []ledger.Transaction
	for _, t := range f.transactions {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLedger) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create_account:"+a.Name)
	if f.failAccount != nil {
		if err := f.failAccount(a); err != nil {
			return ledger.Account{}, err
		}
	}
	a.RemoteID = f.id()
	f.accounts = append(f.accounts, a)
	return a, nil
}

func (f *fakeLedger) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create_transaction:"+t.Description)
	if f.failTransaction != nil {
		if err := f.failTransaction(t); err != nil {
			return ledger.Transaction{}, err
		}
	}
	f.createdRefs = append(f.createdRefs, t)
	t.RemoteID = f.id()
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeLedger) UpdateTransaction(ctx context.Context, remoteID string, t ledger.Transaction) (ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update_transaction:"+remoteID)
	for i := range f.transactions {
		if f.transactions[i].RemoteID == remoteID {
			t.RemoteID = remoteID
			f.transactions[i] = t
			return t, nil
		}
	}
	return ledger.Transaction{}, &ledger.GatewayError{Status: 404, Message: "not found"}
}

func (f *fakeLedger) DeleteTransaction(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete_transaction:"+remoteID)
	for i := range f.transactions {
		if f.transactions[i].RemoteID == remoteID {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return &ledger.GatewayError{Status: 404, Message: fmt.Sprintf("transaction %s not found", remoteID)}
}

// fakeSource is a LocalSource returning fixed records.
type fakeSource struct {
	accounts     []ledger.Account
	transactions []ledger.Transaction
	err          error
	asOf         civil.Date
}

func (s *fakeSource) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.accounts, nil
}

func (s *fakeSource) ListTransactions(ctx context.Context, asOf civil.Date) ([]ledger.Transaction, error) {
	s.asOf = asOf
	return s.transactions, s.err
}

// captureReporter keeps the results it receives.
type captureReporter struct {
	mu      sync.Mutex
	results []*SyncResult
}

func (r *captureReporter) Report(ctx context.Context, result *SyncResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}
