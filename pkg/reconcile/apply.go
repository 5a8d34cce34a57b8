package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"golang.org/x/sync/errgroup"
)

// DependencyError marks a transaction that was not submitted because an
// account it references could not be created.
type DependencyError struct {
	Account string
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("account %q was not created: %v", e.Account, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// accountSlot is the pending creation of one account.
// done is closed once remoteID or err is set.
type accountSlot struct {
	done     chan struct{}
	remoteID string
	err      error
}

// accountSlots holds one pending-creation slot per account key.
type accountSlots struct {
	mu    sync.Mutex
	slots map[string]*accountSlot
}

// claim returns the slot for key and whether the caller owns it. Only the
// owner creates the account and must call settle.
func (s *accountSlots) claim(key string) (*accountSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[key]; ok {
		return slot, false
	}
	slot := &accountSlot{done: make(chan struct{})}
	s.slots[key] = slot
	return slot, true
}

func (s *accountSlots) get(key string) *accountSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[key]
}

func (slot *accountSlot) settle(remoteID string, err error) {
	slot.remoteID = remoteID
	slot.err = err
	close(slot.done)
}

// apply executes the plan through a bounded pool. Account operations are
// submitted first; a transaction waits for the slots of the accounts it
// depends on. Failures are recorded per operation and never cancel others.
func (e *Engine) apply(ctx context.Context, plan *Plan, rec *recorder, logger *slog.Logger) {
	slots := &accountSlots{slots: make(map[string]*accountSlot, len(plan.Accounts))}

	// Claim every slot before any transaction is dispatched so that a
	// dependency is never missing.
	type claimed struct {
		op   Operation
		slot *accountSlot
	}
	var accountOps []claimed
	for _, op := range plan.Accounts {
		slot, owner := slots.claim(op.Account.Key())
		if !owner {
			logger.Warn("Duplicate account creation ignored", "account", op.Account.Name)
			continue
		}
		accountOps = append(accountOps, claimed{op: op, slot: slot})
	}

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for _, c := range accountOps {
		g.Go(func() error {
			e.createAccount(ctx, c.op.Account, c.slot, rec, logger)
			return nil
		})
	}

	for _, op := range plan.Transactions {
		g.Go(func() error {
			e.applyTransaction(ctx, op, slots, rec, logger)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Engine) createAccount(ctx context.Context, a ledger.Account, slot *accountSlot, rec *recorder, logger *slog.Logger) {
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	created, err := e.remote.CreateAccount(opCtx, a)
	if err != nil {
		slot.settle("", err)
		logger.Warn("Failed to create account", "account", a.Name, "error", err)
		rec.failed(accountOutcome(OpCreateAccount, a, err))
		return
	}

	a.RemoteID = created.RemoteID
	slot.settle(a.RemoteID, nil)
	logger.Info("Created account", "account", a.Name, "remote_id", a.RemoteID)
	rec.created(accountOutcome(OpCreateAccount, a, nil))
}

func (e *Engine) applyTransaction(ctx context.Context, op Operation, slots *accountSlots, rec *recorder, logger *slog.Logger) {
	t := op.Transaction
	for _, key := range op.DependsOn {
		remoteID, err := waitForAccount(ctx, slots, key)
		if err != nil {
			logger.Warn("Skipping transaction with failed account", "transaction", t.String(), "account", key, "error", err)
			rec.failed(transactionOutcome(op.Kind, t, err))
			return
		}
		if t.Source.RemoteID == "" && refersTo(t.Source, t.Type.SourceTypes(), key) {
			t.Source.RemoteID = remoteID
		}
		if t.Destination.RemoteID == "" && refersTo(t.Destination, t.Type.DestinationTypes(), key) {
			t.Destination.RemoteID = remoteID
		}
	}

	switch op.Kind {
	case OpCreateTransaction:
		e.createTransaction(ctx, t, rec, logger)
	case OpUpdateTransaction:
		e.updateTransaction(ctx, t, rec, logger)
	case OpReplaceTransaction:
		e.replaceTransaction(ctx, t, op.Previous, rec, logger)
	default:
		rec.failed(transactionOutcome(op.Kind, t, fmt.Errorf("unsupported operation %q", op.Kind)))
	}
}

func waitForAccount(ctx context.Context, slots *accountSlots, key string) (string, error) {
	slot := slots.get(key)
	if slot == nil {
		return "", &DependencyError{Account: key, Err: fmt.Errorf("no pending creation")}
	}
	select {
	case <-slot.done:
	case <-ctx.Done():
		return "", &DependencyError{Account: key, Err: ctx.Err()}
	}
	if slot.err != nil {
		return "", &DependencyError{Account: key, Err: slot.err}
	}
	return slot.remoteID, nil
}

func (e *Engine) createTransaction(ctx context.Context, t ledger.Transaction, rec *recorder, logger *slog.Logger) {
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	created, err := e.remote.CreateTransaction(opCtx, t)
	if err != nil {
		logger.Warn("Failed to create transaction", "transaction", t.String(), "error", err)
		rec.failed(transactionOutcome(OpCreateTransaction, t, err))
		return
	}

	t.RemoteID = created.RemoteID
	logger.Info("Created transaction", "transaction", t.String(), "remote_id", t.RemoteID)
	rec.created(transactionOutcome(OpCreateTransaction, t, nil))
}

func (e *Engine) updateTransaction(ctx context.Context, t ledger.Transaction, rec *recorder, logger *slog.Logger) {
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	if _, err := e.remote.UpdateTransaction(opCtx, t.RemoteID, t); err != nil {
		logger.Warn("Failed to update transaction", "remote_id", t.RemoteID, "error", err)
		rec.failed(transactionOutcome(OpUpdateTransaction, t, err))
		return
	}

	logger.Info("Updated transaction", "remote_id", t.RemoteID)
	rec.updated(transactionOutcome(OpUpdateTransaction, t, nil))
}

// replaceTransaction creates the new transaction before deleting the old
// one, so a failure never loses the remote record.
func (e *Engine) replaceTransaction(ctx context.Context, t, previous ledger.Transaction, rec *recorder, logger *slog.Logger) {
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	t.RemoteID = ""
	created, err := e.remote.CreateTransaction(opCtx, t)
	if err != nil {
		t.RemoteID = previous.RemoteID
		logger.Warn("Failed to replace transaction", "remote_id", previous.RemoteID, "error", err)
		rec.failed(transactionOutcome(OpReplaceTransaction, t, err))
		return
	}
	t.RemoteID = created.RemoteID

	if err := e.remote.DeleteTransaction(opCtx, previous.RemoteID); err != nil {
		err = fmt.Errorf("created %s but failed to delete %s: %w", t.RemoteID, previous.RemoteID, err)
		logger.Warn("Failed to delete replaced transaction", "remote_id", previous.RemoteID, "error", err)
		rec.failed(transactionOutcome(OpReplaceTransaction, t, err))
		return
	}

	logger.Info("Replaced transaction", "old_remote_id", previous.RemoteID, "remote_id", t.RemoteID)
	rec.updated(transactionOutcome(OpReplaceTransaction, t, nil))
}
