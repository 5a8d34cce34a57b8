package reconcile

import (
	"fmt"
	"strings"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/matcher"
)

// Operation is one planned change to the remote ledger.
type Operation struct {
	Kind OpKind
	// Account is the account to create for OpCreateAccount.
	Account ledger.Account
	// Transaction is the desired state of the transaction. For updates and
	// replacements its RemoteID is the id of the remote transaction.
	Transaction ledger.Transaction
	// Previous is the remote transaction being updated or replaced.
	Previous ledger.Transaction
	// DependsOn lists the keys (ledger.AccountKey) of accounts created in
	// the same run that the transaction references.
	DependsOn []string
}

func (op Operation) String() string {
	switch op.Kind {
	case OpCreateAccount:
		return fmt.Sprintf("%s %s", op.Kind, op.Account)
	case OpCreateTransaction:
		if len(op.DependsOn) > 0 {
			return fmt.Sprintf("%s %s (after %s)", op.Kind, op.Transaction, strings.Join(op.DependsOn, ", "))
		}
	}
	return fmt.Sprintf("%s %s", op.Kind, op.Transaction)
}

// Plan is the set of operations of a run.
type Plan struct {
	Accounts     []Operation
	Transactions []Operation
	// Unchanged lists matched transactions equal on both sides.
	Unchanged []ledger.Transaction
}

// Count returns the number of planned operations of the given kind.
func (p *Plan) Count(kind OpKind) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, op := range p.Accounts {
		if op.Kind == kind {
			n++
		}
	}
	for _, op := range p.Transactions {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of planned operations.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Accounts) + len(p.Transactions)
}

type accountEntry struct {
	remoteID string
	pending  bool // created in this run
}

// accountIndex resolves account references by account type and normalized
// name (ledger.AccountKey).
type accountIndex map[string]accountEntry

func newAccountIndex(match matcher.AccountMatch, remote []ledger.Account) accountIndex {
	idx := make(accountIndex, len(remote)+len(match.LocalOnly))
	for _, r := range remote {
		key := r.Key()
		if e, ok := idx[key]; ok && ledger.CompareRemoteIDs(e.remoteID, r.RemoteID) <= 0 {
			continue
		}
		idx[key] = accountEntry{remoteID: r.RemoteID}
	}
	for _, p := range match.Pairs {
		idx[p.Local.Key()] = accountEntry{remoteID: p.Remote.RemoteID}
	}
	for _, l := range match.LocalOnly {
		idx[l.Key()] = accountEntry{pending: true}
	}
	return idx
}

// resolve attaches the remote id of the first known account of one of types
// named by ref. When that account is created in this run, its key is returned
// as a dependency instead. A ref matching no account keeps its name only.
func (idx accountIndex) resolve(ref ledger.AccountRef, types []ledger.AccountType) (ledger.AccountRef, string) {
	if ref.RemoteID != "" {
		return ref, ""
	}
	for _, t := range types {
		key := ledger.AccountKey(ref.Name, t)
		e, ok := idx[key]
		switch {
		case !ok:
			continue
		case e.pending:
			return ref, key
		}
		ref.RemoteID = e.remoteID
		return ref, ""
	}
	return ref, ""
}

func (idx accountIndex) resolveTransaction(t ledger.Transaction) (ledger.Transaction, []string) {
	var deps []string
	var dep string
	if t.Source, dep = idx.resolve(t.Source, t.Type.SourceTypes()); dep != "" {
		deps = append(deps, dep)
	}
	if t.Destination, dep = idx.resolve(t.Destination, t.Type.DestinationTypes()); dep != "" && (len(deps) == 0 || deps[0] != dep) {
		deps = append(deps, dep)
	}
	return t, deps
}

// refersTo reports whether ref, standing on a side that accepts types, names
// the account identified by key.
func refersTo(ref ledger.AccountRef, types []ledger.AccountType, key string) bool {
	for _, t := range types {
		if ledger.AccountKey(ref.Name, t) == key {
			return true
		}
	}
	return false
}

// buildPlan turns match results into operations.
func buildPlan(accounts matcher.AccountMatch, transactions matcher.TransactionMatch, idx accountIndex) *Plan {
	plan := &Plan{}

	for _, a := range accounts.LocalOnly {
		plan.Accounts = append(plan.Accounts, Operation{Kind: OpCreateAccount, Account: a})
	}

	for _, t := range transactions.LocalOnly {
		resolved, deps := idx.resolveTransaction(t)
		plan.Transactions = append(plan.Transactions, Operation{
			Kind:        OpCreateTransaction,
			Transaction: resolved,
			DependsOn:   deps,
		})
	}

	for _, p := range transactions.Pairs {
		kind := compareTransactions(p.Local, p.Remote)
		if kind == OpSkip {
			plan.Unchanged = append(plan.Unchanged, p.Local)
			continue
		}
		resolved, deps := idx.resolveTransaction(p.Local)
		resolved.RemoteID = p.Remote.RemoteID
		plan.Transactions = append(plan.Transactions, Operation{
			Kind:        kind,
			Transaction: resolved,
			Previous:    p.Remote,
			DependsOn:   deps,
		})
	}

	return plan
}

// compareTransactions decides what a matched pair needs. A type change cannot
// be applied in place and requires a replacement.
func compareTransactions(local, remote ledger.Transaction) OpKind {
	switch {
	case local.Type != remote.Type:
		return OpReplaceTransaction
	case !local.Amount.Equal(remote.Amount),
		local.Date != remote.Date,
		strings.TrimSpace(local.Description) != strings.TrimSpace(remote.Description):
		return OpUpdateTransaction
	}
	return OpSkip
}

// balanceDrifts lists matched accounts whose balances disagree.
func balanceDrifts(pairs []matcher.AccountPair) []BalanceDrift {
	var drifts []BalanceDrift
	for _, p := range pairs {
		if p.Local.CurrentBalance.Equal(p.Remote.CurrentBalance) {
			continue
		}
		drifts = append(drifts, BalanceDrift{
			Account: p.Local,
			Local:   p.Local.CurrentBalance,
			Remote:  p.Remote.CurrentBalance,
		})
	}
	return drifts
}
