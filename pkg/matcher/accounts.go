// Package matcher aligns a local and a remote collection of the same entity
// kind and classifies every element as matched, local-only or remote-only.
package matcher

import (
	"log/slog"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
)

// AccountPair is a local account and the remote account it corresponds to.
type AccountPair struct {
	Local  ledger.Account
	Remote ledger.Account
}

// AccountMatch is the classification of two account collections.
type AccountMatch struct {
	Pairs      []AccountPair
	LocalOnly  []ledger.Account
	RemoteOnly []ledger.Account
}

// MatchAccounts matches accounts on their type and normalized name.
// Local accounts sharing both collapse into the first one; remote accounts
// sharing both resolve to the lowest remote id, the others are remote-only.
// Accounts of different types never match, even with equal names.
func MatchAccounts(local, remote []ledger.Account, logger *slog.Logger) AccountMatch {
	if logger == nil {
		logger = slog.Default()
	}

	byKey := make(map[string]ledger.Account, len(remote))
	for _, r := range remote {
		key := r.Key()
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = r
			continue
		}
		logger.Warn("Duplicate remote account name",
			"name", r.Name,
			"type", r.Type,
			"remote_id", r.RemoteID,
			"other_remote_id", existing.RemoteID,
		)
		if ledger.CompareRemoteIDs(r.RemoteID, existing.RemoteID) < 0 {
			byKey[key] = r
		}
	}

	var result AccountMatch
	seen := make(map[string]bool, len(local))
	consumed := make(map[string]bool, len(local))
	for _, l := range local {
		key := l.Key()
		if seen[key] {
			logger.Debug("Duplicate local account name collapsed", "name", l.Name)
			continue
		}
		seen[key] = true

		r, ok := byKey[key]
		if !ok {
			result.LocalOnly = append(result.LocalOnly, l)
			continue
		}
		consumed[key] = true
		l.RemoteID = r.RemoteID
		result.Pairs = append(result.Pairs, AccountPair{Local: l, Remote: r})
	}

	for _, r := range remote {
		key := r.Key()
		if consumed[key] && byKey[key].RemoteID == r.RemoteID {
			continue
		}
		result.RemoteOnly = append(result.RemoteOnly, r)
	}

	return result
}
