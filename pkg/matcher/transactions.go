package matcher

import (
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/similarity"
)

// DefaultThreshold is the minimum description score for a match.
const DefaultThreshold = 80

// Options configures transaction matching.
type Options struct {
	// DateToleranceDays is how many days apart two dates may be and still
	// count as equal. Zero means exact equality.
	DateToleranceDays int
	// Threshold is the minimum description score in [1,100]. Zero or less
	// means DefaultThreshold; use 1 to accept any description.
	Threshold int
	// Similarity scores descriptions. Nil means similarity.Default.
	Similarity similarity.Func
	Logger     *slog.Logger
}

// Matcher matches local transactions against remote ones.
type Matcher struct {
	tolerance  int
	threshold  int
	similarity similarity.Func
	logger     *slog.Logger
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	m := &Matcher{
		tolerance:  max(opts.DateToleranceDays, 0),
		threshold:  opts.Threshold,
		similarity: opts.Similarity,
		logger:     opts.Logger,
	}
	if m.threshold <= 0 {
		m.threshold = DefaultThreshold
	}
	if m.similarity == nil {
		m.similarity = similarity.Default
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// TransactionPair is a local transaction and the remote transaction accepted
// as the same real-world operation. Local.RemoteID is set to Remote.RemoteID.
type TransactionPair struct {
	Local  ledger.Transaction
	Remote ledger.Transaction
	Score  int
}

// TransactionMatch is the classification of two transaction collections.
type TransactionMatch struct {
	Pairs      []TransactionPair
	LocalOnly  []ledger.Transaction
	RemoteOnly []ledger.Transaction
}

// MatchTransactions classifies every local and remote transaction.
//
// A remote transaction is a candidate for a local one when the amounts are
// equal and the dates lie within the tolerance. The candidate with the best
// description score at or above the threshold wins; ties go to the lowest
// remote id. Local transactions are processed in order and each remote
// transaction is consumed at most once.
func (m *Matcher) MatchTransactions(local, remote []ledger.Transaction) TransactionMatch {
	var result TransactionMatch
	consumed := make([]bool, len(remote))

	for _, l := range local {
		bestScore := -1
		var best []int

		for i, r := range remote {
			if consumed[i] || !l.Amount.Equal(r.Amount) || !m.datesMatch(l.Date, r.Date) {
				continue
			}
			score := m.similarity(l.Description, r.Description)
			if score < m.threshold {
				m.logger.Debug("Candidate below threshold",
					"local", l.String(),
					"remote_id", r.RemoteID,
					"score", score,
				)
				continue
			}
			switch {
			case score > bestScore:
				bestScore = score
				best = []int{i}
			case score == bestScore:
				best = append(best, i)
			}
		}

		if len(best) == 0 {
			result.LocalOnly = append(result.LocalOnly, l)
			continue
		}

		chosen := best[0]
		for _, i := range best[1:] {
			if ledger.CompareRemoteIDs(remote[i].RemoteID, remote[chosen].RemoteID) < 0 {
				chosen = i
			}
		}
		if len(best) > 1 {
			ids := make([]string, len(best))
			for j, i := range best {
				ids[j] = remote[i].RemoteID
			}
			tie := &ledger.AmbiguousMatchError{Local: l, Candidates: ids, Chosen: remote[chosen].RemoteID, Score: bestScore}
			m.logger.Debug("Tie-break applied", "error", tie)
		}

		consumed[chosen] = true
		l.RemoteID = remote[chosen].RemoteID
		result.Pairs = append(result.Pairs, TransactionPair{Local: l, Remote: remote[chosen], Score: bestScore})
	}

	for i, r := range remote {
		if !consumed[i] {
			result.RemoteOnly = append(result.RemoteOnly, r)
		}
	}

	return result
}

func (m *Matcher) datesMatch(a, b civil.Date) bool {
	days := a.DaysSince(b)
	if days < 0 {
		days = -days
	}
	return days <= m.tolerance
}
