package ledger

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a record is malformed.
// The record is skipped and reported; the sync continues.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// GatewayError is returned when the remote ledger answers with a non-success
// status or cannot be reached (Status 0).
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("gateway error: %s", e.Message)
	}
	return fmt.Sprintf("gateway error (status %d): %s", e.Status, e.Message)
}

// AmbiguousMatchError describes a tie between remote candidates that was
// resolved by the lowest-remote-id rule. It is only ever logged.
type AmbiguousMatchError struct {
	Local      Transaction
	Candidates []string // remote ids sharing the best score
	Chosen     string
	Score      int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for %s: remote ids %s scored %d, chose %s",
		e.Local, strings.Join(e.Candidates, ","), e.Score, e.Chosen)
}

// Rejected pairs a raw record label with the reason it was rejected.
type Rejected struct {
	Record string
	Err    error
}

// RecordErrors lists records rejected while reading a source. A source
// returning *RecordErrors together with records means the listed ones were
// dropped and the rest are usable.
type RecordErrors struct {
	Rejected []Rejected
}

// Add appends a rejected record.
func (e *RecordErrors) Add(record string, err error) {
	e.Rejected = append(e.Rejected, Rejected{Record: record, Err: err})
}

// ErrOrNil returns e when it holds at least one rejection, nil otherwise.
func (e *RecordErrors) ErrOrNil() error {
	if e == nil || len(e.Rejected) == 0 {
		return nil
	}
	return e
}

func (e *RecordErrors) Error() string {
	if len(e.Rejected) == 1 {
		return fmt.Sprintf("1 record rejected: %s: %v", e.Rejected[0].Record, e.Rejected[0].Err)
	}
	return fmt.Sprintf("%d records rejected", len(e.Rejected))
}
