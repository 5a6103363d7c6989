// Package audit records what each match run did.
//
// The ledger writer emits exactly one RunSummary per run and one Decision
// event per receipt. Sinks only record; they never format text for people
// and never influence the run's outcome.
package audit

//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks -source=sink.go Sink

import (
	"context"
	"errors"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// RunSummary is the per-run audit record.
type RunSummary struct {
	RunID             string        `json:"run_id"`
	OperationID       string        `json:"operation_id,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at"`
	Elapsed           time.Duration `json:"elapsed_ns"`
	Matched           int           `json:"matched"`
	Ambiguous         int           `json:"ambiguous"`
	Unmatched         int           `json:"unmatched"`
	Invalid           int           `json:"invalid"`
	EntriesCreated    int           `json:"entries_created"`
	EntriesSuperseded int           `json:"entries_superseded"`
	Reopened          int           `json:"reopened"`
	DryRun            bool          `json:"dry_run"`
	Error             string        `json:"error,omitempty"`
}

// Sink receives audit events.
type Sink interface {
	RunCompleted(ctx context.Context, summary RunSummary) error
	Decision(ctx context.Context, decision model.MatchDecision) error
}

// MultiSink fans events out to every sink and joins their errors.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (m MultiSink) RunCompleted(ctx context.Context, summary RunSummary) error {
	var errs []error
	for _, s := range m {
		if err := s.RunCompleted(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Decision(ctx context.Context, decision model.MatchDecision) error {
	var errs []error
	for _, s := range m {
		if err := s.Decision(ctx, decision); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RunCompleted(context.Context, RunSummary) error      { return nil }
func (Nop) Decision(context.Context, model.MatchDecision) error { return nil }
