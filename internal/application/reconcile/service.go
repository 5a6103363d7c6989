// Package reconcile runs the full receipt to transaction pipeline:
// normalize, generate candidates, score, resolve and commit.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/receipt-ledger/internal/application/ledger"
	"github.com/eshaffer321/receipt-ledger/internal/domain/candidates"
	"github.com/eshaffer321/receipt-ledger/internal/domain/matcher"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
	"github.com/eshaffer321/receipt-ledger/internal/domain/scorer"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/audit"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// Options controls a single run
type Options struct {
	DryRun      bool
	Reopen      []string // transaction ids whose MATCHED entry may be replaced
	OperationID string
	Accounts    map[string]ledger.AccountInfo
}

// Store is the storage the service reads prior state from and commits to.
type Store interface {
	ledger.TxRunner
	CurrentMatches(ctx context.Context) ([]storage.LedgerEntry, error)
}

// Service runs reconciliation under one validated policy.
type Service struct {
	policy  policy.Policy
	store   Store
	scorer  *scorer.Scorer
	matcher *matcher.Matcher
	writer  *ledger.Writer
	logger  *slog.Logger

	newRunID func() string
	now      func() time.Time
}

// NewService validates p and wires the pipeline. An invalid policy returns a
// *model.ConfigurationError.
func NewService(p policy.Policy, store Store, sink audit.Sink, logger *slog.Logger) (*Service, error) {
	valid, err := p.Validate()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		policy:   valid,
		store:    store,
		scorer:   scorer.New(valid),
		matcher:  matcher.NewMatcher(valid),
		writer:   ledger.NewWriter(store, sink, logger),
		logger:   logger.With("system", "reconcile"),
		newRunID: uuid.NewString,
		now:      time.Now,
	}, nil
}

// Policy returns the validated policy the service runs with.
func (s *Service) Policy() policy.Policy {
	return s.policy
}

// ResolveAndCommit reconciles one batch and commits the outcome atomically.
//
// Malformed records are reported in the result and never abort the run.
// Receipts and transactions the ledger already matches are left out of
// matching unless their transaction is listed in opts.Reopen. On error the
// returned result, when non-nil, carries the counts reached before the abort.
func (s *Service) ResolveAndCommit(
	ctx context.Context,
	receipts []model.Receipt,
	transactions []model.Transaction,
	opts Options,
) (*ledger.CommitResult, error) {
	startedAt := s.now().UTC()
	runID := s.newRunID()
	logger := s.logger.With("run_id", runID)
	if opts.OperationID != "" {
		logger = logger.With("operation_id", opts.OperationID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Starting match run",
		"receipts", len(receipts),
		"transactions", len(transactions),
		"dry_run", opts.DryRun,
		"reopen", len(opts.Reopen),
	)

	batch := normalizer.NormalizeBatch(receipts, transactions, s.policy.DefaultCurrency)
	for _, ie := range batch.Invalid {
		logger.Warn("Skipping invalid record", "kind", ie.Kind, "record_id", ie.RecordID, "field", ie.Field, "error", ie.Err)
	}

	partial := &ledger.CommitResult{
		RunID:          runID,
		Invalid:        len(batch.Invalid),
		DryRun:         opts.DryRun,
		InvalidRecords: batch.Invalid,
	}

	current, err := s.store.CurrentMatches(ctx)
	if err != nil {
		return partial, &model.PersistenceError{Op: "load current matches", Err: err}
	}
	open, skipped := excludeMatched(batch, current, opts.Reopen)
	partial.Skipped = skipped
	if skipped > 0 {
		logger.Debug("Receipts already matched", "count", skipped)
	}

	set := candidates.Generate(open.Receipts, open.Transactions, s.policy)
	logger.Debug("Generated candidates",
		"pairs", len(set.Pairs),
		"receipts_without_candidates", len(set.Unmatched),
	)

	scored, err := s.scorer.ScoreAll(ctx, set.Pairs)
	if err != nil {
		logger.Warn("Match run aborted while scoring", "error", err)
		return partial, err
	}

	decisions := s.matcher.Resolve(runID, scored, set.Unmatched)
	summary := matcher.Summarize(decisions)
	logger.Info("Resolved decisions",
		"matched", summary.Matched,
		"ambiguous", summary.Ambiguous,
		"unmatched", summary.Unmatched,
	)

	if err := ctx.Err(); err != nil {
		partial.Matched, partial.Ambiguous, partial.Unmatched = summary.Matched, summary.Ambiguous, summary.Unmatched
		partial.Decisions = decisions
		return partial, err
	}

	result, err := s.writer.Commit(ctx, ledger.Input{
		RunID:          runID,
		OperationID:    opts.OperationID,
		StartedAt:      startedAt,
		Policy:         s.policy.Fingerprint(),
		Decisions:      decisions,
		Receipts:       receipts,
		Postings:       postings(batch.Transactions, transactions),
		Invalid:        batch.Invalid,
		Reopen:         opts.Reopen,
		Accounts:       opts.Accounts,
		DryRun:         opts.DryRun,
		ReceiptsIn:     len(receipts),
		TransactionsIn: len(transactions),
	})
	if result != nil {
		result.Skipped = skipped
	}
	if err != nil {
		logger.Error("Match run failed", "error", err)
		return result, err
	}

	logger.Info("Match run committed",
		"entries_created", result.EntriesCreated,
		"entries_superseded", result.EntriesSuperseded,
		"reopened", result.Reopened,
		"dry_run", result.DryRun,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// excludeMatched drops receipts and transactions held by current MATCHED
// entries, except those whose transaction is being reopened.
func excludeMatched(batch normalizer.Batch, current []storage.LedgerEntry, reopen []string) (normalizer.Batch, int) {
	reopened := make(map[string]bool, len(reopen))
	for _, id := range reopen {
		reopened[id] = true
	}

	heldTx := make(map[string]bool, len(current))
	heldReceipts := make(map[string]bool, len(current))
	for _, e := range current {
		if reopened[e.TransactionID] {
			continue
		}
		heldTx[e.TransactionID] = true
		heldReceipts[e.ReceiptID] = true
	}

	out := normalizer.Batch{Invalid: batch.Invalid}
	skipped := 0
	for _, r := range batch.Receipts {
		if heldReceipts[r.ID] {
			skipped++
			continue
		}
		out.Receipts = append(out.Receipts, r)
	}
	for _, t := range batch.Transactions {
		if heldTx[t.ID] {
			continue
		}
		out.Transactions = append(out.Transactions, t)
	}
	return out, skipped
}

// postings pairs each normalized transaction with its first raw occurrence.
func postings(records []model.NormalizedRecord, raw []model.Transaction) []ledger.Posting {
	byID := make(map[string]model.Transaction, len(raw))
	for _, t := range raw {
		id := strings.TrimSpace(t.ID)
		if _, dup := byID[id]; !dup {
			byID[id] = t
		}
	}

	out := make([]ledger.Posting, 0, len(records))
	for _, rec := range records {
		out = append(out, ledger.Posting{Transaction: byID[rec.ID], Record: rec})
	}
	return out
}
