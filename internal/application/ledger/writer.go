// Package ledger persists match decisions.
//
// The Writer is the only component that writes ledger state. Every commit
// runs inside one storage transaction: ledger entries, review items and the
// match run row either all land or none do.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/matcher"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/audit"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// errDryRun forces the rollback of a dry run after everything was applied.
var errDryRun = errors.New("dry run")

// errReplayed stops a retried commit of a run that is already in the ledger.
var errReplayed = errors.New("run already committed")

// TxRunner is the storage capability the writer needs.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx storage.LedgerTx) error) error
}

// Writer commits match decisions to the ledger.
type Writer struct {
	store  TxRunner
	sink   audit.Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a writer. A nil sink discards audit events.
func NewWriter(store TxRunner, sink audit.Sink, logger *slog.Logger) *Writer {
	if sink == nil {
		sink = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:  store,
		sink:   sink,
		logger: logger.With("system", "ledger"),
		now:    time.Now,
	}
}

// SetClock replaces the writer's time source.
func (w *Writer) SetClock(now func() time.Time) {
	w.now = now
}

// Commit persists one run. On failure nothing is written and the returned
// result still carries the decision counts, so callers can report how much
// was processed before the abort.
func (w *Writer) Commit(ctx context.Context, in Input) (*CommitResult, error) {
	summary := matcher.Summarize(in.Decisions)
	result := &CommitResult{
		RunID:          in.RunID,
		Matched:        summary.Matched,
		Ambiguous:      summary.Ambiguous,
		Unmatched:      summary.Unmatched,
		Invalid:        len(in.Invalid),
		DryRun:         in.DryRun,
		Decisions:      in.Decisions,
		InvalidRecords: in.Invalid,
	}

	err := checkOneToOne(in.Decisions)
	if err == nil {
		err = w.store.WithTx(ctx, func(tx storage.LedgerTx) error {
			return w.apply(ctx, tx, in, result)
		})
	}
	if in.DryRun && errors.Is(err, errDryRun) {
		err = nil
	}
	if errors.Is(err, errReplayed) {
		err = nil
		result.AlreadyCommitted = true
	}

	result.Elapsed = w.now().Sub(in.StartedAt)
	if err != nil {
		result.EntriesCreated, result.EntriesSuperseded, result.EntriesUnchanged = 0, 0, 0
		result.Reopened, result.ReviewQueued, result.ReviewResolved = 0, 0, 0
	} else {
		result.Committed = !in.DryRun || result.AlreadyCommitted
	}

	w.emit(ctx, in, result, err)
	return result, err
}

func (w *Writer) apply(ctx context.Context, tx storage.LedgerTx, in Input, res *CommitResult) error {
	now := w.now().UTC()

	run := &storage.MatchRun{
		ID:             in.RunID,
		StartedAt:      in.StartedAt,
		ReceiptsIn:     in.ReceiptsIn,
		TransactionsIn: in.TransactionsIn,
		Policy:         in.Policy,
	}
	prior, err := tx.MatchRun(ctx, in.RunID)
	if err != nil {
		return persistence("load match run", err)
	}
	if prior != nil {
		return replayed(prior, run)
	}
	if err := tx.StartMatchRun(ctx, run); err != nil {
		return persistence("start match run", err)
	}

	reopen := make(map[string]bool, len(in.Reopen))
	for _, id := range in.Reopen {
		reopen[id] = true
	}
	receipts := make(map[string]model.Receipt, len(in.Receipts))
	for _, r := range in.Receipts {
		id := strings.TrimSpace(r.ID)
		if _, dup := receipts[id]; !dup {
			receipts[id] = r
		}
	}
	postings := make(map[string]Posting, len(in.Postings))
	for _, p := range in.Postings {
		postings[p.Record.ID] = p
	}

	decisions := append([]model.MatchDecision(nil), in.Decisions...)
	sort.Slice(decisions, func(i, j int) bool { return decisions[i].ReceiptID < decisions[j].ReceiptID })

	desired := make(map[string]model.MatchDecision)
	for _, d := range decisions {
		if d.Status == model.StatusMatched {
			desired[d.TransactionID] = d
		}
	}

	if err := w.checkConflicts(ctx, tx, decisions, reopen); err != nil {
		return err
	}

	plan, err := w.plan(ctx, tx, in.RunID, now, postings, desired, reopen, receipts, res)
	if err != nil {
		return err
	}

	// Release every superseded row before inserting, so a receipt moving
	// between transactions never holds two current rows.
	for _, c := range plan {
		if c.current == nil {
			continue
		}
		if err := tx.SupersedeEntry(ctx, c.current.ID, now); err != nil {
			return persistence("supersede ledger entry", err)
		}
		res.EntriesSuperseded++
	}
	for _, c := range plan {
		if err := w.insert(ctx, tx, c, in.Accounts); err != nil {
			return err
		}
		res.EntriesCreated++
	}

	if err := w.recordReview(ctx, tx, in, decisions, receipts, now, res); err != nil {
		return err
	}

	run.CompletedAt = w.now().UTC()
	run.ElapsedMs = run.CompletedAt.Sub(in.StartedAt).Milliseconds()
	run.InvalidCount = res.Invalid
	run.Matched, run.Ambiguous, run.Unmatched = res.Matched, res.Ambiguous, res.Unmatched
	run.EntriesCreated = res.EntriesCreated
	run.EntriesSuperseded = res.EntriesSuperseded
	run.Reopened = res.Reopened
	if err := tx.FinishMatchRun(ctx, run); err != nil {
		return persistence("finish match run", err)
	}

	if in.DryRun {
		return errDryRun
	}
	return nil
}

// checkConflicts rejects decisions that would silently replace MATCHED state.
func (w *Writer) checkConflicts(ctx context.Context, tx storage.LedgerTx, decisions []model.MatchDecision, reopen map[string]bool) error {
	for _, d := range decisions {
		if d.Status != model.StatusMatched {
			continue
		}

		cur, err := tx.CurrentEntry(ctx, d.TransactionID)
		if err != nil {
			return persistence("load ledger entry", err)
		}
		if cur != nil && cur.Status == storage.EntryMatched && cur.ReceiptID != d.ReceiptID && !reopen[d.TransactionID] {
			return &model.ReopenConflictError{
				TransactionID:    d.TransactionID,
				ReceiptID:        d.ReceiptID,
				CurrentReceiptID: cur.ReceiptID,
			}
		}

		held, err := tx.CurrentEntryForReceipt(ctx, d.ReceiptID)
		if err != nil {
			return persistence("load ledger entry", err)
		}
		if held != nil && held.TransactionID != d.TransactionID && !reopen[held.TransactionID] {
			return &model.ReopenConflictError{
				TransactionID:        d.TransactionID,
				ReceiptID:            d.ReceiptID,
				CurrentTransactionID: held.TransactionID,
			}
		}
	}
	return nil
}

// change is one planned ledger write: supersede current (when set) and insert next.
type change struct {
	current *storage.LedgerEntry
	next    *storage.LedgerEntry
	receipt *model.Receipt
}

func (w *Writer) plan(
	ctx context.Context,
	tx storage.LedgerTx,
	runID string,
	now time.Time,
	postings map[string]Posting,
	desired map[string]model.MatchDecision,
	reopen map[string]bool,
	receipts map[string]model.Receipt,
	res *CommitResult,
) ([]change, error) {
	targets := make(map[string]bool, len(postings)+len(reopen)+len(desired))
	for id := range postings {
		targets[id] = true
	}
	for id := range reopen {
		targets[id] = true
	}
	for id := range desired {
		targets[id] = true
	}
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var plan []change
	for _, id := range ids {
		cur, err := tx.CurrentEntry(ctx, id)
		if err != nil {
			return nil, persistence("load ledger entry", err)
		}

		d, matched := desired[id]
		wantReceipt := ""
		if matched {
			wantReceipt = d.ReceiptID
		}

		base, ok := baseEntry(id, postings, cur)
		if !ok {
			if matched {
				return nil, fmt.Errorf("decision for receipt %s references unknown transaction %s", d.ReceiptID, id)
			}
			w.logger.Debug("Nothing to reopen", "transaction_id", id)
			continue
		}

		switch {
		case cur != nil && cur.ReceiptID == wantReceipt:
			res.EntriesUnchanged++
			continue
		case cur != nil && cur.Status == storage.EntryMatched && !reopen[id]:
			// Not rematched in this run; keep it.
			res.EntriesUnchanged++
			continue
		case cur != nil && cur.Status == storage.EntryMatched:
			res.Reopened++
		}

		next := base
		next.MatchRunID = runID
		next.CreatedAt = now
		next.Status = storage.EntryUnmatched
		var receipt *model.Receipt
		if matched {
			next.ReceiptID = d.ReceiptID
			next.Status = storage.EntryMatched
			next.Score = d.Score
			if r, ok := receipts[d.ReceiptID]; ok {
				receipt = &r
				next.Category = strings.TrimSpace(r.Category)
			}
		}
		plan = append(plan, change{current: cur, next: &next, receipt: receipt})
	}
	return plan, nil
}

// baseEntry returns the transaction fields of a new entry version, taken from
// this run's posting or, failing that, from the current entry.
func baseEntry(id string, postings map[string]Posting, cur *storage.LedgerEntry) (storage.LedgerEntry, bool) {
	if p, ok := postings[id]; ok {
		return storage.LedgerEntry{
			TransactionID: id,
			AccountID:     strings.TrimSpace(p.Transaction.AccountID),
			Amount:        -p.Record.Amount,
			Currency:      p.Record.Currency,
			PostedDate:    p.Record.Date.Format("2006-01-02"),
			Description:   p.Transaction.Description,
		}, true
	}
	if cur != nil {
		return storage.LedgerEntry{
			TransactionID: id,
			AccountID:     cur.AccountID,
			Amount:        cur.Amount,
			Currency:      cur.Currency,
			PostedDate:    cur.PostedDate,
			Description:   cur.Description,
		}, true
	}
	return storage.LedgerEntry{}, false
}

func (w *Writer) insert(ctx context.Context, tx storage.LedgerTx, c change, accounts map[string]AccountInfo) error {
	e := c.next
	if e.AccountID == "" {
		e.AccountID = "unknown"
	}

	info := accounts[e.AccountID]
	if err := tx.EnsureAccount(ctx, storage.Account{ID: e.AccountID, Label: info.Label, CardSuffix: info.CardSuffix}); err != nil {
		return persistence("ensure account", err)
	}

	if c.receipt != nil {
		if vendor := strings.TrimSpace(c.receipt.Vendor); vendor != "" {
			vendorID, err := tx.UpsertVendor(ctx, vendor)
			if err != nil {
				return persistence("upsert vendor", err)
			}
			e.VendorID = vendorID

			if address := strings.TrimSpace(c.receipt.Location); address != "" {
				locationID, err := tx.UpsertLocation(ctx, vendorID, address)
				if err != nil {
					return persistence("upsert location", err)
				}
				e.LocationID = locationID
			}
		}
	}

	if _, err := tx.InsertEntry(ctx, e); err != nil {
		return persistence("insert ledger entry", err)
	}
	return nil
}

func (w *Writer) recordReview(
	ctx context.Context,
	tx storage.LedgerTx,
	in Input,
	decisions []model.MatchDecision,
	receipts map[string]model.Receipt,
	now time.Time,
	res *CommitResult,
) error {
	for _, d := range decisions {
		if d.Status == model.StatusMatched {
			resolved, err := tx.ResolveReviewItem(ctx, string(model.KindReceipt), d.ReceiptID, in.RunID, now)
			if err != nil {
				return persistence("resolve review item", err)
			}
			if resolved {
				res.ReviewResolved++
			}
			continue
		}

		r := receipts[d.ReceiptID]
		item := &storage.ReviewItem{
			Kind:                   string(model.KindReceipt),
			RecordID:               d.ReceiptID,
			Status:                 string(d.Status),
			CandidateTransactionID: d.TransactionID,
			Score:                  d.Score,
			Reason:                 d.Reason,
			Vendor:                 r.Vendor,
			Amount:                 r.Total,
			RecordDate:             r.PurchasedAt,
			MatchRunID:             in.RunID,
			UpdatedAt:              now,
		}
		if err := tx.UpsertReviewItem(ctx, item); err != nil {
			return persistence("upsert review item", err)
		}
		res.ReviewQueued++
	}

	for _, ie := range in.Invalid {
		id := strings.TrimSpace(ie.RecordID)
		if id == "" {
			continue
		}
		item := &storage.ReviewItem{
			Kind:       string(ie.Kind),
			RecordID:   id,
			Status:     storage.ReviewInvalid,
			Reason:     ie.Error(),
			MatchRunID: in.RunID,
			UpdatedAt:  now,
		}
		if ie.Kind == model.KindReceipt {
			r := receipts[id]
			item.Vendor, item.Amount, item.RecordDate = r.Vendor, r.Total, r.PurchasedAt
		}
		if err := tx.UpsertReviewItem(ctx, item); err != nil {
			return persistence("upsert review item", err)
		}
		res.ReviewQueued++
	}
	return nil
}

func (w *Writer) emit(ctx context.Context, in Input, res *CommitResult, runErr error) {
	summary := audit.RunSummary{
		RunID:             res.RunID,
		OperationID:       in.OperationID,
		StartedAt:         in.StartedAt,
		CompletedAt:       in.StartedAt.Add(res.Elapsed),
		Elapsed:           res.Elapsed,
		Matched:           res.Matched,
		Ambiguous:         res.Ambiguous,
		Unmatched:         res.Unmatched,
		Invalid:           res.Invalid,
		EntriesCreated:    res.EntriesCreated,
		EntriesSuperseded: res.EntriesSuperseded,
		Reopened:          res.Reopened,
		DryRun:            res.DryRun,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	} else if !res.AlreadyCommitted {
		for _, d := range res.Decisions {
			if err := w.sink.Decision(ctx, d); err != nil {
				w.logger.Warn("Failed to record decision", "receipt_id", d.ReceiptID, "error", err)
			}
		}
	}

	if err := w.sink.RunCompleted(ctx, summary); err != nil {
		w.logger.Warn("Failed to record run summary", "run_id", res.RunID, "error", err)
	}
}

// checkOneToOne rejects decision sets that match a receipt or a transaction twice.
func checkOneToOne(decisions []model.MatchDecision) error {
	receipts := make(map[string]bool)
	txns := make(map[string]bool)
	for _, d := range decisions {
		if d.Status != model.StatusMatched {
			continue
		}
		if receipts[d.ReceiptID] {
			return fmt.Errorf("receipt %s is matched more than once", d.ReceiptID)
		}
		if txns[d.TransactionID] {
			return fmt.Errorf("transaction %s is matched more than once", d.TransactionID)
		}
		receipts[d.ReceiptID] = true
		txns[d.TransactionID] = true
	}
	return nil
}

// replayed decides what a second commit under an existing run id means. A
// run is only stored once its transaction commits, so prior is complete; the
// retry is a no-op when it describes the same inputs.
func replayed(prior, run *storage.MatchRun) error {
	switch {
	case prior.Policy != run.Policy:
		return &model.RunReplayError{RunID: run.ID, Reason: "policy"}
	case prior.ReceiptsIn != run.ReceiptsIn || prior.TransactionsIn != run.TransactionsIn:
		return &model.RunReplayError{RunID: run.ID, Reason: "inputs"}
	}
	return errReplayed
}

func persistence(op string, err error) error {
	return &model.PersistenceError{Op: op, Err: err}
}
