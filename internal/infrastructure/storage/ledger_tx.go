package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
)

// sqliteTx implements LedgerTx on an open *sql.Tx
type sqliteTx struct {
	tx *sql.Tx
}

var _ LedgerTx = (*sqliteTx)(nil)

func (t *sqliteTx) EnsureAccount(ctx context.Context, account Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, label, card_suffix)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = CASE WHEN excluded.label <> '' THEN excluded.label ELSE accounts.label END,
			card_suffix = CASE WHEN excluded.card_suffix <> '' THEN excluded.card_suffix ELSE accounts.card_suffix END
	`, account.ID, account.Label, account.CardSuffix)
	return err
}

func (t *sqliteTx) UpsertVendor(ctx context.Context, name string) (int64, error) {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO vendors (name, token) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, normalizer.VendorToken(name),
	); err != nil {
		return 0, err
	}

	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM vendors WHERE name = ?`, name).Scan(&id)
	return id, err
}

func (t *sqliteTx) UpsertLocation(ctx context.Context, vendorID int64, address string) (int64, error) {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO locations (vendor_id, address) VALUES (?, ?) ON CONFLICT(vendor_id, address) DO NOTHING`,
		vendorID, address,
	); err != nil {
		return 0, err
	}

	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM locations WHERE vendor_id = ? AND address = ?`, vendorID, address,
	).Scan(&id)
	return id, err
}

func (t *sqliteTx) CurrentEntry(ctx context.Context, transactionID string) (*LedgerEntry, error) {
	return queryEntry(ctx, t.tx,
		`SELECT `+entryColumns+entryFrom+` WHERE e.transaction_id = ? AND e.superseded_at IS NULL`,
		transactionID)
}

func (t *sqliteTx) CurrentEntryForReceipt(ctx context.Context, receiptID string) (*LedgerEntry, error) {
	return queryEntry(ctx, t.tx,
		`SELECT `+entryColumns+entryFrom+` WHERE e.receipt_id = ? AND e.superseded_at IS NULL`,
		receiptID)
}

func (t *sqliteTx) SupersedeEntry(ctx context.Context, entryID int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE ledger_entries SET superseded_at = ? WHERE id = ? AND superseded_at IS NULL`,
		at.UTC(), entryID)
	return err
}

func (t *sqliteTx) InsertEntry(ctx context.Context, entry *LedgerEntry) (int64, error) {
	if entry.Version == 0 {
		err := t.tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM ledger_entries WHERE transaction_id = ?`,
			entry.TransactionID,
		).Scan(&entry.Version)
		if err != nil {
			return 0, err
		}
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(transaction_id, version, receipt_id, status, score, account_id, vendor_id, location_id,
		 category, amount, currency, posted_date, description, match_run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.TransactionID,
		entry.Version,
		nullString(entry.ReceiptID),
		entry.Status,
		entry.Score,
		entry.AccountID,
		nullInt64(entry.VendorID),
		nullInt64(entry.LocationID),
		entry.Category,
		entry.Amount,
		entry.Currency,
		entry.PostedDate,
		entry.Description,
		entry.MatchRunID,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	entry.ID = id
	return id, nil
}

func (t *sqliteTx) UpsertReviewItem(ctx context.Context, item *ReviewItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO review_items
		(kind, record_id, status, candidate_transaction_id, score, reason, vendor, amount,
		 record_date, match_run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, record_id) DO UPDATE SET
			status = excluded.status,
			candidate_transaction_id = excluded.candidate_transaction_id,
			score = excluded.score,
			reason = excluded.reason,
			vendor = excluded.vendor,
			amount = excluded.amount,
			record_date = excluded.record_date,
			match_run_id = excluded.match_run_id,
			updated_at = excluded.updated_at
	`,
		item.Kind,
		item.RecordID,
		item.Status,
		nullString(item.CandidateTransactionID),
		item.Score,
		item.Reason,
		item.Vendor,
		item.Amount,
		item.RecordDate,
		item.MatchRunID,
		item.UpdatedAt.UTC(),
	)
	return err
}

func (t *sqliteTx) ResolveReviewItem(ctx context.Context, kind, recordID, runID string, at time.Time) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE review_items
		SET status = ?, match_run_id = ?, updated_at = ?
		WHERE kind = ? AND record_id = ? AND status <> ?
	`, ReviewResolved, runID, at.UTC(), kind, recordID, ReviewResolved)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (t *sqliteTx) MatchRun(ctx context.Context, id string) (*MatchRun, error) {
	r, err := scanMatchRun(t.tx.QueryRowContext(ctx,
		`SELECT `+matchRunColumns+` FROM match_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (t *sqliteTx) StartMatchRun(ctx context.Context, run *MatchRun) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO match_runs (id, started_at, receipts_in, transactions_in, policy_json, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.ReceiptsIn, run.TransactionsIn, run.Policy, RunCommitting)
	return err
}

func (t *sqliteTx) FinishMatchRun(ctx context.Context, run *MatchRun) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE match_runs
		SET completed_at = ?,
		    elapsed_ms = ?,
		    invalid_count = ?,
		    matched = ?,
		    ambiguous = ?,
		    unmatched = ?,
		    entries_created = ?,
		    entries_superseded = ?,
		    reopened = ?,
		    status = ?
		WHERE id = ?
	`,
		run.CompletedAt.UTC(),
		run.ElapsedMs,
		run.InvalidCount,
		run.Matched,
		run.Ambiguous,
		run.Unmatched,
		run.EntriesCreated,
		run.EntriesSuperseded,
		run.Reopened,
		RunCommitted,
		run.ID,
	)
	return err
}
