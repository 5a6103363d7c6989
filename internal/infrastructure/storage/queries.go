package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
)

// CurrentMatches returns every current MATCHED entry
func (s *Storage) CurrentMatches(ctx context.Context) ([]LedgerEntry, error) {
	return queryEntries(ctx, s.db,
		`SELECT `+entryColumns+entryFrom+`
		WHERE e.superseded_at IS NULL AND e.status = ?
		ORDER BY e.transaction_id`, EntryMatched)
}

// ListLedger returns current entries matching the given filters with pagination
func (s *Storage) ListLedger(ctx context.Context, filters LedgerFilters) (*LedgerListResult, error) {
	where := []string{"e.superseded_at IS NULL"}
	var args []any

	if filters.AccountID != "" {
		where = append(where, "e.account_id = ?")
		args = append(args, filters.AccountID)
	}
	if filters.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, filters.Status)
	}
	if filters.From != "" {
		where = append(where, "e.posted_date >= ?")
		args = append(args, filters.From)
	}
	if filters.To != "" {
		where = append(where, "e.posted_date <= ?")
		args = append(args, filters.To)
	}
	if filters.Vendor != "" {
		where = append(where, "v.token = ?")
		args = append(args, normalizer.VendorToken(filters.Vendor))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+entryFrom+clause, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	entries, err := queryEntries(ctx, s.db,
		`SELECT `+entryColumns+entryFrom+clause+`
		ORDER BY e.posted_date DESC, e.transaction_id
		LIMIT ? OFFSET ?`,
		append(args, limit, filters.Offset)...)
	if err != nil {
		return nil, err
	}

	return &LedgerListResult{
		Entries:    entries,
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// GetLedgerHistory returns every version of a transaction's entry, oldest first
func (s *Storage) GetLedgerHistory(ctx context.Context, transactionID string) ([]LedgerEntry, error) {
	return queryEntries(ctx, s.db,
		`SELECT `+entryColumns+entryFrom+` WHERE e.transaction_id = ? ORDER BY e.version`,
		transactionID)
}

// ListAccounts returns known accounts ordered by id
func (s *Storage) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, card_suffix, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Label, &a.CardSuffix, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetStats returns aggregate statistics over current entries
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ReviewByStatus: make(map[string]int),
		AccountStats:   make(map[string]AccountStats),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'MATCHED' THEN 1 END),
			COUNT(CASE WHEN status = 'UNMATCHED' THEN 1 END)
		FROM ledger_entries
		WHERE superseded_at IS NULL
	`).Scan(&stats.TransactionCount, &stats.MatchedCount, &stats.UnmatchedCount)
	if err != nil {
		return nil, err
	}
	if stats.TransactionCount > 0 {
		stats.MatchRate = float64(stats.MatchedCount) / float64(stats.TransactionCount)
	}

	// Account breakdown
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			account_id,
			COUNT(*),
			COUNT(CASE WHEN status = 'MATCHED' THEN 1 END),
			COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0)
		FROM ledger_entries
		WHERE superseded_at IS NULL
		GROUP BY account_id
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		var as AccountStats
		if err := rows.Scan(&id, &as.Transactions, &as.Matched, &as.TotalSpend); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.AccountStats[id] = as
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// Review queue breakdown
	rows, err = s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM review_items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ReviewByStatus[status] = n
		if status != ReviewResolved {
			stats.OpenReviewItems += n
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_runs WHERE status = ?`, RunCommitted,
	).Scan(&stats.MatchRunCount)
	if err != nil {
		return nil, err
	}

	var lastRun time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT started_at FROM match_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`, RunCommitted,
	).Scan(&lastRun)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		stats.LastRunAt = &lastRun
	}

	return stats, nil
}

// ListReviewItems returns review items. An empty status lists every open item;
// "ALL" lists resolved ones too.
func (s *Storage) ListReviewItems(ctx context.Context, filters ReviewFilters) ([]ReviewItem, error) {
	query := `
		SELECT kind, record_id, status, COALESCE(candidate_transaction_id, ''), score, reason,
		       vendor, amount, record_date, match_run_id, updated_at
		FROM review_items`
	var args []any
	switch filters.Status {
	case "":
		query += ` WHERE status <> ?`
		args = append(args, ReviewResolved)
	case "ALL":
	default:
		query += ` WHERE status = ?`
		args = append(args, filters.Status)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY updated_at DESC, kind, record_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]ReviewItem, 0)
	for rows.Next() {
		var it ReviewItem
		err := rows.Scan(
			&it.Kind, &it.RecordID, &it.Status, &it.CandidateTransactionID, &it.Score, &it.Reason,
			&it.Vendor, &it.Amount, &it.RecordDate, &it.MatchRunID, &it.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const matchRunColumns = `
	id, started_at, completed_at, elapsed_ms, receipts_in, transactions_in, invalid_count,
	matched, ambiguous, unmatched, entries_created, entries_superseded, reopened, policy_json, status`

func scanMatchRun(row rowScanner) (*MatchRun, error) {
	var r MatchRun
	var completedAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.StartedAt, &completedAt, &r.ElapsedMs, &r.ReceiptsIn, &r.TransactionsIn, &r.InvalidCount,
		&r.Matched, &r.Ambiguous, &r.Unmatched, &r.EntriesCreated, &r.EntriesSuperseded, &r.Reopened,
		&r.Policy, &r.Status,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = completedAt.Time
	}
	return &r, nil
}

// ListMatchRuns returns recent runs, newest first
func (s *Storage) ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchRunColumns+` FROM match_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]MatchRun, 0)
	for rows.Next() {
		r, err := scanMatchRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetMatchRun retrieves a run by id
func (s *Storage) GetMatchRun(ctx context.Context, runID string) (*MatchRun, error) {
	r, err := scanMatchRun(s.db.QueryRowContext(ctx,
		`SELECT `+matchRunColumns+` FROM match_runs WHERE id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}
