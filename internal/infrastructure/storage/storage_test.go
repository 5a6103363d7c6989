package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger_test.db")
}

func openStore(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(createTempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func startRun(t *testing.T, tx LedgerTx, id string) {
	t.Helper()
	require.NoError(t, tx.StartMatchRun(context.Background(), &MatchRun{ID: id, StartedAt: testNow, Policy: "{}"}))
}

func entry(txID, receiptID, runID string) *LedgerEntry {
	status := EntryUnmatched
	if receiptID != "" {
		status = EntryMatched
	}
	return &LedgerEntry{
		TransactionID: txID,
		ReceiptID:     receiptID,
		Status:        status,
		Score:         0.9,
		AccountID:     "visa",
		Amount:        -550,
		Currency:      "CAD",
		PostedDate:    "2024-06-02",
		Description:   "TIM HORTONS #221",
		MatchRunID:    runID,
		CreatedAt:     testNow,
	}
}

func TestStorage_MigrationsApplied(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"accounts", "vendors", "locations", "ledger_entries", "review_items", "match_runs"} {
		var n int
		err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s should exist", table)
	}

	// Go migration added the vendor token column
	_, err = store.db.Exec(`SELECT token FROM vendors LIMIT 1`)
	assert.NoError(t, err)
}

func TestStorage_MigrationsIdempotent(t *testing.T) {
	path := createTempDB(t)

	store, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestStorage_WithTx_CommitAndRead(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa", Label: "Visa", CardSuffix: "4321"}))

		vendorID, err := tx.UpsertVendor(ctx, "Tim Hortons")
		require.NoError(t, err)
		again, err := tx.UpsertVendor(ctx, "Tim Hortons")
		require.NoError(t, err)
		assert.Equal(t, vendorID, again)

		locationID, err := tx.UpsertLocation(ctx, vendorID, "123 Main St")
		require.NoError(t, err)

		e := entry("t1", "r1", "run-1")
		e.VendorID = vendorID
		e.LocationID = locationID
		id, err := tx.InsertEntry(ctx, e)
		require.NoError(t, err)
		assert.NotZero(t, id)
		assert.Equal(t, 1, e.Version)

		return tx.FinishMatchRun(ctx, &MatchRun{ID: "run-1", CompletedAt: testNow, Matched: 1, EntriesCreated: 1})
	})
	require.NoError(t, err)

	matches, err := store.CurrentMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "r1", matches[0].ReceiptID)
	assert.Equal(t, "Tim Hortons", matches[0].VendorName)
	assert.Equal(t, "123 Main St", matches[0].Address)
	assert.True(t, matches[0].IsCurrent())
	assert.True(t, matches[0].CreatedAt.Equal(testNow))

	run, err := store.GetMatchRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunCommitted, run.Status)
	assert.Equal(t, 1, run.Matched)

	var token string
	require.NoError(t, store.db.QueryRow(`SELECT token FROM vendors WHERE name = 'Tim Hortons'`).Scan(&token))
	assert.Equal(t, "tim hortons", token)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "4321", accounts[0].CardSuffix)
}

func TestStorage_WithTx_RollbackOnError(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa"}))
		_, err := tx.InsertEntry(ctx, entry("t1", "r1", "run-1"))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	matches, err := store.CurrentMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)

	run, err := store.GetMatchRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestStorage_WithTx_CancelledBeforeCommit(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		cancel()
		return nil
	})
	require.Error(t, err)

	runs, err := store.ListMatchRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStorage_CurrentIndexesEnforceOneToOne(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa"}))
		_, err := tx.InsertEntry(ctx, entry("t1", "r1", "run-1"))
		require.NoError(t, err)

		// same transaction, still current
		_, err = tx.InsertEntry(ctx, entry("t1", "r2", "run-1"))
		assert.Error(t, err)

		// same receipt on another transaction
		_, err = tx.InsertEntry(ctx, entry("t2", "r1", "run-1"))
		assert.Error(t, err)

		// unmatched entries do not collide on the receipt index
		_, err = tx.InsertEntry(ctx, entry("t3", "", "run-1"))
		assert.NoError(t, err)
		_, err = tx.InsertEntry(ctx, entry("t4", "", "run-1"))
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_SupersedeKeepsHistory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa"}))
		_, err := tx.InsertEntry(ctx, entry("t1", "", "run-1"))
		return err
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-2")
		current, err := tx.CurrentEntry(ctx, "t1")
		require.NoError(t, err)
		require.NotNil(t, current)
		require.NoError(t, tx.SupersedeEntry(ctx, current.ID, testNow.Add(time.Hour)))

		e := entry("t1", "r1", "run-2")
		_, err = tx.InsertEntry(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Version)

		byReceipt, err := tx.CurrentEntryForReceipt(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, byReceipt)
		assert.Equal(t, "t1", byReceipt.TransactionID)

		missing, err := tx.CurrentEntryForReceipt(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)

	history, err := store.GetLedgerHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.False(t, history[0].IsCurrent())
	assert.Equal(t, "", history[0].ReceiptID)
	assert.Equal(t, 2, history[1].Version)
	assert.True(t, history[1].IsCurrent())
	assert.Equal(t, "r1", history[1].ReceiptID)
}

func TestStorage_ListLedger_Filters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa"}))
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "chequing"}))
		for i, d := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
			e := entry("t"+d, "", "run-1")
			e.PostedDate = d
			if i == 0 {
				e.ReceiptID, e.Status = "r1", EntryMatched
			}
			if i == 2 {
				e.AccountID = "chequing"
			}
			if _, err := tx.InsertEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	all, err := store.ListLedger(ctx, LedgerFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalCount)
	assert.Equal(t, 50, all.Limit)
	assert.Equal(t, "2024-06-03", all.Entries[0].PostedDate)

	visa, err := store.ListLedger(ctx, LedgerFilters{AccountID: "visa"})
	require.NoError(t, err)
	assert.Equal(t, 2, visa.TotalCount)

	matched, err := store.ListLedger(ctx, LedgerFilters{Status: EntryMatched})
	require.NoError(t, err)
	assert.Equal(t, 1, matched.TotalCount)

	window, err := store.ListLedger(ctx, LedgerFilters{From: "2024-06-02", To: "2024-06-02"})
	require.NoError(t, err)
	assert.Equal(t, 1, window.TotalCount)

	page, err := store.ListLedger(ctx, LedgerFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "2024-06-02", page.Entries[0].PostedDate)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, 1, stats.MatchedCount)
	assert.Equal(t, 2, stats.AccountStats["visa"].Transactions)
	assert.Equal(t, int64(550), stats.AccountStats["chequing"].TotalSpend)
}

func TestStorage_ReviewItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.UpsertReviewItem(ctx, &ReviewItem{
			Kind: "receipt", RecordID: "r1", Status: ReviewAmbiguous,
			CandidateTransactionID: "t1", Score: 0.55, MatchRunID: "run-1", UpdatedAt: testNow,
		}))
		require.NoError(t, tx.UpsertReviewItem(ctx, &ReviewItem{
			Kind: "receipt", RecordID: "r2", Status: ReviewUnmatched, MatchRunID: "run-1", UpdatedAt: testNow,
		}))
		// upsert replaces in place
		require.NoError(t, tx.UpsertReviewItem(ctx, &ReviewItem{
			Kind: "receipt", RecordID: "r2", Status: ReviewInvalid, Reason: "invalid amount", MatchRunID: "run-1", UpdatedAt: testNow,
		}))

		resolved, err := tx.ResolveReviewItem(ctx, "receipt", "r1", "run-1", testNow)
		require.NoError(t, err)
		assert.True(t, resolved)

		resolved, err = tx.ResolveReviewItem(ctx, "receipt", "r1", "run-1", testNow)
		require.NoError(t, err)
		assert.False(t, resolved, "already resolved")
		return nil
	})
	require.NoError(t, err)

	open, err := store.ListReviewItems(ctx, ReviewFilters{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "r2", open[0].RecordID)
	assert.Equal(t, ReviewInvalid, open[0].Status)

	all, err := store.ListReviewItems(ctx, ReviewFilters{Status: "ALL"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resolved, err := store.ListReviewItems(ctx, ReviewFilters{Status: ReviewResolved})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "t1", resolved[0].CandidateTransactionID)
}

func TestStorage_MatchRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b"} {
		err := store.WithTx(ctx, func(tx LedgerTx) error {
			started := testNow.Add(time.Duration(i) * time.Hour)
			if err := tx.StartMatchRun(ctx, &MatchRun{ID: id, StartedAt: started, ReceiptsIn: 3, Policy: `{"min_score":0.6}`}); err != nil {
				return err
			}
			return tx.FinishMatchRun(ctx, &MatchRun{ID: id, CompletedAt: started.Add(time.Second), ElapsedMs: 1000, Matched: i})
		})
		require.NoError(t, err)
	}

	runs, err := store.ListMatchRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, 3, runs[0].ReceiptsIn)
	assert.Equal(t, int64(1000), runs[0].ElapsedMs)

	missing, err := store.GetMatchRun(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MatchRunCount)
	require.NotNil(t, stats.LastRunAt)
	assert.True(t, stats.LastRunAt.Equal(testNow.Add(time.Hour)))
}

func TestStorage_NewStorage_BadPath(t *testing.T) {
	_, err := NewStorage(filepath.Join(os.TempDir(), "does-not-exist", "nested", "x.db"))
	assert.Error(t, err)
}
