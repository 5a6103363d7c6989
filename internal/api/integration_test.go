package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-ledger/internal/api"
	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/application/ledger"
	"github.com/eshaffer321/receipt-ledger/internal/application/reconcile"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// These tests run the whole stack against a real SQLite database:
// reconcile run -> ledger tables -> router -> handlers -> JSON.

func createTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "api_integration.db"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := api.NewServer(api.DefaultConfig(), store, logger)
	ts := httptest.NewServer(server.Router())

	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts, store
}

func runReconcile(t *testing.T, store *storage.Storage) {
	t.Helper()

	svc, err := reconcile.NewService(policy.Default(), store, nil, nil)
	require.NoError(t, err)

	receipts := []model.Receipt{
		{ID: "R1", Vendor: "Blue Bottle Coffee", Total: "5.50", PurchasedAt: "2024-06-03",
			Location: "221 Queen St W", Category: "Coffee", Confidence: 0.95},
		{ID: "R2", Vendor: "Hardware Barn", Total: "88.00", PurchasedAt: "2024-06-01", Confidence: 0.9},
	}
	transactions := []model.Transaction{
		{ID: "T1", AccountID: "visa", Amount: "-5.50", PostedDate: "2024-06-04", Description: "BLUE BOTTLE COFFEE"},
		{ID: "T2", AccountID: "visa", Amount: "-12.00", PostedDate: "2024-06-05", Description: "STAR MARKET"},
	}

	result, err := svc.ResolveAndCommit(context.Background(), receipts, transactions, reconcile.Options{
		Accounts: map[string]ledger.AccountInfo{"visa": {Label: "Visa", CardSuffix: "4242"}},
	})
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.Equal(t, 1, result.Matched)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _ := createTestServer(t)

	var health dto.HealthResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &health))
	assert.Equal(t, dto.HealthOK, health.Status)
	assert.Equal(t, int64(2), health.SchemaVersion)
}

func TestAPI_Integration_EmptyDatabase(t *testing.T) {
	ts, _ := createTestServer(t)

	var ledgerResp dto.LedgerListResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/ledger", &ledgerResp))
	assert.Empty(t, ledgerResp.Entries)

	var stats dto.StatsResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/stats", &stats))
	assert.Equal(t, 0, stats.TransactionCount)
	assert.Empty(t, stats.LastRunAt)
}

func TestAPI_Integration_AfterRun(t *testing.T) {
	ts, store := createTestServer(t)
	runReconcile(t, store)

	t.Run("ledger lists one entry per transaction", func(t *testing.T) {
		var resp dto.LedgerListResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/ledger", &resp))
		require.Len(t, resp.Entries, 2)

		byTx := map[string]dto.LedgerEntryResponse{}
		for _, e := range resp.Entries {
			byTx[e.TransactionID] = e
		}
		assert.Equal(t, storage.EntryMatched, byTx["T1"].Status)
		assert.Equal(t, "R1", byTx["T1"].ReceiptID)
		assert.Equal(t, "Blue Bottle Coffee", byTx["T1"].Vendor)
		assert.Equal(t, "221 Queen St W", byTx["T1"].Address)
		assert.Equal(t, "-5.50", byTx["T1"].Amount)
		assert.Equal(t, storage.EntryUnmatched, byTx["T2"].Status)
		assert.Empty(t, byTx["T2"].ReceiptID)
	})

	t.Run("review queue holds the unmatched receipt", func(t *testing.T) {
		var resp dto.ReviewListResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/review", &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "R2", resp.Items[0].RecordID)
		assert.Equal(t, storage.ReviewUnmatched, resp.Items[0].Status)
	})

	t.Run("runs and stats reflect the commit", func(t *testing.T) {
		var runs dto.MatchRunListResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/runs", &runs))
		require.Len(t, runs.Runs, 1)
		assert.Equal(t, storage.RunCommitted, runs.Runs[0].Status)
		assert.Equal(t, 2, runs.Runs[0].EntriesCreated)

		var run dto.MatchRunResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/runs/"+runs.Runs[0].ID, &run))
		assert.Equal(t, 1, run.Matched)

		var stats dto.StatsResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/stats", &stats))
		assert.Equal(t, 2, stats.TransactionCount)
		assert.Equal(t, 1, stats.MatchedCount)
		assert.Equal(t, 1, stats.MatchRunCount)
		assert.NotEmpty(t, stats.LastRunAt)
	})

	t.Run("accounts carry configured labels", func(t *testing.T) {
		var resp dto.AccountListResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/accounts", &resp))
		require.Len(t, resp.Accounts, 1)
		assert.Equal(t, "Visa", resp.Accounts[0].Label)
		assert.Equal(t, "4242", resp.Accounts[0].CardSuffix)
	})

	t.Run("history of an unmatched transaction", func(t *testing.T) {
		var resp dto.LedgerListResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/ledger/T2/history", &resp))
		require.Len(t, resp.Entries, 1)
		assert.True(t, resp.Entries[0].Current)
	})
}

func TestAPI_Integration_RerunKeepsLedgerStable(t *testing.T) {
	ts, store := createTestServer(t)
	runReconcile(t, store)

	svc, err := reconcile.NewService(policy.Default(), store, nil, nil)
	require.NoError(t, err)
	_, err = svc.ResolveAndCommit(context.Background(),
		[]model.Receipt{{ID: "R1", Vendor: "Blue Bottle Coffee", Total: "5.50", PurchasedAt: "2024-06-03"}},
		[]model.Transaction{{ID: "T1", AccountID: "visa", Amount: "-5.50", PostedDate: "2024-06-04", Description: "BLUE BOTTLE COFFEE"}},
		reconcile.Options{})
	require.NoError(t, err)

	var resp dto.LedgerListResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/ledger/T1/history", &resp))
	assert.Len(t, resp.Entries, 1)
}
