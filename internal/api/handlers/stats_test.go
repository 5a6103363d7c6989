package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/api/handlers"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

func TestStatsHandler_Get(t *testing.T) {
	t.Run("summarizes current ledger", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedLedger(repo)
		seedReview(repo)
		seedRun(repo, "run-1", 0)
		handler := handlers.NewStatsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.StatsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.TransactionCount)
		assert.Equal(t, 1, response.MatchedCount)
		assert.Equal(t, 1, response.UnmatchedCount)
		assert.InDelta(t, 0.5, response.MatchRate, 1e-9)
		assert.Equal(t, 2, response.OpenReviewItems)
		assert.Equal(t, 1, response.MatchRunCount)
		assert.Equal(t, "2024-06-03T09:00:00Z", response.LastRunAt)

		require.Len(t, response.Accounts, 2)
		assert.Equal(t, "amex", response.Accounts[0].AccountID)
		assert.Equal(t, int64(1200), response.Accounts[0].TotalSpend)
		assert.Equal(t, "visa", response.Accounts[1].AccountID)
		assert.Equal(t, 1, response.Accounts[1].Matched)
	})

	t.Run("returns 500 on storage error", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.GetStatsErr = errors.New("db down")
		handler := handlers.NewStatsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAccountsHandler_List(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.AddAccount(storage.Account{ID: "visa", Label: "Visa", CardSuffix: "4242", CreatedAt: testTime})
	repo.AddAccount(storage.Account{ID: "amex", Label: "Amex", CreatedAt: testTime})
	handler := handlers.NewAccountsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.AccountListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, "amex", response.Accounts[0].ID)
	assert.Equal(t, "4242", response.Accounts[1].CardSuffix)
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
		{"limit=-3", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?"+tt.query, nil)
		assert.Equal(t, tt.want, handlers.ParseIntParam(req, "limit", 20), tt.query)
	}
}
