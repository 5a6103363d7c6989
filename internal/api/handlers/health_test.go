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

func serveHealth(t *testing.T, repo *storage.MockRepository) (*httptest.ResponseRecorder, dto.HealthResponse) {
	t.Helper()
	handler := handlers.NewHealthHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var response dto.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return rec, response
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	t.Run("reports the applied schema version", func(t *testing.T) {
		rec, response := serveHealth(t, storage.NewMockRepository())

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, dto.HealthOK, response.Status)
		assert.Equal(t, int64(2), response.SchemaVersion)
		assert.Empty(t, response.Error)
		assert.NotEmpty(t, response.Timestamp)
	})

	t.Run("unreachable ledger is unavailable", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.SchemaVersionErr = errors.New("database is locked")

		rec, response := serveHealth(t, repo)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, dto.HealthUnavailable, response.Status)
		assert.Equal(t, dto.ErrCodeUnavailable, response.Error)
		assert.NotContains(t, response.Error, "locked")
	})

	t.Run("unmigrated ledger is unavailable", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.Schema = 0

		rec, response := serveHealth(t, repo)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, dto.HealthUnavailable, response.Status)
		assert.Equal(t, int64(0), response.SchemaVersion)
	})
}
