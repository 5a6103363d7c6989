package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
)

// SchemaReader reports the ledger's applied migration version.
type SchemaReader interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler reports whether the ledger database is reachable and
// migrated. It answers 503 otherwise so a load balancer stops routing to it.
type HealthHandler struct {
	schema SchemaReader
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(schema SchemaReader, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{schema: schema, logger: logger}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	version, err := h.schema.SchemaVersion(r.Context())
	if err != nil {
		h.logger.Error("health check failed to read schema version", slog.Any("error", err))
	}
	response := dto.NewHealthResponse(version, err)

	status := http.StatusOK
	if response.Status != dto.HealthOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
