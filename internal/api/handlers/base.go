package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// ParseIntParam parses an integer query parameter with a default value.
// Negative values fall back to the default.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return defaultVal
	}
	return parsed
}

// ParseDateParam validates an optional YYYY-MM-DD query parameter.
func ParseDateParam(r *http.Request, name string) (string, bool) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return "", true
	}
	if _, err := time.Parse("2006-01-02", val); err != nil {
		return "", false
	}
	return val, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
