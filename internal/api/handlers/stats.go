package handlers

import (
	"net/http"
	"sort"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Convert account stats map to a sorted slice for easier frontend consumption
	accounts := make([]dto.AccountStatsResponse, 0, len(stats.AccountStats))
	for id, a := range stats.AccountStats {
		accounts = append(accounts, dto.AccountStatsResponse{
			AccountID:    id,
			Transactions: a.Transactions,
			Matched:      a.Matched,
			TotalSpend:   a.TotalSpend,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })

	response := dto.StatsResponse{
		TransactionCount: stats.TransactionCount,
		MatchedCount:     stats.MatchedCount,
		UnmatchedCount:   stats.UnmatchedCount,
		MatchRate:        stats.MatchRate,
		OpenReviewItems:  stats.OpenReviewItems,
		ReviewByStatus:   stats.ReviewByStatus,
		MatchRunCount:    stats.MatchRunCount,
		Accounts:         accounts,
	}
	if stats.LastRunAt != nil {
		response.LastRunAt = formatTime(*stats.LastRunAt)
	}

	h.WriteJSON(w, http.StatusOK, response)
}
