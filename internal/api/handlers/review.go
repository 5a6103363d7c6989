package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// ReviewHandler handles the manual review queue.
type ReviewHandler struct {
	*Base
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(repo storage.Repository) *ReviewHandler {
	return &ReviewHandler{
		Base: NewBase(repo),
	}
}

// reviewStatuses are the accepted status filters besides the empty default.
var reviewStatuses = []string{
	"ALL",
	storage.ReviewAmbiguous,
	storage.ReviewUnmatched,
	storage.ReviewInvalid,
	storage.ReviewResolved,
}

// List handles GET /api/review - returns open review items by default, or
// those with the given status (ALL for everything).
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	status := strings.ToUpper(raw)
	if status != "" && !slices.Contains(reviewStatuses, status) {
		h.WriteError(w, http.StatusBadRequest, dto.InvalidStatusError("status", raw, reviewStatuses...))
		return
	}

	items, err := h.repo.ListReviewItems(r.Context(), storage.ReviewFilters{
		Status: status,
		Limit:  ParseIntParam(r, "limit", dto.DefaultReviewListParams().Limit),
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ReviewListResponse{
		Items: make([]dto.ReviewItemResponse, 0, len(items)),
		Count: len(items),
	}
	for _, it := range items {
		response.Items = append(response.Items, dto.ReviewItemResponse{
			Kind:                   it.Kind,
			RecordID:               it.RecordID,
			Status:                 it.Status,
			CandidateTransactionID: it.CandidateTransactionID,
			Score:                  it.Score,
			Reason:                 it.Reason,
			Vendor:                 it.Vendor,
			Amount:                 it.Amount,
			RecordDate:             it.RecordDate,
			MatchRunID:             it.MatchRunID,
			UpdatedAt:              formatTime(it.UpdatedAt),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
