package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// LedgerHandler handles ledger HTTP requests.
type LedgerHandler struct {
	*Base
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(repo storage.Repository) *LedgerHandler {
	return &LedgerHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/ledger - returns current entries with pagination.
//
// Query parameters: account_id, status (MATCHED|UNMATCHED), from, to
// (YYYY-MM-DD), vendor, limit, offset. vendor matches every spelling that
// normalizes to the same token, so "Tim Hortons Inc." finds "TIM HORTONS".
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	defaults := dto.DefaultLedgerListParams()

	status := strings.ToUpper(q.Get("status"))
	if status != "" && status != storage.EntryMatched && status != storage.EntryUnmatched {
		h.WriteError(w, http.StatusBadRequest,
			dto.InvalidStatusError("status", q.Get("status"), storage.EntryMatched, storage.EntryUnmatched))
		return
	}
	from, ok := ParseDateParam(r, "from")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.InvalidDateError("from", q.Get("from")))
		return
	}
	to, ok := ParseDateParam(r, "to")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.InvalidDateError("to", q.Get("to")))
		return
	}

	vendor := strings.TrimSpace(q.Get("vendor"))
	if vendor != "" && normalizer.VendorToken(vendor) == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("vendor has no searchable words"))
		return
	}

	result, err := h.repo.ListLedger(r.Context(), storage.LedgerFilters{
		AccountID: q.Get("account_id"),
		Status:    status,
		From:      from,
		To:        to,
		Vendor:    vendor,
		Limit:     ParseIntParam(r, "limit", defaults.Limit),
		Offset:    ParseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.LedgerListResponse{
		Entries:    make([]dto.LedgerEntryResponse, 0, len(result.Entries)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, e := range result.Entries {
		response.Entries = append(response.Entries, toLedgerEntryResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// History handles GET /api/ledger/{transactionID}/history - returns every
// version of a transaction's entry, oldest first.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transactionID")
	if txID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction ID is required"))
		return
	}

	entries, err := h.repo.GetLedgerHistory(r.Context(), txID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if len(entries) == 0 {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
		return
	}

	response := dto.LedgerListResponse{
		Entries:    make([]dto.LedgerEntryResponse, 0, len(entries)),
		TotalCount: len(entries),
		Limit:      len(entries),
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, toLedgerEntryResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func toLedgerEntryResponse(e storage.LedgerEntry) dto.LedgerEntryResponse {
	resp := dto.LedgerEntryResponse{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		Version:       e.Version,
		Status:        e.Status,
		ReceiptID:     e.ReceiptID,
		Score:         e.Score,
		AccountID:     e.AccountID,
		Vendor:        e.VendorName,
		Address:       e.Address,
		Category:      e.Category,
		Amount:        normalizer.FormatAmount(e.Amount, e.Currency),
		AmountMinor:   e.Amount,
		Currency:      e.Currency,
		PostedDate:    e.PostedDate,
		Description:   e.Description,
		MatchRunID:    e.MatchRunID,
		CreatedAt:     formatTime(e.CreatedAt),
		Current:       e.IsCurrent(),
	}
	if e.SupersededAt != nil {
		resp.SupersededAt = formatTime(*e.SupersededAt)
	}
	return resp
}
