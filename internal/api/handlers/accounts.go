package handlers

import (
	"net/http"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// AccountsHandler lists known accounts.
type AccountsHandler struct {
	*Base
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(repo storage.Repository) *AccountsHandler {
	return &AccountsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.ListAccounts(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AccountListResponse{
		Accounts: make([]dto.AccountResponse, 0, len(accounts)),
		Count:    len(accounts),
	}
	for _, a := range accounts {
		response.Accounts = append(response.Accounts, dto.AccountResponse{
			ID:         a.ID,
			Label:      a.Label,
			CardSuffix: a.CardSuffix,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
