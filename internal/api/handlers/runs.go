package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/receipt-ledger/internal/api/dto"
	"github.com/eshaffer321/receipt-ledger/internal/infrastructure/storage"
)

// RunsHandler handles match run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent match runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultMatchRunListParams().Limit)

	runs, err := h.repo.ListMatchRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.MatchRunListResponse{
		Runs:  make([]dto.MatchRunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toMatchRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single match run.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetMatchRun(r.Context(), id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("match run"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toMatchRunResponse(*run))
}

func toMatchRunResponse(run storage.MatchRun) dto.MatchRunResponse {
	return dto.MatchRunResponse{
		ID:                run.ID,
		StartedAt:         formatTime(run.StartedAt),
		CompletedAt:       formatTime(run.CompletedAt),
		ElapsedMs:         run.ElapsedMs,
		ReceiptsIn:        run.ReceiptsIn,
		TransactionsIn:    run.TransactionsIn,
		Invalid:           run.InvalidCount,
		Matched:           run.Matched,
		Ambiguous:         run.Ambiguous,
		Unmatched:         run.Unmatched,
		EntriesCreated:    run.EntriesCreated,
		EntriesSuperseded: run.EntriesSuperseded,
		Reopened:          run.Reopened,
		Policy:            run.Policy,
		Status:            run.Status,
	}
}
