package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

// HistoryHandler serves the stored completion history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type historyResponse struct {
	Recent  []*store.Completion  `json:"recent"`
	Summary []*store.SignSummary `json:"summary"`
}

// ServeHTTP handles GET /api/history?limit=N.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	recent, err := h.store.Completions().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	summary, err := h.store.Completions().Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	if recent == nil {
		recent = []*store.Completion{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Recent: recent, Summary: summary})
}
