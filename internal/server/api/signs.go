package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/store"
)

// SignHandler handles HTTP requests for sign resources. Changes are written
// to the store and take effect in the tutor's catalog on the next start.
type SignHandler struct {
	store *store.Store
}

// NewSignHandler creates a new SignHandler with the given store.
func NewSignHandler(s *store.Store) *SignHandler {
	return &SignHandler{store: s}
}

// ServeHTTP routes /api/signs and /api/signs/{id}.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/signs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, err := strconv.Atoi(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sign id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSignRequest struct {
	ID          *int   `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	Tip         string `json:"tip"`
}

type updateSignRequest struct {
	Name        string  `json:"name"`
	Instruction *string `json:"instruction"`
	Tip         *string `json:"tip"`
}

type signResponse struct {
	catalog.Sign
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

func toResponse(s *store.Sign) signResponse {
	return signResponse{
		Sign:      s.Sign,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, s := range signs {
		response.Signs = append(response.Signs, toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SignHandler) get(w http.ResponseWriter, r *http.Request, id int) {
	sign, err := h.store.Signs().Get(id)
	if err != nil {
		h.storeError(w, err, "Failed to get sign")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

// create handles POST /api/signs. The id is the detector class id; without
// one the next free id is used.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	var id int
	if req.ID != nil {
		if *req.ID < 0 {
			writeError(w, http.StatusBadRequest, "Sign id must not be negative")
			return
		}
		id = *req.ID
	} else {
		next, err := h.nextID()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create sign")
			return
		}
		id = next
	}

	sign := &store.Sign{Sign: catalog.Sign{
		ID:          id,
		Name:        req.Name,
		Instruction: req.Instruction,
		Tip:         req.Tip,
	}}
	if err := h.store.Signs().Create(sign); err != nil {
		h.storeError(w, err, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sign))
}

func (h *SignHandler) update(w http.ResponseWriter, r *http.Request, id int) {
	sign, err := h.store.Signs().Get(id)
	if err != nil {
		h.storeError(w, err, "Failed to get sign")
		return
	}

	var req updateSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		sign.Name = req.Name
	}
	if req.Instruction != nil {
		sign.Instruction = *req.Instruction
	}
	if req.Tip != nil {
		sign.Tip = *req.Tip
	}

	if err := h.store.Signs().Update(sign); err != nil {
		h.storeError(w, err, "Failed to update sign")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request, id int) {
	if err := h.store.Signs().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete sign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SignHandler) nextID() (int, error) {
	signs, err := h.store.Signs().List()
	if err != nil {
		return 0, err
	}
	next := 0
	for _, s := range signs {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next, nil
}

func (h *SignHandler) storeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Sign not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Sign id or name already exists")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
