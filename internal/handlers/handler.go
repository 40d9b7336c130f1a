package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/batepapo/internal/chat"
	"github.com/eldtechnologies/batepapo/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store    store.DataStore
	registry *chat.Registry
	log      *chat.Log
	logger   zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(s store.DataStore, registry *chat.Registry, log *chat.Log, logger zerolog.Logger) *Handler {
	return &Handler{store: s, registry: registry, log: log, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Status sends a bare status code with its text as a plain body.
func (h *Handler) Status(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(http.StatusText(status)))
}

// ValidationResponse is the body of a 422 caused by invalid input.
type ValidationResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// fail maps a domain error to its status code. Unexpected errors are logged and
// reported as 500 without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *chat.ValidationError
	switch {
	case errors.As(err, &verr):
		h.JSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:   "validation failed",
			Details: verr.Details,
		})
	case errors.Is(err, chat.ErrUnknownSender):
		h.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, chat.ErrConflict):
		h.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		h.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrUnauthorized):
		h.Error(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v, answering 422 on malformed input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.JSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:   "validation failed",
			Details: []string{"body must be a JSON object"},
		})
		return false
	}
	return true
}
