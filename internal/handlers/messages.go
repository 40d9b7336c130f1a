package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/batepapo/internal/api/middleware"
	"github.com/eldtechnologies/batepapo/internal/chat"
)

// ListMessages returns the messages visible to the requesting user.
// An optional ?limit=N keeps only the N most recent.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			h.JSON(w, http.StatusUnprocessableEntity, ValidationResponse{
				Error:   "validation failed",
				Details: []string{`"limit" must be a positive integer`},
			})
			return
		}
		limit = l
	}

	messages, err := h.log.List(r.Context(), user, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, messages)
}

// PostMessage appends a message from the requesting user.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req chat.MessageInput
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.log.Post(r.Context(), user, req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Status(w, http.StatusCreated)
}

// UpdateMessage edits a message owned by the requesting user.
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req chat.MessageInput
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.log.Update(r.Context(), id, user, req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Status(w, http.StatusOK)
}

// DeleteMessage removes a message owned by the requesting user.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.log.Delete(r.Context(), id, user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Status(w, http.StatusOK)
}
