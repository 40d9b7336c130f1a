package handlers

import (
	"net/http"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name string `json:"name"`
}

// ListParticipants returns every participant.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.registry.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, participants)
}

// RegisterParticipant handles joining the room.
func (h *Handler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.registry.Register(r.Context(), req.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Status(w, http.StatusCreated)
}
