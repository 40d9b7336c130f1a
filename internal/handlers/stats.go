package handlers

import (
	"net/http"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	Participants int   `json:"participants"`
	Messages     int64 `json:"messages"`
}

// Stats returns room occupancy and message volume.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participants, err := h.registry.List(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		Participants: len(participants),
		Messages:     messages,
	})
}
