package handlers

import (
	"net/http"

	"github.com/eldtechnologies/batepapo/internal/api/middleware"
)

// Heartbeat refreshes the requesting participant's lastStatus.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	if err := h.registry.Heartbeat(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Status(w, http.StatusOK)
}
