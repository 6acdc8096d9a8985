package audithttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the audit query endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/audit", h.handleQuery)
}
