package vouchers

import "github.com/go-chi/chi/v5"

// MountRoutes registers voucher routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/vouchers", h.handleCreate)
	r.Get("/vouchers", h.handleList)
	r.Get("/vouchers/{id}", h.handleGet)
	r.Post("/vouchers/{id}/post", h.handlePost)
	r.Post("/vouchers/{id}/pay", h.handleMarkPaid)
}
