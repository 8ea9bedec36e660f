// internal/app/features/institutions/routes.go
package institutions

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
)

// Routes mounts the institution lookup routes (typically at "/institutions").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeSearch)
		pr.Get("/{externalID}", h.ServeInstitution)
	})

	return r
}
