// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
)

// Routes mounts the user administration routes (typically at "/users").
// Elevated roles may read accounts; only owners change global roles, and
// the handler enforces that rule itself.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleOwner, models.RoleSupervisor, models.RoleMentor))

		pr.Get("/{userID}", h.ServeUser)
		pr.Put("/{userID}/role", h.HandleSetRole)
	})

	return r
}
