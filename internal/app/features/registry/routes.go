// internal/app/features/registry/routes.go
package registry

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
)

// Routes mounts the registry administration routes (typically at "/registry").
// Only elevated global roles may inspect or drive syncs.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleOwner, models.RoleSupervisor, models.RoleMentor))

		pr.Get("/", h.ServeList)
		pr.Get("/{key}", h.ServeInfo)
		pr.Post("/{key}/sync", h.HandleSync)
		pr.Put("/{key}/interval", h.HandleInterval)
	})

	return r
}
