// internal/app/features/projects/routes.go
package projects

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
)

// Routes mounts the project routes. Typically:
// r.Mount("/projects", projects.Routes(handler, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Route("/{"+projectscope.Param+"}", func(ir chi.Router) {
			ir.Get("/", h.ServeProject)
			ir.Patch("/", h.HandleUpdate)
			ir.Get("/access", h.ServeAccess)
			ir.Post("/archive", h.HandleArchive)
		})
	})

	return r
}
