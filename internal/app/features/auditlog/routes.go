// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
)

// Routes mounts the history routes of one project. Typically:
// r.Mount("/projects/{projectID}/audit", auditlog.Routes(handler, sm))
//
// Access follows the project: anyone who can view it can read its history.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
	})

	return r
}

// VersionRoutes mounts the field history routes. Typically:
// r.Mount("/projects/{projectID}/versions", auditlog.VersionRoutes(handler, sm))
func VersionRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/{entityType}/{entityID}", h.ServeVersions)
	})

	return r
}
