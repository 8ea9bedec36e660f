// internal/app/features/members/routes.go
package members

import (
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
)

// Routes mounts the member routes of one project. Typically:
// r.Mount("/projects/{projectID}/members", members.Routes(handler, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleAdd)
		pr.Put("/{userID}", h.HandleSetRole)
		pr.Delete("/{userID}", h.HandleRemove)
	})

	return r
}
