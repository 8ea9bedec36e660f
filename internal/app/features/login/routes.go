// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves the development sign-in. Bootstrap mounts it only when
// dev_login is enabled.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLoginPost)
	return r
}
