// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
)

// Handler serves the identity of the current session.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Response is the body of GET /api/user. Signed-out callers get
// IsAuthenticated=false and empty fields rather than an error.
type Response struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Elevated        bool   `json:"elevated"`
}

// ServeUserInfo handles GET /api/user.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		respond.OK(w, Response{})
		return
	}
	respond.OK(w, Response{
		IsAuthenticated: true,
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Role:            user.Role,
		Elevated:        authz.IsElevated(user.Role),
	})
}
