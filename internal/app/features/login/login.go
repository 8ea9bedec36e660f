// internal/app/features/login/login.go
package login

import (
	"errors"
	"net/http"

	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/ratelimit"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email string `json:"email"`
}

// HandleLoginPost handles POST /login. Unknown and disabled accounts get
// the same 401 so the endpoint does not reveal which emails exist.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	const op = "login.Post"
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "email is required", nil))
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
			respond.JSON(w, http.StatusTooManyRequests, respond.ErrorBody{Error: "rate_limited", Message: reason})
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login lookup")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Error(w, r, h.Log, apperr.E(apperr.KindUnauthorized, op, "unknown or disabled account", nil))
		return
	case err != nil:
		respond.Error(w, r, h.Log, apperr.Storage(op, err))
		return
	}
	if normalize.Status(u.Status) == userstore.StatusDisabled {
		h.Log.Info("login refused for disabled account", zap.String("user_id", u.ID.Hex()))
		respond.Error(w, r, h.Log, apperr.E(apperr.KindUnauthorized, op, "unknown or disabled account", nil))
		return
	}

	su := auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindUnknown, op, "could not save session", err))
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.Log.Info("user signed in", zap.String("user_id", su.ID), zap.String("role", su.Role))
	respond.OK(w, u)
}
