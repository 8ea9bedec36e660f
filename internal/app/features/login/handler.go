// internal/app/features/login/handler.go
package login

import (
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Handler signs users in by email alone. It is only mounted when the
// dev_login setting is on; production deployments sit behind an identity
// provider that establishes the session instead.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil disables throttling
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Users: users, SessionMgr: sessionMgr, Limiter: limiter, Log: logger}
}
