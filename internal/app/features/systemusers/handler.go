// internal/app/features/systemusers/handler.go
package systemusers

import (
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// EntityType labels user rows in the audit trail.
const EntityType = "user"

// Handler administers global accounts.
type Handler struct {
	Users *userstore.Store
	Audit *auditlog.Recorder
	Log   *zap.Logger
}

func NewHandler(users *userstore.Store, audit *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Audit: audit, Log: logger}
}
