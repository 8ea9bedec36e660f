// internal/app/features/members/handler.go
package members

import (
	membershipstore "github.com/yovalentych/research-os-sub002/internal/app/store/memberships"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"go.uber.org/zap"
)

// EntityType labels membership rows in the audit trail.
const EntityType = "membership"

// Handler is the feature-level handler for project members.
type Handler struct {
	Memberships *membershipstore.Store
	Resolver    *authz.Resolver
	Audit       *auditlog.Recorder
	Log         *zap.Logger
}

func NewHandler(memberships *membershipstore.Store, resolver *authz.Resolver, audit *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		Memberships: memberships,
		Resolver:    resolver,
		Audit:       audit,
		Log:         logger,
	}
}
