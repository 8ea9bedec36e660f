// internal/app/features/projects/handler.go
package projects

import (
	projectstore "github.com/yovalentych/research-os-sub002/internal/app/store/projects"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"go.uber.org/zap"
)

// EntityType labels project rows in the audit trail.
const EntityType = "project"

type Handler struct {
	Projects *projectstore.Store
	Resolver *authz.Resolver
	Audit    *auditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs the projects feature handler.
func NewHandler(projects *projectstore.Store, resolver *authz.Resolver, audit *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projects,
		Resolver: resolver,
		Audit:    audit,
		Log:      logger,
	}
}
