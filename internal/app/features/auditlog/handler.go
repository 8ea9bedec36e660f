// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"go.uber.org/zap"
)

// Handler serves the read side of a project's audit trail and field history.
type Handler struct {
	Entries  *audit.Store
	Versions *fieldversionstore.Store
	Resolver *authz.Resolver
	Log      *zap.Logger

	// MaxLimit caps the page size a caller may ask for.
	MaxLimit int64
}

// NewHandler constructs the audit log feature handler. A maxLimit of zero
// or above the store's hard cap uses the store's cap.
func NewHandler(entries *audit.Store, versions *fieldversionstore.Store, resolver *authz.Resolver, maxLimit int64, logger *zap.Logger) *Handler {
	if maxLimit <= 0 || maxLimit > audit.MaxLimit {
		maxLimit = audit.MaxLimit
	}
	return &Handler{
		Entries:  entries,
		Versions: versions,
		Resolver: resolver,
		Log:      logger,
		MaxLimit: maxLimit,
	}
}
