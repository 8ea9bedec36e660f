// internal/app/features/institutions/handler.go
package institutions

import (
	institutionstore "github.com/yovalentych/research-os-sub002/internal/app/store/institutions"
	"go.uber.org/zap"
)

// Handler serves lookups against the mirrored institution registry.
type Handler struct {
	Store *institutionstore.Store
	Log   *zap.Logger
}

func NewHandler(store *institutionstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}
