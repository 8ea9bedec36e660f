// internal/app/features/registry/handler.go
package registry

import (
	"context"

	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"go.uber.org/zap"
)

// Controller is the registry sync surface the handlers drive.
type Controller interface {
	SyncInfo(ctx context.Context, key string) (registrysync.Info, error)
	SetInterval(ctx context.Context, key string, days int) error
	TriggerSync(ctx context.Context, key string, force bool) (registrysync.Result, error)
}

type Handler struct {
	Sync Controller
	Keys []string // configured sources, listed by GET /registry
	Log  *zap.Logger
}

func NewHandler(sync Controller, keys []string, logger *zap.Logger) *Handler {
	return &Handler{Sync: sync, Keys: keys, Log: logger}
}
