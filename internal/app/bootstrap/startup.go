// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after DB connections and schema
// setup: it guarantees the configured owner account and starts the
// registry scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	if err := ensureOwner(ctx, deps.Services.Users, appCfg.OwnerEmail, logger); err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}
	if deps.Services.Scheduler != nil {
		deps.Services.Scheduler.Start()
	}
	return nil
}

// ensureOwner creates the account for email with the owner role, or
// promotes an existing one. With no email it only warns when the system
// has no owner at all, since nobody could then change global roles.
func ensureOwner(ctx context.Context, users *userstore.Store, email string, logger *zap.Logger) error {
	if email == "" {
		n, err := users.CountByRole(ctx, models.RoleOwner)
		if err != nil {
			return err
		}
		if n == 0 {
			logger.Warn("no owner account exists; set owner_email to create one")
		}
		return nil
	}

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created, err := users.Create(ctx, models.User{
			FullName: ownerName(email),
			Email:    email,
			Role:     models.RoleOwner,
		})
		if err != nil {
			return err
		}
		logger.Info("owner account created", zap.String("user_id", created.ID.Hex()), zap.String("email", email))
		return nil
	case err != nil:
		return err
	}

	if u.Role == models.RoleOwner {
		return nil
	}
	if err := users.SetRole(ctx, u.ID, models.RoleOwner); err != nil {
		return err
	}
	logger.Info("account promoted to owner",
		zap.String("user_id", u.ID.Hex()),
		zap.String("previous_role", u.Role))
	return nil
}

// ownerName derives a display name from the mailbox part of email.
func ownerName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Owner"
	}
	return local
}
