// internal/app/bootstrap/services.go
package bootstrap

import (
	"fmt"

	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	institutionstore "github.com/yovalentych/research-os-sub002/internal/app/store/institutions"
	membershipstore "github.com/yovalentych/research-os-sub002/internal/app/store/memberships"
	projectstore "github.com/yovalentych/research-os-sub002/internal/app/store/projects"
	registrysourcestore "github.com/yovalentych/research-os-sub002/internal/app/store/registrysources"
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/metrics"
	"github.com/yovalentych/research-os-sub002/internal/app/system/ratelimit"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registryclient"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"github.com/yovalentych/research-os-sub002/internal/app/system/versioning"
	"github.com/yovalentych/research-os-sub002/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services is the wired application: stores plus the engines built on
// them. Sync and Scheduler are nil when no registry is configured.
type Services struct {
	Metrics *metrics.Metrics

	Users        *userstore.Store
	Projects     *projectstore.Store
	Memberships  *membershipstore.Store
	Audit        *audit.Store
	Versions     *fieldversionstore.Store
	Institutions *institutionstore.Store
	Sources      *registrysourcestore.Store

	LoginLimiter *ratelimit.LoginLimiter

	Resolver  *authz.Resolver
	Recorder  *auditlog.Recorder
	Sync      *registrysync.Controller
	Scheduler *workers.RegistryScheduler
}

// NewServices wires every component against db.
func NewServices(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) (*Services, error) {
	m := metrics.New()
	s := &Services{
		Metrics:      m,
		Users:        userstore.New(db),
		Projects:     projectstore.New(db),
		Memberships:  membershipstore.New(db),
		Audit:        audit.New(db),
		Versions:     fieldversionstore.New(db),
		Institutions: institutionstore.New(db),
		Sources:      registrysourcestore.New(db),
		LoginLimiter: ratelimit.NewLoginLimiter(),
	}

	discovery, err := authz.DiscoveryFor(appCfg.SharedDiscovery, s.Projects, s.Memberships)
	if err != nil {
		return nil, err
	}
	s.Resolver = authz.NewResolver(s.Projects, s.Memberships, discovery, m)
	s.Recorder = auditlog.New(s.Audit, versioning.NewTracker(s.Versions, m), logger,
		auditlog.Config{MirrorToLog: appCfg.AuditLogZap}, auditlog.WithMetrics(m))

	if !appCfg.RegistryEnabled() {
		logger.Info("registry sync disabled (no registry_base_url)")
		return s, nil
	}
	client, err := registryclient.New(registryclient.Config{
		BaseURL:      appCfg.RegistryBaseURL,
		PageSize:     appCfg.RegistryPageSize,
		Timeout:      appCfg.RegistryHTTPTimeout,
		TokenURL:     appCfg.RegistryTokenURL,
		ClientID:     appCfg.RegistryClientID,
		ClientSecret: appCfg.RegistryClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("registry client: %w", err)
	}
	s.Sync = registrysync.New(s.Sources, s.Institutions, client, logger.Named("registrysync"), m, registrysync.Config{
		DefaultIntervalDays: appCfg.RegistryDefaultIntervalDays,
		StaleAfter:          appCfg.RegistryStaleAfter,
	})
	s.Scheduler = workers.NewRegistryScheduler(s.Sync, logger.Named("registryscheduler"),
		appCfg.RegistrySources, appCfg.RegistryCheckInterval)
	return s, nil
}
