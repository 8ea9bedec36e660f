// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ResearchOS.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: RESEARCHOS_MONGO_URI, RESEARCHOS_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "research_os", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "", Desc: "Session signing key (required in production, 32+ chars)"},
	{Name: "session_name", Default: "researchos-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},
	{Name: "dev_login", Default: false, Desc: "Mount POST /login (email-only sign-in, development only)"},
	{Name: "owner_email", Default: "", Desc: "Email of the account created or promoted to owner at startup"},

	// Access and audit
	{Name: "shared_discovery", Default: authz.DiscoveryParticipants, Desc: "Shared-project discovery: 'participants', 'authenticated', or 'off'"},
	{Name: "audit_log_zap", Default: true, Desc: "Mirror audit entries to the structured log"},
	{Name: "history_max_limit", Default: audit.MaxLimit, Desc: "Maximum page size for project history"},

	// Institution registry
	{Name: "registry_base_url", Default: "", Desc: "Upstream registry base URL (blank disables sync)"},
	{Name: "registry_sources", Default: "", Desc: "Comma-separated registry dataset keys"},
	{Name: "registry_page_size", Default: 200, Desc: "Records requested per upstream page"},
	{Name: "registry_token_url", Default: "", Desc: "OAuth2 client-credentials token URL"},
	{Name: "registry_client_id", Default: "", Desc: "OAuth2 client ID"},
	{Name: "registry_client_secret", Default: "", Desc: "OAuth2 client secret"},
	{Name: "registry_default_interval_days", Default: models.DefaultRegistryIntervalDays, Desc: "Default sync interval in days (1 or 7)"},
	{Name: "registry_check_interval", Default: "1h", Desc: "How often the scheduler checks sources"},
	{Name: "registry_stale_after", Default: "2h", Desc: "Age after which a forced sync may take over a running one"},
	{Name: "registry_http_timeout", Default: "30s", Desc: "Timeout for one upstream request"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Database ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "Listing and count timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Index and batch timeout"},
	{Name: "timeout_sync", Default: "15m", Desc: "Whole registry sync timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// RESEARCHOS_* environment variables, and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RESEARCHOS", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),
		DevLogin:         appValues.Bool("dev_login"),
		OwnerEmail:       normalize.Email(appValues.String("owner_email")),

		SharedDiscovery: appValues.String("shared_discovery"),
		AuditLogZap:     appValues.Bool("audit_log_zap"),
		HistoryMaxLimit: int64(appValues.Int("history_max_limit")),

		RegistryBaseURL:             strings.TrimSpace(appValues.String("registry_base_url")),
		RegistrySources:             ParseSourceKeys(appValues.String("registry_sources")),
		RegistryPageSize:            appValues.Int("registry_page_size"),
		RegistryTokenURL:            appValues.String("registry_token_url"),
		RegistryClientID:            appValues.String("registry_client_id"),
		RegistryClientSecret:        appValues.String("registry_client_secret"),
		RegistryDefaultIntervalDays: appValues.Int("registry_default_interval_days"),
		RegistryCheckInterval:       appValues.Duration("registry_check_interval", time.Hour),
		RegistryStaleAfter:          appValues.Duration("registry_stale_after", 2*time.Hour),
		RegistryHTTPTimeout:         appValues.Duration("registry_http_timeout", 30*time.Second),

		Timeouts: timeouts.Config{
			Ping:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
			Sync:   appValues.Duration("timeout_sync", timeouts.DefaultSync),
		},
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// ResearchOS checks the MongoDB URI, the discovery mode, the registry
// settings, and that a production deployment never exposes dev login.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := authz.DiscoveryFor(appCfg.SharedDiscovery, nil, nil); err != nil {
		return err
	}
	if appCfg.HistoryMaxLimit <= 0 {
		return fmt.Errorf("history_max_limit must be positive, got %d", appCfg.HistoryMaxLimit)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.DevLogin {
		return fmt.Errorf("dev_login must not be enabled in prod")
	}

	if !appCfg.RegistryEnabled() {
		if len(appCfg.RegistrySources) > 0 {
			logger.Warn("registry_sources set without registry_base_url; sync disabled",
				zap.Strings("sources", appCfg.RegistrySources))
		}
		return nil
	}
	if len(appCfg.RegistrySources) == 0 {
		return fmt.Errorf("registry_base_url is set but registry_sources is empty")
	}
	switch appCfg.RegistryDefaultIntervalDays {
	case models.RegistryIntervalDaily, models.RegistryIntervalWeekly:
	default:
		return fmt.Errorf("registry_default_interval_days must be %d or %d, got %d",
			models.RegistryIntervalDaily, models.RegistryIntervalWeekly, appCfg.RegistryDefaultIntervalDays)
	}
	if appCfg.RegistryTokenURL != "" && appCfg.RegistryClientID == "" {
		return fmt.Errorf("registry_token_url requires registry_client_id")
	}
	return nil
}

// ParseSourceKeys parses a comma-separated key list, normalizing and dropping
// blanks and duplicates.
func ParseSourceKeys(raw string) []string {
	var keys []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		k := normalize.RegistryKey(part)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
