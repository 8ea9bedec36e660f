// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (RESEARCHOS_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS, log level, and CORS; everything specific to projects,
// the audit trail, and the institution registry lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name (default: researchos-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// DevLogin mounts POST /login, which signs a user in by email alone.
	// Never enable it outside local development.
	DevLogin bool

	// OwnerEmail is created or promoted to the owner role at startup.
	OwnerEmail string

	// Access and audit
	SharedDiscovery string // participants | authenticated | off
	AuditLogZap     bool   // mirror audit entries to the structured log
	HistoryMaxLimit int64  // upper bound for GET /projects/{id}/audit

	// Institution registry
	RegistryBaseURL             string   // blank disables sync
	RegistrySources             []string // dataset keys to keep mirrored
	RegistryPageSize            int
	RegistryTokenURL            string // client-credentials token endpoint (optional)
	RegistryClientID            string
	RegistryClientSecret        string
	RegistryDefaultIntervalDays int
	RegistryCheckInterval       time.Duration // scheduler tick
	RegistryStaleAfter          time.Duration // forced takeover threshold
	RegistryHTTPTimeout         time.Duration

	// Timeouts applied through system/timeouts.
	Timeouts timeouts.Config
}

// RegistryEnabled reports whether an upstream registry is configured.
func (c AppConfig) RegistryEnabled() bool {
	return c.RegistryBaseURL != ""
}
