// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	auditlogfeature "github.com/yovalentych/research-os-sub002/internal/app/features/auditlog"
	healthfeature "github.com/yovalentych/research-os-sub002/internal/app/features/health"
	institutionsfeature "github.com/yovalentych/research-os-sub002/internal/app/features/institutions"
	loginfeature "github.com/yovalentych/research-os-sub002/internal/app/features/login"
	logoutfeature "github.com/yovalentych/research-os-sub002/internal/app/features/logout"
	membersfeature "github.com/yovalentych/research-os-sub002/internal/app/features/members"
	projectsfeature "github.com/yovalentych/research-os-sub002/internal/app/features/projects"
	registryfeature "github.com/yovalentych/research-os-sub002/internal/app/features/registry"
	systemusersfeature "github.com/yovalentych/research-os-sub002/internal/app/features/systemusers"
	userinfofeature "github.com/yovalentych/research-os-sub002/internal/app/features/userinfo"
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every route speaks JSON; the session middleware
// runs globally so handlers can read the current user via
// auth.CurrentUser(r), and each feature router enforces its own sign-in
// and role requirements.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Reload the user on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(svc.Metrics.Middleware)
	r.Use(sessionMgr.LoadSessionUser)

	// Operational endpoints
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Identity
	r.Mount("/api/user", userinfofeature.Routes(userinfofeature.NewHandler()))
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, logger)))
	if appCfg.DevLogin {
		logger.Warn("dev login enabled; POST /login signs in by email alone")
		r.Mount("/login", loginfeature.Routes(loginfeature.NewHandler(svc.Users, sessionMgr, svc.LoginLimiter, logger)))
	}
	r.Mount("/users", systemusersfeature.Routes(systemusersfeature.NewHandler(svc.Users, svc.Recorder, logger), sessionMgr))

	// Projects and everything scoped to one project
	r.Mount("/projects", projectsfeature.Routes(
		projectsfeature.NewHandler(svc.Projects, svc.Resolver, svc.Recorder, logger), sessionMgr))
	r.Mount("/projects/{projectID}/members", membersfeature.Routes(
		membersfeature.NewHandler(svc.Memberships, svc.Resolver, svc.Recorder, logger), sessionMgr))

	history := auditlogfeature.NewHandler(svc.Audit, svc.Versions, svc.Resolver, appCfg.HistoryMaxLimit, logger)
	r.Mount("/projects/{projectID}/audit", auditlogfeature.Routes(history, sessionMgr))
	r.Mount("/projects/{projectID}/versions", auditlogfeature.VersionRoutes(history, sessionMgr))

	// Institution registry
	r.Mount("/institutions", institutionsfeature.Routes(institutionsfeature.NewHandler(svc.Institutions, logger), sessionMgr))
	if svc.Sync != nil {
		r.Mount("/registry", registryfeature.Routes(
			registryfeature.NewHandler(svc.Sync, appCfg.RegistrySources, logger), sessionMgr))
	}

	return r, nil
}
