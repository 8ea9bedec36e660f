package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yovalentych/research-os-sub002/internal/app/bootstrap"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.uber.org/zap"
)

var (
	mongoURI      string
	mongoDatabase string
	registryURL   string
	sources       string
	verbose       bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:          "registrysync",
	Short:        "Inspect and run institution registry syncs",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
		}
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file loaded, using environment", zap.Error(err))
		}
		fromEnv(cmd, "mongo-uri", &mongoURI, "RESEARCHOS_MONGO_URI")
		fromEnv(cmd, "mongo-database", &mongoDatabase, "RESEARCHOS_MONGO_DATABASE")
		fromEnv(cmd, "registry-base-url", &registryURL, "RESEARCHOS_REGISTRY_BASE_URL")
		fromEnv(cmd, "sources", &sources, "RESEARCHOS_REGISTRY_SOURCES")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [key...]",
	Short: "Show sync state for each source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services, keys []string) error {
			for _, key := range pick(args, keys) {
				info, err := svc.Sync.SyncInfo(ctx, key)
				if err != nil {
					return err
				}
				if err := printJSON(info); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run [key...]",
	Short: "Sync each source that is due (or every source with --force)",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services, keys []string) error {
			ctx, cancel := context.WithTimeout(ctx, timeouts.Sync())
			defer cancel()
			for _, key := range pick(args, keys) {
				res, err := svc.Sync.TriggerSync(ctx, key, force)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				if err := printJSON(map[string]any{"key": key, "result": res}); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var intervalCmd = &cobra.Command{
	Use:   "interval <key> <days>",
	Short: fmt.Sprintf("Set a source's sync interval (%d or %d days)", models.RegistryIntervalDaily, models.RegistryIntervalWeekly),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("days must be a number: %w", err)
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services, _ []string) error {
			if err := svc.Sync.SetInterval(ctx, args[0], days); err != nil {
				return err
			}
			info, err := svc.Sync.SyncInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(info)
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI (RESEARCHOS_MONGO_URI)")
	pf.StringVar(&mongoDatabase, "mongo-database", "research_os", "MongoDB database name (RESEARCHOS_MONGO_DATABASE)")
	pf.StringVar(&registryURL, "registry-base-url", "", "Upstream registry base URL (RESEARCHOS_REGISTRY_BASE_URL)")
	pf.StringVar(&sources, "sources", "", "Comma-separated dataset keys (RESEARCHOS_REGISTRY_SOURCES)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log sync progress")

	runCmd.Flags().Bool("force", false, "Sync even if not due, taking over a stale in-progress run")

	rootCmd.AddCommand(statusCmd, runCmd, intervalCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fromEnv fills *dst from the environment unless the flag was set.
func fromEnv(cmd *cobra.Command, flag string, dst *string, env string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

func appConfig() bootstrap.AppConfig {
	return bootstrap.AppConfig{
		MongoURI:                    mongoURI,
		MongoDatabase:               mongoDatabase,
		SharedDiscovery:             os.Getenv("RESEARCHOS_SHARED_DISCOVERY"),
		RegistryBaseURL:             registryURL,
		RegistrySources:             bootstrap.ParseSourceKeys(sources),
		RegistryTokenURL:            os.Getenv("RESEARCHOS_REGISTRY_TOKEN_URL"),
		RegistryClientID:            os.Getenv("RESEARCHOS_REGISTRY_CLIENT_ID"),
		RegistryClientSecret:        os.Getenv("RESEARCHOS_REGISTRY_CLIENT_SECRET"),
		RegistryDefaultIntervalDays: models.DefaultRegistryIntervalDays,
		RegistryStaleAfter:          2 * time.Hour,
		RegistryHTTPTimeout:         30 * time.Second,
	}
}

// withServices connects, ensures the schema, runs fn, and disconnects.
func withServices(ctx context.Context, fn func(context.Context, *bootstrap.Services, []string) error) error {
	cfg := appConfig()
	if !cfg.RegistryEnabled() {
		return fmt.Errorf("registry base url is not configured")
	}
	deps, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.MongoClient.Disconnect(context.Background()) }()
	defer deps.Services.LoginLimiter.Close()

	return fn(ctx, deps.Services, cfg.RegistrySources)
}

// connect opens the database the way the server does, including the
// unique indexes the sync lock and the mirror upserts depend on. The CLI
// may run against a database the server has never initialized.
func connect(ctx context.Context, cfg bootstrap.AppConfig, logger *zap.Logger) (bootstrap.DBDeps, error) {
	deps, err := bootstrap.ConnectDB(ctx, nil, cfg, logger)
	if err != nil {
		return bootstrap.DBDeps{}, err
	}
	if err := bootstrap.EnsureSchema(ctx, nil, cfg, deps, logger); err != nil {
		deps.Services.LoginLimiter.Close()
		_ = deps.MongoClient.Disconnect(context.Background())
		return bootstrap.DBDeps{}, fmt.Errorf("ensure schema: %w", err)
	}
	return deps, nil
}

func pick(args, configured []string) []string {
	if len(args) > 0 {
		return args
	}
	return configured
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
