// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dalemusser/mild/app"
	"github.com/dalemusser/mild/config"
	"github.com/dalemusser/mild/internal/app/features/databases"
	"github.com/dalemusser/mild/internal/app/features/params"
	"github.com/dalemusser/mild/internal/app/registry"
	"github.com/dalemusser/mild/metrics"
	"github.com/dalemusser/mild/pantry/health"
	"github.com/dalemusser/mild/pantry/pprof"
	"github.com/dalemusser/mild/pantry/version"
	"github.com/dalemusser/mild/router"
	"github.com/dalemusser/mild/toolkit/db/mongodb"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Hooks runs the service against the process command line.
var Hooks = NewHooks(pflag.CommandLine, os.Args[1:])

// NewHooks returns the service lifecycle with flags parsed from args on fs.
func NewHooks(fs *pflag.FlagSet, args []string) app.Hooks[AppConfig, DBDeps] {
	return app.Hooks[AppConfig, DBDeps]{
		Name: "mild",
		LoadConfig: func(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
			return LoadConfig(logger, fs, args)
		},
		ConnectDB:    ConnectDB,
		EnsureSchema: EnsureSchema,
		BuildHandler: BuildHandler,
		Shutdown:     Shutdown,
	}
}

// LoadConfig loads the core config and the mongo_* app keys.
func LoadConfig(logger *zap.Logger, fs *pflag.FlagSet, args []string) (*config.CoreConfig, AppConfig, error) {
	core, vals, err := config.LoadWithAppConfig(logger, fs, args, appKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := newAppConfig(vals)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return core, appCfg, nil
}

// ConnectDB registers every configured database. The first failure aborts
// startup and closes whatever was already registered.
func ConnectDB(ctx context.Context, core *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	reg := registry.New(
		registry.Credentials{Username: appCfg.MongoUsername, Password: appCfg.MongoPassword},
		logger,
		registry.WithConnectConfig(mongodb.ConnectConfig{ConnectTimeout: core.DBConnectTimeout}),
	)

	for _, id := range appCfg.MongoDatabases {
		if _, err := reg.Register(ctx, id, appCfg.ClusterFor(id)); err != nil {
			_ = reg.Close(context.Background())
			return DBDeps{}, fmt.Errorf("register %s: %w", id, err)
		}
	}
	return DBDeps{Registry: reg}, nil
}

// EnsureSchema re-runs collection setup for every registered database.
func EnsureSchema(ctx context.Context, _ *config.CoreConfig, _ AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := deps.Registry.EnsureAll(ctx); err != nil {
		return err
	}
	logger.Info("collections ready", zap.Int("databases", len(deps.Registry.Registered())))
	return nil
}

// BuildHandler mounts the operational endpoints, the params resource, and the
// read-only database listing. pprof is only mounted in dev.
func BuildHandler(core *config.CoreConfig, _ AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := router.New(core, logger)

	health.MountAt(r, "/health", nil, 0, logger)
	health.MountAt(r, "/ready", readinessChecks(deps.Registry), 0, logger)
	version.Mount(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Mount("/mild/params", params.Routes(params.NewHandler(logger)))
	if deps.Registry != nil {
		r.Mount("/databases", databases.Routes(databases.NewHandler(deps.Registry, logger)))
	}

	if core.Env == "dev" {
		pprof.Mount(r)
	}
	return r, nil
}

// readinessChecks pings each database registered at startup.
func readinessChecks(reg *registry.Registry) map[string]health.Check {
	checks := make(map[string]health.Check)
	if reg == nil {
		return checks
	}
	for _, id := range reg.Registered() {
		checks[string(id)] = func(ctx context.Context) error {
			return reg.Ping(ctx, id)
		}
	}
	return checks
}

// Shutdown disconnects every registered database.
func Shutdown(ctx context.Context, deps DBDeps, _ *zap.Logger) error {
	if deps.Registry == nil {
		return nil
	}
	return deps.Registry.Close(ctx)
}
