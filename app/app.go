// app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/mild/config"
	"github.com/dalemusser/mild/logging"
	"github.com/dalemusser/mild/metrics"
	"github.com/dalemusser/mild/pantry/version"
	"github.com/dalemusser/mild/server"
	"go.uber.org/zap"
)

// Hooks are the steps a service plugs into Run. C is the service's own
// config type and D the bundle of backends it connects to.
type Hooks[C any, D any] struct {
	// Name is used for logging.
	Name string

	// LoadConfig returns the core config and the service config.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// ConnectDB opens the backends. ctx carries core.DBConnectTimeout.
	ConnectDB func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// EnsureSchema is optional. ctx carries core.IndexBootTimeout.
	EnsureSchema func(ctx context.Context, core *config.CoreConfig, appCfg C, db D, logger *zap.Logger) error

	// BuildHandler returns the service's root handler.
	BuildHandler func(core *config.CoreConfig, appCfg C, db D, logger *zap.Logger) (http.Handler, error)

	// Shutdown is optional. It runs after the server stops, and also when a
	// later startup step fails, so that backends opened by ConnectDB are
	// released either way.
	Shutdown func(ctx context.Context, db D, logger *zap.Logger) error
}

// Run loads config, builds the logger, registers metrics, connects
// backends, prepares the schema, then serves until ctx is canceled or a
// shutdown signal arrives.
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	bootstrap := logging.BootstrapLogger()
	defer func() { _ = bootstrap.Sync() }()

	if hooks.LoadConfig == nil || hooks.ConnectDB == nil || hooks.BuildHandler == nil {
		return errors.New("app: LoadConfig, ConnectDB and BuildHandler are required")
	}

	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.BuildLogger(coreCfg.LogLevel, coreCfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("app", hooks.Name),
		zap.String("version", version.String()),
		zap.String("env", coreCfg.Env),
	)
	logger.Debug("core config", zap.String("config", coreCfg.Dump()))

	metrics.RegisterDefault(logger)

	connectCtx, cancel := context.WithTimeout(ctx, coreCfg.DBConnectTimeout)
	db, err := hooks.ConnectDB(connectCtx, coreCfg, appCfg, logger)
	cancel()
	if err != nil {
		logger.Error("database connect failed", zap.Error(err))
		return fmt.Errorf("connect: %w", err)
	}
	defer shutdown(hooks, coreCfg, db, logger)

	if hooks.EnsureSchema != nil {
		schemaCtx, cancel := context.WithTimeout(ctx, coreCfg.IndexBootTimeout)
		err := hooks.EnsureSchema(schemaCtx, coreCfg, appCfg, db, logger)
		cancel()
		if err != nil {
			logger.Error("schema setup failed", zap.Error(err))
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	ctx, stop := server.WithShutdownSignals(ctx, logger)
	defer stop()

	handler, err := hooks.BuildHandler(coreCfg, appCfg, db, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	return nil
}

func shutdown[C any, D any](hooks Hooks[C, D], core *config.CoreConfig, db D, logger *zap.Logger) {
	if hooks.Shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), core.HTTP.ShutdownTimeout)
	defer cancel()
	if err := hooks.Shutdown(ctx, db, logger); err != nil {
		logger.Warn("shutdown hook failed", zap.Error(err))
	}
}
