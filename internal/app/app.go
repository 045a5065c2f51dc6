// Package app initializes and holds the long-lived services shared by
// all commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/api"
	"github.com/openpress/newsimg/internal/config"
	"github.com/openpress/newsimg/internal/id/uuid"
	"github.com/openpress/newsimg/internal/logging"
	"github.com/openpress/newsimg/internal/metrics"
)

// App holds the shared services for one invocation: the validated
// configuration, the run-scoped logger, and the optional ops listener.
// It is built once in the root command hook and handed to subcommands
// through the command context.
type App struct {
	Config config.Config
	Logger *zap.Logger
	RunID  string

	ops *api.Server
}

// NewApp builds the application container from the given Viper
// instance. It fails fast when the configuration is invalid.
func NewApp(v *viper.Viper) (*App, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	metrics.Init()

	a := &App{Config: cfg, Logger: logger, RunID: runID}
	if cfg.Metrics.Addr != "" {
		a.ops = api.NewServer(logger.Named("api"))
		a.ops.Start(cfg.Metrics.Addr)
	}
	return a, nil
}

// Close shuts down the ops listener and flushes buffered log entries.
func (a *App) Close() {
	if a.ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.ops.Shutdown(ctx); err != nil {
			a.Logger.Warn("ops listener shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on some stderr targets; there is no useful recovery.
	_ = a.Logger.Sync()
}
