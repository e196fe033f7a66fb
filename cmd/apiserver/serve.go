package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/api"
	"github.com/aleka07/cloudguard/pkg/config"
	"github.com/aleka07/cloudguard/pkg/engine"
	"github.com/aleka07/cloudguard/pkg/logging"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/persistence"
	"github.com/aleka07/cloudguard/pkg/policy"
	"github.com/aleka07/cloudguard/pkg/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and HTTP API",
		RunE:  runServe,
	}
}

func loggingOptions(c config.LoggingConfig) logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	mgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := mgr.Get()

	log, err := logging.New(loggingOptions(cfg.Logging))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return err
	}
	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := newEngine(cfg, pol, source, log, metrics.New(reg), time.Now)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.Enabled {
		store, err := openStore(ctx, cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		defer store.Close()
		updates, unsubscribe := eng.Subscribe(persistence.RecordedEvents...)
		defer unsubscribe()
		go persistence.NewRecorder(store, log).Run(ctx, updates)
	}

	mgr.Watch(func(next *config.Config) {
		reloadThresholds(eng, next, log)
	}, func(err error) {
		log.Warn("Ignoring invalid configuration change", zap.Error(err))
	})
	if cfg.Policy.File != "" {
		watcher, err := policy.Watch(cfg.Policy.File, func(next policy.Policy) {
			applyThresholds(eng, next, log)
		}, func(err error) {
			log.Warn("Policy reload failed, keeping current thresholds", zap.Error(err))
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	seed := func(ctx context.Context, resourceID string) (model.MetricSample, error) {
		return telemetry.Collect(ctx, source, resourceID, cfg.Engine.TelemetryTimeout)
	}
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      api.NewAPI(eng, seed, log).Routes(reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", server.Addr), zap.String("telemetry_source", cfg.Telemetry.Source))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received, starting graceful shutdown", zap.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful server shutdown failed", zap.Error(err))
			if closeErr := server.Close(); closeErr != nil {
				log.Error("Server close failed", zap.Error(closeErr))
			}
		}
	}

	log.Info("Application shutdown finished")
	return nil
}

func openStore(ctx context.Context, dsn string, log *zap.Logger) (*persistence.PostgresStore, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := persistence.NewPostgresStore(initCtx, dsn, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database connection: %w", err)
	}
	if err := store.Migrate(initCtx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// reloadThresholds applies the alert thresholds of the policy file named by
// next. It runs on config file changes; edits to the policy file itself are
// picked up by the policy watcher started in runServe, which keeps watching
// the path given at startup. Recommendation rules are read once at startup.
func reloadThresholds(eng *engine.Engine, next *config.Config, log *zap.Logger) {
	pol, err := policy.Load(next.Policy.File)
	if err != nil {
		log.Warn("Policy reload failed, keeping current thresholds", zap.Error(err))
		return
	}
	applyThresholds(eng, pol, log)
}

func applyThresholds(eng *engine.Engine, pol policy.Policy, log *zap.Logger) {
	if err := eng.SetThresholds(pol.Thresholds); err != nil {
		log.Warn("Threshold update rejected", zap.Error(err))
	}
}
