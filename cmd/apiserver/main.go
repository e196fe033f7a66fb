// cmd/apiserver/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/config"
	"github.com/aleka07/cloudguard/pkg/engine"
	"github.com/aleka07/cloudguard/pkg/forecast"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/policy"
	"github.com/aleka07/cloudguard/pkg/recommend"
	"github.com/aleka07/cloudguard/pkg/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "apiserver",
		Short:        "Live digital twins of cloud resources",
		Long:         `Runs the twin engine: samples telemetry, detects anomalies, forecasts load and cost, and serves the results over HTTP.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to YAML config file (env overrides use the CLOUDGUARD_ prefix)")

	root.AddCommand(newServeCmd(), newSimulateCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	mgr := config.NewManager(path)
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	if err := mgr.Validate(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func newSource(cfg *config.Config) (telemetry.Source, error) {
	switch cfg.Telemetry.Source {
	case "synthetic":
		return telemetry.NewSynthetic(cfg.Telemetry.Seed), nil
	case "host":
		return telemetry.NewHostSource(cfg.Telemetry.DiskPath), nil
	}
	return nil, fmt.Errorf("unknown telemetry source '%s'", cfg.Telemetry.Source)
}

// newEngine wires an engine from configuration and policy. now drives every
// time-dependent component.
func newEngine(cfg *config.Config, pol policy.Policy, source telemetry.Source, log *zap.Logger, m *metrics.Engine, now func() time.Time) (*engine.Engine, error) {
	engCfg, err := cfg.EngineSettings(pol.Thresholds)
	if err != nil {
		return nil, err
	}

	predictor := forecast.NewPredictor()
	predictor.ShortMultiplier = cfg.Engine.ShortHorizonMultiplier
	predictor.Step = cfg.Engine.SampleInterval
	predictor.Now = now

	recommender := recommend.NewGenerator(pol.Recommendations)
	recommender.Now = now

	return engine.New(engCfg, source,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithClock(now),
		engine.WithPredictor(predictor),
		engine.WithRecommender(recommender),
	), nil
}
