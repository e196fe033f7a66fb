package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aleka07/cloudguard/pkg/engine"
	"github.com/aleka07/cloudguard/pkg/events"
	"github.com/aleka07/cloudguard/pkg/logging"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/policy"
	"github.com/aleka07/cloudguard/pkg/telemetry"
)

type simulateOptions struct {
	resourceID string
	ticks      int
	seed       int64
	format     string
	scenario   model.Scenario
}

// simulationReport is printed by the simulate command.
type simulationReport struct {
	Twin       *model.Twin         `json:"twin" yaml:"twin"`
	Alerts     []model.AlertEvent  `json:"alerts" yaml:"alerts"`
	Anomalies  int                 `json:"anomalies" yaml:"anomalies"`
	Scenario   *model.Scenario     `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	Projection *model.MetricSample `json:"projection,omitempty" yaml:"projection,omitempty"`
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a synthetic twin offline and print the result",
		Long: `Creates one twin backed by synthetic telemetry, runs the given number of
sample ticks on a virtual clock followed by one prediction cycle, and prints
the twin's health, forecast and recommendations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.resourceID, "resource", "vm-simulated", "Resource ID; its name selects the resource type")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 30, "Number of sample ticks")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Synthetic telemetry seed (defaults to telemetry.seed)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format (json, yaml)")
	cmd.Flags().Float64Var(&opts.scenario.CPUIncrease, "cpu-increase", 0, "What-if: add this many CPU points to the final state")
	cmd.Flags().Float64Var(&opts.scenario.MemoryIncrease, "memory-increase", 0, "What-if: add this many memory points")
	cmd.Flags().Float64Var(&opts.scenario.RequestMultiplier, "request-multiplier", 0, "What-if: multiply requests")
	return cmd
}

// simClock is a manually advanced clock.
type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func runSimulate(cmd *cobra.Command, opts simulateOptions) error {
	if opts.ticks < 0 {
		return fmt.Errorf("--ticks must not be negative")
	}
	if opts.format != "json" && opts.format != "yaml" {
		return fmt.Errorf("unknown format '%s'", opts.format)
	}
	mgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := *mgr.Get()

	logOpts := loggingOptions(cfg.Logging)
	logOpts.Level = "warn"
	logOpts.File = ""
	log, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return err
	}

	seed := cfg.Telemetry.Seed
	if opts.seed != 0 {
		seed = opts.seed
	}
	clock := &simClock{t: time.Now().UTC().Truncate(time.Second)}
	source := telemetry.NewSynthetic(seed)
	source.Now = clock.Now

	// Scheduled ticks never fire; the loop below drives the twin.
	cfg.Engine.SampleInterval = 24 * time.Hour
	cfg.Engine.PredictionInterval = 24 * time.Hour
	if need := opts.ticks * 4; need > cfg.Engine.EventBuffer {
		cfg.Engine.EventBuffer = need
	}
	step := mgr.Get().Engine.SampleInterval

	eng, err := newEngine(&cfg, pol, source, log, metrics.New(nil), clock.Now)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	report := simulationReport{Alerts: []model.AlertEvent{}}
	updates, _ := eng.Subscribe("alert.*", events.AnomalyDetected)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for ev := range updates {
			switch p := ev.Payload.(type) {
			case model.AlertEvent:
				report.Alerts = append(report.Alerts, p)
			case model.AnomalyDetection:
				report.Anomalies++
			}
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	initial, err := telemetry.Collect(ctx, source, opts.resourceID, cfg.Engine.TelemetryTimeout)
	if err != nil {
		return err
	}
	twin, err := eng.CreateTwin(opts.resourceID, initial, engine.WithRealTime(false))
	if err != nil {
		return err
	}

	for i := 0; i < opts.ticks; i++ {
		clock.Advance(step)
		if err := eng.SampleNow(ctx, twin.ID); err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
	}
	if err := eng.PredictNow(ctx, twin.ID); err != nil {
		if !model.IsInsufficientData(err) {
			return err
		}
		log.Warn("Not enough samples for a forecast", zap.Error(err))
	}

	if opts.scenario != (model.Scenario{}) {
		projected, err := eng.RunSimulation(twin.ID, opts.scenario)
		if err != nil {
			return err
		}
		report.Scenario = &opts.scenario
		report.Projection = &projected
	}

	final, err := eng.GetTwin(twin.ID)
	if err != nil {
		return err
	}
	final.History = nil
	report.Twin = final

	eng.Shutdown()
	<-collected

	return writeReport(cmd.OutOrStdout(), opts.format, report)
}

func writeReport(w io.Writer, format string, report simulationReport) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
