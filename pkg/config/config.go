// Package config loads service configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"time"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/engine"
	"github.com/aleka07/cloudguard/pkg/model"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type EngineConfig struct {
	SampleInterval         time.Duration `mapstructure:"sample_interval"`
	PredictionInterval     time.Duration `mapstructure:"prediction_interval"`
	HistoryCapacity        int           `mapstructure:"history_capacity"`
	TelemetryTimeout       time.Duration `mapstructure:"telemetry_timeout"`
	ShortHorizonMultiplier float64       `mapstructure:"short_horizon_multiplier"`
	EventBuffer            int           `mapstructure:"event_buffer"`
	AlertDebounce          string        `mapstructure:"alert_debounce"` // transition or always
	FailureBackoff         BackoffConfig `mapstructure:"failure_backoff"`
}

type BackoffConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type TelemetryConfig struct {
	Source   string `mapstructure:"source"` // synthetic or host
	Seed     int64  `mapstructure:"seed"`
	DiskPath string `mapstructure:"disk_path"`
}

type PolicyConfig struct {
	File string `mapstructure:"file"` // YAML thresholds and recommendation rules; empty uses built-ins
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	ed := engine.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Engine: EngineConfig{
			SampleInterval:         ed.SampleInterval,
			PredictionInterval:     ed.PredictionInterval,
			HistoryCapacity:        ed.HistoryCapacity,
			TelemetryTimeout:       ed.TelemetryTimeout,
			ShortHorizonMultiplier: 100,
			EventBuffer:            ed.EventBuffer,
			AlertDebounce:          string(alert.ModeTransition),
			FailureBackoff: BackoffConfig{
				InitialInterval: ed.FailureBackoff.InitialInterval,
				MaxInterval:     ed.FailureBackoff.MaxInterval,
			},
		},
		Telemetry: TelemetryConfig{Source: "synthetic", Seed: 1, DiskPath: "/"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Validate returns every problem found, or nil.
func (c *Config) Validate() []error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Engine.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.sample_interval must be positive"))
	}
	if c.Engine.PredictionInterval < c.Engine.SampleInterval {
		errs = append(errs, fmt.Errorf("engine.prediction_interval (%s) must not be shorter than engine.sample_interval (%s)",
			c.Engine.PredictionInterval, c.Engine.SampleInterval))
	}
	if c.Engine.HistoryCapacity < 20 || c.Engine.HistoryCapacity > engine.MaxHistoryCapacity {
		errs = append(errs, fmt.Errorf("engine.history_capacity must be between 20 and %d, got %d",
			engine.MaxHistoryCapacity, c.Engine.HistoryCapacity))
	}
	if c.Engine.TelemetryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.telemetry_timeout must be positive"))
	}
	if c.Engine.ShortHorizonMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("engine.short_horizon_multiplier must be positive"))
	}
	if _, err := alert.ParseMode(c.Engine.AlertDebounce); err != nil {
		errs = append(errs, fmt.Errorf("engine.alert_debounce: %w", err))
	}
	if b := c.Engine.FailureBackoff; b.Enabled && (b.InitialInterval <= 0 || b.MaxInterval < b.InitialInterval) {
		errs = append(errs, fmt.Errorf("engine.failure_backoff intervals must be positive with max >= initial"))
	}
	switch c.Telemetry.Source {
	case "synthetic", "host":
	default:
		errs = append(errs, fmt.Errorf("telemetry.source must be synthetic or host, got '%s'", c.Telemetry.Source))
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn is required when database.enabled is true"))
	}
	return errs
}

// EngineSettings converts the engine section into an engine.Config using
// thresholds as the alert table.
func (c *Config) EngineSettings(thresholds []model.AlertThreshold) (engine.Config, error) {
	mode, err := alert.ParseMode(c.Engine.AlertDebounce)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		SampleInterval:     c.Engine.SampleInterval,
		PredictionInterval: c.Engine.PredictionInterval,
		HistoryCapacity:    c.Engine.HistoryCapacity,
		TelemetryTimeout:   c.Engine.TelemetryTimeout,
		EventBuffer:        c.Engine.EventBuffer,
		AlertDebounce:      mode,
		Thresholds:         thresholds,
		FailureBackoff: engine.BackoffConfig{
			Enabled:         c.Engine.FailureBackoff.Enabled,
			InitialInterval: c.Engine.FailureBackoff.InitialInterval,
			MaxInterval:     c.Engine.FailureBackoff.MaxInterval,
		},
	}, nil
}
