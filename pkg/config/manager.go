package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// CLOUDGUARD_ENGINE_SAMPLE_INTERVAL=5s.
const EnvPrefix = "CLOUDGUARD"

// Manager loads configuration with viper and can watch the file for
// changes.
type Manager struct {
	configPath string
	viper      *viper.Viper

	mu     sync.RWMutex
	config *Config
}

// NewManager creates a manager for the YAML file at configPath. The file is
// optional.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Load reads defaults, the config file and the environment, in increasing
// order of precedence.
func (m *Manager) Load() error {
	m.viper = viper.New()
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
		m.viper.SetConfigType("yaml")
	}
	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()
	m.setDefaults()

	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg, err := m.unmarshal()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates the loaded configuration and combines every problem
// into one error.
func (m *Manager) Validate() error {
	cfg := m.Get()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return joinErrors(cfg.Validate())
}

// Watch reloads the file when it changes and calls onChange with the new
// configuration if it is valid, or onError otherwise. It is a no-op without a
// config file.
func (m *Manager) Watch(onChange func(*Config), onError func(error)) {
	if m.configPath == "" || m.viper == nil {
		return
	}
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.unmarshal()
		if err == nil {
			err = joinErrors(cfg.Validate())
		}
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		m.mu.Lock()
		m.config = cfg
		m.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	m.viper.WatchConfig()
}

func (m *Manager) setDefaults() {
	d := DefaultConfig()

	m.viper.SetDefault("server.port", d.Server.Port)
	m.viper.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	m.viper.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	m.viper.SetDefault("server.idle_timeout", d.Server.IdleTimeout)

	m.viper.SetDefault("engine.sample_interval", d.Engine.SampleInterval)
	m.viper.SetDefault("engine.prediction_interval", d.Engine.PredictionInterval)
	m.viper.SetDefault("engine.history_capacity", d.Engine.HistoryCapacity)
	m.viper.SetDefault("engine.telemetry_timeout", d.Engine.TelemetryTimeout)
	m.viper.SetDefault("engine.short_horizon_multiplier", d.Engine.ShortHorizonMultiplier)
	m.viper.SetDefault("engine.event_buffer", d.Engine.EventBuffer)
	m.viper.SetDefault("engine.alert_debounce", d.Engine.AlertDebounce)
	m.viper.SetDefault("engine.failure_backoff.enabled", d.Engine.FailureBackoff.Enabled)
	m.viper.SetDefault("engine.failure_backoff.initial_interval", d.Engine.FailureBackoff.InitialInterval)
	m.viper.SetDefault("engine.failure_backoff.max_interval", d.Engine.FailureBackoff.MaxInterval)

	m.viper.SetDefault("telemetry.source", d.Telemetry.Source)
	m.viper.SetDefault("telemetry.seed", d.Telemetry.Seed)
	m.viper.SetDefault("telemetry.disk_path", d.Telemetry.DiskPath)

	m.viper.SetDefault("policy.file", d.Policy.File)

	m.viper.SetDefault("database.enabled", d.Database.Enabled)
	m.viper.SetDefault("database.dsn", d.Database.DSN)

	m.viper.SetDefault("logging.level", d.Logging.Level)
	m.viper.SetDefault("logging.format", d.Logging.Format)
	m.viper.SetDefault("logging.file", d.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", d.Logging.Compress)
}

func (m *Manager) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
