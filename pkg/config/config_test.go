package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloudguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	m := NewManager("")
	require.NoError(t, m.Load())
	require.NoError(t, m.Validate())

	cfg := m.Get()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Engine.SampleInterval)
	assert.Equal(t, 30*time.Second, cfg.Engine.PredictionInterval)
	assert.Equal(t, 1000, cfg.Engine.HistoryCapacity)
	assert.Equal(t, "transition", cfg.Engine.AlertDebounce)
	assert.Equal(t, "synthetic", cfg.Telemetry.Source)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, m.Load())
	assert.Equal(t, 8080, m.Get().Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
engine:
  sample_interval: 500ms
  prediction_interval: 10s
  alert_debounce: always
  failure_backoff:
    enabled: true
    initial_interval: 1s
    max_interval: 30s
telemetry:
  source: host
logging:
  level: debug
`)
	m := NewManager(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.Validate())

	cfg := m.Get()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.SampleInterval)
	assert.Equal(t, 10*time.Second, cfg.Engine.PredictionInterval)
	assert.True(t, cfg.Engine.FailureBackoff.Enabled)
	assert.Equal(t, "host", cfg.Telemetry.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Engine.HistoryCapacity, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("CLOUDGUARD_SERVER_PORT", "7070")
	t.Setenv("CLOUDGUARD_ENGINE_HISTORY_CAPACITY", "50")

	m := NewManager(path)
	require.NoError(t, m.Load())
	assert.Equal(t, 7070, m.Get().Server.Port)
	assert.Equal(t, 50, m.Get().Engine.HistoryCapacity)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	m := NewManager(writeConfig(t, "server: [\n"))
	assert.Error(t, m.Load())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())

	cfg.Server.Port = 0
	cfg.Engine.PredictionInterval = time.Second
	cfg.Engine.HistoryCapacity = 5
	cfg.Engine.AlertDebounce = "sometimes"
	cfg.Telemetry.Source = "carrier-pigeon"
	cfg.Database.Enabled = true
	cfg.Engine.FailureBackoff = BackoffConfig{Enabled: true}
	assert.Len(t, cfg.Validate(), 7)

	m := &Manager{config: cfg}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.dsn")

	cfg = DefaultConfig()
	cfg.Engine.HistoryCapacity = 5000
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "history_capacity")

	cfg.Engine.HistoryCapacity = 1000
	assert.Empty(t, cfg.Validate())
}

func TestEngineSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.AlertDebounce = "always"
	cfg.Engine.FailureBackoff.Enabled = true
	thresholds := []model.AlertThreshold{{Metric: model.MetricCPU, Warning: 1, Critical: 2}}

	ec, err := cfg.EngineSettings(thresholds)
	require.NoError(t, err)
	assert.Equal(t, alert.ModeAlways, ec.AlertDebounce)
	assert.Equal(t, thresholds, ec.Thresholds)
	assert.Equal(t, cfg.Engine.SampleInterval, ec.SampleInterval)
	assert.True(t, ec.FailureBackoff.Enabled)

	cfg.Engine.AlertDebounce = "never"
	_, err = cfg.EngineSettings(nil)
	assert.Error(t, err)
}
