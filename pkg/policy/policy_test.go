package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/recommend"
)

const sample = `
thresholds:
  - metric: cpu
    warning: 70
    critical: 85
  - metric: latency
    warning: 200
    critical: 400
recommendations:
  - name: disk-pressure
    type: maintenance
    input: current
    metric: disk
    above: 80
    priority: medium
    escalateAbove: 95
    escalatePriority: critical
    title: Expand Disk
    description: "Disk usage is {value}%."
    impact:
      cost: 5
      performance: 10
      reliability: 40
    actionRequired: true
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, p.Thresholds, 2)
	assert.Equal(t, model.AlertThreshold{Metric: model.MetricLatency, Warning: 200, Critical: 400}, p.Thresholds[1])

	require.Len(t, p.Recommendations, 1)
	r := p.Recommendations[0]
	assert.Equal(t, recommend.InputCurrent, r.Input)
	require.NotNil(t, r.EscalateAbove)
	assert.Equal(t, 95.0, *r.EscalateAbove)
	assert.Equal(t, model.Impact{Cost: 5, Performance: 10, Reliability: 40}, r.Impact)

	got := recommend.NewGenerator(p.Recommendations).Recommend(
		&model.Twin{CurrentState: model.MetricSample{Disk: 97}}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, model.PriorityCritical, got[0].Priority)
	assert.Equal(t, "Disk usage is 97.0%.", got[0].Description)
}

func TestParseKeepsDefaultsForMissingSections(t *testing.T) {
	p, err := Parse([]byte("thresholds:\n  - metric: errors\n    warning: 1\n    critical: 2\n"))
	require.NoError(t, err)
	assert.Len(t, p.Thresholds, 1)
	assert.Equal(t, recommend.DefaultRules(), p.Recommendations)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "threshold:\n  - metric: cpu\n",
		"unknown metric":    "thresholds:\n  - metric: temperature\n    warning: 1\n    critical: 2\n",
		"inverted levels":   "thresholds:\n  - metric: cpu\n    warning: 90\n    critical: 80\n",
		"rule without name": "recommendations:\n  - title: x\n    input: current\n    metric: cpu\n    priority: low\n",
		"duplicate rule": `recommendations:
  - {name: a, title: A, input: current, metric: cpu, priority: low}
  - {name: a, title: B, input: current, metric: cpu, priority: low}
`,
		"bad escalation": `recommendations:
  - {name: a, title: A, input: current, metric: cpu, priority: low, escalateAbove: 90, escalatePriority: urgent}
`,
		"not yaml": "thresholds: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	p, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Thresholds, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
