// Package recommend turns forecasts into prioritized recommendations using a
// declarative rule table.
package recommend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Input selects which sample a rule reads its metric from.
type Input string

const (
	InputForecast Input = "forecast" // Short-horizon forecast
	InputCurrent  Input = "current"  // Latest observed sample
)

// Rule fires when Metric read from Input is strictly above Above. Priority
// is raised to EscalatePriority when the value is strictly above EscalateAbove.
type Rule struct {
	Name   string                   `json:"name" yaml:"name"`
	Type   model.RecommendationType `json:"type" yaml:"type"`
	Input  Input                    `json:"input" yaml:"input"`
	Metric model.Metric             `json:"metric" yaml:"metric"`
	Above  float64                  `json:"above" yaml:"above"`

	Priority         model.Priority `json:"priority" yaml:"priority"`
	EscalateAbove    *float64       `json:"escalateAbove,omitempty" yaml:"escalateAbove,omitempty"` // nil disables escalation
	EscalatePriority model.Priority `json:"escalatePriority,omitempty" yaml:"escalatePriority,omitempty"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"` // "{value}" is replaced with the observed value

	Impact              model.Impact `json:"impact" yaml:"impact"`
	ActionRequired      bool         `json:"actionRequired" yaml:"actionRequired"`
	AutomationAvailable bool         `json:"automationAvailable" yaml:"automationAvailable"`
}

// Validate checks a rule is complete enough to evaluate.
func (r Rule) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("recommendation rule: name is required")
	case r.Title == "":
		return fmt.Errorf("recommendation rule '%s': title is required", r.Name)
	case r.Input != InputForecast && r.Input != InputCurrent:
		return fmt.Errorf("recommendation rule '%s': unknown input '%s'", r.Name, r.Input)
	case !knownPriority(r.Priority):
		return fmt.Errorf("recommendation rule '%s': unknown priority '%s'", r.Name, r.Priority)
	case r.EscalateAbove != nil && r.EscalatePriority == "":
		return fmt.Errorf("recommendation rule '%s': escalateAbove set without escalatePriority", r.Name)
	case r.EscalatePriority != "" && !knownPriority(r.EscalatePriority):
		return fmt.Errorf("recommendation rule '%s': unknown escalatePriority '%s'", r.Name, r.EscalatePriority)
	}
	if _, ok := (model.MetricSample{}).Value(r.Metric); !ok {
		return fmt.Errorf("recommendation rule '%s': unknown metric '%s'", r.Name, r.Metric)
	}
	return nil
}

func knownPriority(p model.Priority) bool {
	return p.Rank() > 0 || p == model.PriorityLow
}

func (r Rule) priorityFor(v float64) model.Priority {
	if r.EscalateAbove != nil && v > *r.EscalateAbove {
		return r.EscalatePriority
	}
	return r.Priority
}

func (r Rule) describe(v float64) string {
	return strings.ReplaceAll(r.Description, "{value}", strconv.FormatFloat(v, 'f', 1, 64))
}

func above(v float64) *float64 { return &v }

// DefaultRules is the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:                "scale-up-cpu",
			Type:                model.RecommendationScaling,
			Input:               InputForecast,
			Metric:              model.MetricCPU,
			Above:               80,
			Priority:            model.PriorityHigh,
			EscalateAbove:       above(90),
			EscalatePriority:    model.PriorityCritical,
			Title:               "Scale Up CPU Resources",
			Description:         "CPU usage is predicted to reach {value}%. Consider scaling up to avoid performance degradation.",
			Impact:              model.Impact{Cost: 25, Performance: 40, Reliability: 30},
			ActionRequired:      true,
			AutomationAvailable: true,
		},
		{
			Name:             "optimize-memory",
			Type:             model.RecommendationOptimization,
			Input:            InputForecast,
			Metric:           model.MetricMemory,
			Above:            85,
			Priority:         model.PriorityHigh,
			EscalateAbove:    above(95),
			EscalatePriority: model.PriorityCritical,
			Title:            "Memory Optimization Required",
			Description:      "Memory usage is predicted to reach {value}%. Review memory allocation or add capacity.",
			Impact:           model.Impact{Cost: 15, Performance: 35, Reliability: 25},
			ActionRequired:   true,
		},
		{
			Name:             "investigate-errors",
			Type:             model.RecommendationMaintenance,
			Input:            InputCurrent,
			Metric:           model.MetricErrors,
			Above:            5,
			Priority:         model.PriorityMedium,
			EscalateAbove:    above(20),
			EscalatePriority: model.PriorityCritical,
			Title:            "Investigate Error Sources",
			Description:      "The error rate is {value}. Investigate logs and recent deployments.",
			Impact:           model.Impact{Cost: 0, Performance: 20, Reliability: 50},
			ActionRequired:   true,
		},
		{
			Name:                "optimize-latency",
			Type:                model.RecommendationOptimization,
			Input:               InputForecast,
			Metric:              model.MetricLatency,
			Above:               100,
			Priority:            model.PriorityMedium,
			Title:               "Latency Optimization",
			Description:         "Latency is predicted to reach {value}ms. Consider caching or query optimization.",
			Impact:              model.Impact{Cost: 10, Performance: 45, Reliability: 15},
			AutomationAvailable: true,
		},
	}
}
