// pkg/model/analysis.go
package model

import "time"

// Severity grades an anomaly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnomalyDetection is attached to the sample that produced it and replaced on
// the next tick.
type AnomalyDetection struct {
	Metric      Metric    `json:"metric" yaml:"metric"`
	IsAnomalous bool      `json:"isAnomalous" yaml:"isAnomalous"`
	Confidence  float64   `json:"confidence" yaml:"confidence"` // 0-100
	Severity    Severity  `json:"severity" yaml:"severity"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Value       float64   `json:"value" yaml:"value"`
	Expected    float64   `json:"expected" yaml:"expected"` // window mean, or the rule threshold
	DetectedAt  time.Time `json:"detectedAt" yaml:"detectedAt"`
}

// ForecastBundle is the output of one prediction cycle.
type ForecastBundle struct {
	NextShortTerm MetricSample  `json:"nextShortTerm" yaml:"nextShortTerm"`
	NextLongTerm  MetricSample  `json:"nextLongTerm" yaml:"nextLongTerm"`
	Confidence    float64       `json:"confidence" yaml:"confidence"` // 70-99
	Cost          *CostForecast `json:"cost,omitempty" yaml:"cost,omitempty"`
	DataPoints    int           `json:"dataPoints" yaml:"dataPoints"`
	GeneratedAt   time.Time     `json:"generatedAt" yaml:"generatedAt"`
}

// CostTrend labels the direction of projected spend.
type CostTrend string

const (
	CostTrendStable     CostTrend = "stable"
	CostTrendIncreasing CostTrend = "increasing"
)

// CostForecast projects spend from the recent utilization window.
type CostForecast struct {
	Hourly                float64   `json:"hourly" yaml:"hourly"`
	ProjectedDaily        float64   `json:"projectedDaily" yaml:"projectedDaily"`
	ProjectedMonthly      float64   `json:"projectedMonthly" yaml:"projectedMonthly"`
	Trend                 CostTrend `json:"trend" yaml:"trend"`
	OptimizationPotential float64   `json:"optimizationPotential" yaml:"optimizationPotential"`
}

// RecommendationType categorizes a recommendation.
type RecommendationType string

const (
	RecommendationOptimization RecommendationType = "optimization"
	RecommendationScaling      RecommendationType = "scaling"
	RecommendationMaintenance  RecommendationType = "maintenance"
	RecommendationSecurity     RecommendationType = "security"
)

// Priority orders recommendations.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank gives priorities a sortable order, critical highest.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

// Impact estimates the percentage effect of acting on a recommendation.
type Impact struct {
	Cost        float64 `json:"cost" yaml:"cost"`
	Performance float64 `json:"performance" yaml:"performance"`
	Reliability float64 `json:"reliability" yaml:"reliability"`
}

// Recommendation is an actionable suggestion derived from a forecast.
type Recommendation struct {
	ID                  string             `json:"id" yaml:"id"`
	Rule                string             `json:"rule" yaml:"rule"` // Name of the rule that fired
	Type                RecommendationType `json:"type" yaml:"type"`
	Priority            Priority           `json:"priority" yaml:"priority"`
	Title               string             `json:"title" yaml:"title"`
	Description         string             `json:"description" yaml:"description"`
	EstimatedImpact     Impact             `json:"estimatedImpact" yaml:"estimatedImpact"`
	ActionRequired      bool               `json:"actionRequired" yaml:"actionRequired"`
	AutomationAvailable bool               `json:"automationAvailable" yaml:"automationAvailable"`
	CreatedAt           time.Time          `json:"createdAt" yaml:"createdAt"`
}

// AlertLevel is the level of a raised alert.
type AlertLevel string

const (
	AlertNone     AlertLevel = ""
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// AlertThreshold holds per-metric warning and critical levels.
type AlertThreshold struct {
	Metric   Metric  `json:"metric" yaml:"metric"`
	Warning  float64 `json:"warning" yaml:"warning"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// AlertEvent is raised when a sample crosses a threshold.
type AlertEvent struct {
	ID        string     `json:"id" yaml:"id"`
	TwinID    string     `json:"twinId" yaml:"twinId"`
	Metric    Metric     `json:"metric" yaml:"metric"`
	Level     AlertLevel `json:"level" yaml:"level"`
	Value     float64    `json:"value" yaml:"value"`
	Threshold float64    `json:"threshold" yaml:"threshold"`
	Message   string     `json:"message" yaml:"message"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
}
