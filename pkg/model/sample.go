// pkg/model/sample.go
package model

import (
	"fmt"
	"math"
	"time"
)

// Metric names a single scalar field of a MetricSample. Threshold and rule
// tables refer to metrics by these names.
type Metric string

const (
	MetricCPU        Metric = "cpu"
	MetricMemory     Metric = "memory"
	MetricDisk       Metric = "disk"
	MetricNetworkIn  Metric = "network.incoming"
	MetricNetworkOut Metric = "network.outgoing"
	MetricRequests   Metric = "requests"
	MetricLatency    Metric = "latency"
	MetricErrors     Metric = "errors"
	MetricUptime     Metric = "uptime"
)

// AllMetrics lists every metric a MetricSample carries.
var AllMetrics = []Metric{
	MetricCPU, MetricMemory, MetricDisk,
	MetricNetworkIn, MetricNetworkOut,
	MetricRequests, MetricLatency, MetricErrors, MetricUptime,
}

// NetworkThroughput holds inbound/outbound throughput in arbitrary units.
type NetworkThroughput struct {
	Incoming float64 `json:"incoming" yaml:"incoming"`
	Outgoing float64 `json:"outgoing" yaml:"outgoing"`
}

// MetricSample is one observation of a resource. It is a value type; copies
// never alias.
type MetricSample struct {
	CPU       float64           `json:"cpu" yaml:"cpu"`       // percent, 0-100
	Memory    float64           `json:"memory" yaml:"memory"` // percent, 0-100
	Disk      float64           `json:"disk" yaml:"disk"`     // percent, 0-100
	Network   NetworkThroughput `json:"network" yaml:"network"`
	Requests  float64           `json:"requests" yaml:"requests"`
	Latency   float64           `json:"latency" yaml:"latency"` // ms
	Errors    float64           `json:"errors" yaml:"errors"`
	Uptime    float64           `json:"uptime" yaml:"uptime"` // percent, simulator keeps it in 95-100
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

// Value returns the named metric.
func (s MetricSample) Value(m Metric) (float64, bool) {
	switch m {
	case MetricCPU:
		return s.CPU, true
	case MetricMemory:
		return s.Memory, true
	case MetricDisk:
		return s.Disk, true
	case MetricNetworkIn:
		return s.Network.Incoming, true
	case MetricNetworkOut:
		return s.Network.Outgoing, true
	case MetricRequests:
		return s.Requests, true
	case MetricLatency:
		return s.Latency, true
	case MetricErrors:
		return s.Errors, true
	case MetricUptime:
		return s.Uptime, true
	}
	return 0, false
}

// WithValue returns a copy of s with the named metric replaced.
func (s MetricSample) WithValue(m Metric, v float64) MetricSample {
	switch m {
	case MetricCPU:
		s.CPU = v
	case MetricMemory:
		s.Memory = v
	case MetricDisk:
		s.Disk = v
	case MetricNetworkIn:
		s.Network.Incoming = v
	case MetricNetworkOut:
		s.Network.Outgoing = v
	case MetricRequests:
		s.Requests = v
	case MetricLatency:
		s.Latency = v
	case MetricErrors:
		s.Errors = v
	case MetricUptime:
		s.Uptime = v
	}
	return s
}

// Validate rejects samples with non-finite values, negative values, or
// percentages outside 0-100.
func (s MetricSample) Validate() error {
	for _, m := range AllMetrics {
		v, _ := s.Value(m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidSample, m)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s is negative (%.2f)", ErrInvalidSample, m, v)
		}
		if isPercent(m) && v > 100 {
			return fmt.Errorf("%w: %s exceeds 100 (%.2f)", ErrInvalidSample, m, v)
		}
	}
	return nil
}

// Clamped returns a copy with every field forced into its valid range.
func (s MetricSample) Clamped() MetricSample {
	s.CPU = Clamp(s.CPU, 0, 100)
	s.Memory = Clamp(s.Memory, 0, 100)
	s.Disk = Clamp(s.Disk, 0, 100)
	s.Uptime = Clamp(s.Uptime, 0, 100)
	s.Network.Incoming = math.Max(0, s.Network.Incoming)
	s.Network.Outgoing = math.Max(0, s.Network.Outgoing)
	s.Requests = math.Max(0, s.Requests)
	s.Latency = math.Max(0, s.Latency)
	s.Errors = math.Max(0, s.Errors)
	return s
}

func isPercent(m Metric) bool {
	return m == MetricCPU || m == MetricMemory || m == MetricDisk || m == MetricUptime
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
