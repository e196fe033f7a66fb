// pkg/model/scenario.go
package model

// Scenario describes a what-if change to a twin's current state. Increases
// are additive; multipliers scale the field and a zero multiplier means
// unchanged.
type Scenario struct {
	CPUIncrease       float64 `json:"cpuIncrease,omitempty" yaml:"cpuIncrease,omitempty"`
	MemoryIncrease    float64 `json:"memoryIncrease,omitempty" yaml:"memoryIncrease,omitempty"`
	DiskIncrease      float64 `json:"diskIncrease,omitempty" yaml:"diskIncrease,omitempty"`
	LatencyIncrease   float64 `json:"latencyIncrease,omitempty" yaml:"latencyIncrease,omitempty"`
	ErrorIncrease     float64 `json:"errorIncrease,omitempty" yaml:"errorIncrease,omitempty"`
	RequestMultiplier float64 `json:"requestMultiplier,omitempty" yaml:"requestMultiplier,omitempty"`
	NetworkMultiplier float64 `json:"networkMultiplier,omitempty" yaml:"networkMultiplier,omitempty"`
}

// Apply returns the projected sample. s is not modified and the result is
// clamped to valid ranges.
func (sc Scenario) Apply(s MetricSample) MetricSample {
	s.CPU += sc.CPUIncrease
	s.Memory += sc.MemoryIncrease
	s.Disk += sc.DiskIncrease
	s.Latency += sc.LatencyIncrease
	s.Errors += sc.ErrorIncrease
	if sc.RequestMultiplier != 0 {
		s.Requests *= sc.RequestMultiplier
	}
	if sc.NetworkMultiplier != 0 {
		s.Network.Incoming *= sc.NetworkMultiplier
		s.Network.Outgoing *= sc.NetworkMultiplier
	}
	return s.Clamped()
}
