package telemetry

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Profile shapes the synthetic signal for one resource type. Every field
// except uptime follows base * (1 + Swing*wave + Jitter*noise), with wave a
// sine of period Period and noise uniform in [-1, 1].
type Profile struct {
	Base   model.MetricSample
	Swing  float64
	Jitter float64
}

// DefaultProfiles are the baselines per resource type.
var DefaultProfiles = map[model.ResourceType]Profile{
	model.ResourceCompute: {
		Base: model.MetricSample{CPU: 45, Memory: 60, Disk: 35, Network: model.NetworkThroughput{Incoming: 100, Outgoing: 80},
			Requests: 1000, Latency: 50, Errors: 2, Uptime: 99.5},
		Swing: 0.3, Jitter: 0.1,
	},
	model.ResourceDatabase: {
		Base: model.MetricSample{CPU: 35, Memory: 70, Disk: 60, Network: model.NetworkThroughput{Incoming: 60, Outgoing: 60},
			Requests: 500, Latency: 20, Errors: 1, Uptime: 99.9},
		Swing: 0.2, Jitter: 0.08,
	},
	model.ResourceStorage: {
		Base: model.MetricSample{CPU: 10, Memory: 25, Disk: 70, Network: model.NetworkThroughput{Incoming: 200, Outgoing: 150},
			Requests: 300, Latency: 15, Errors: 0.5, Uptime: 99.99},
		Swing: 0.1, Jitter: 0.05,
	},
	model.ResourceNetwork: {
		Base: model.MetricSample{CPU: 20, Memory: 30, Disk: 10, Network: model.NetworkThroughput{Incoming: 500, Outgoing: 450},
			Requests: 5000, Latency: 10, Errors: 1, Uptime: 99.95},
		Swing: 0.35, Jitter: 0.1,
	},
	model.ResourceContainer: {
		Base: model.MetricSample{CPU: 50, Memory: 55, Disk: 30, Network: model.NetworkThroughput{Incoming: 150, Outgoing: 120},
			Requests: 1500, Latency: 40, Errors: 2, Uptime: 99.5},
		Swing: 0.3, Jitter: 0.12,
	},
	model.ResourceServerless: {
		Base: model.MetricSample{CPU: 25, Memory: 40, Disk: 5, Network: model.NetworkThroughput{Incoming: 50, Outgoing: 40},
			Requests: 2000, Latency: 120, Errors: 1, Uptime: 99.9},
		Swing: 0.4, Jitter: 0.15,
	},
}

// Synthetic generates plausible telemetry without any backing resource.
// Given the same seed and clock it produces the same sequence.
type Synthetic struct {
	Period   time.Duration
	Profiles map[model.ResourceType]Profile
	Now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a generator seeded with seed.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{
		Period:   30 * time.Second,
		Profiles: DefaultProfiles,
		Now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Collect implements Source.
func (g *Synthetic) Collect(ctx context.Context, resourceID string) (model.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return model.MetricSample{}, err
	}

	p, ok := g.Profiles[model.InferResourceType(resourceID)]
	if !ok {
		p = DefaultProfiles[model.ResourceCompute]
	}
	now := g.Now()

	// Resources of the same type peak at different times.
	h := fnv.New32a()
	h.Write([]byte(resourceID))
	phase := float64(h.Sum32()%1000) / 1000 * 2 * math.Pi
	period := g.Period
	if period <= 0 {
		period = 30 * time.Second
	}
	wave := math.Sin(2*math.Pi*float64(now.UnixNano())/float64(period) + phase)

	g.mu.Lock()
	defer g.mu.Unlock()

	s := model.MetricSample{Timestamp: now}
	for _, m := range model.AllMetrics {
		if m == model.MetricUptime {
			continue
		}
		base, _ := p.Base.Value(m)
		s = s.WithValue(m, base*(1+p.Swing*wave+p.Jitter*g.noise()))
	}
	s.Uptime = model.Clamp(p.Base.Uptime-0.5*g.rng.Float64(), 95, 100)
	return s.Clamped(), nil
}

func (g *Synthetic) noise() float64 {
	return 2*g.rng.Float64() - 1
}
