package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/aleka07/cloudguard/pkg/model"
)

// HostSource reports the machine the engine runs on, whatever resource id it
// is asked for. Requests, latency and errors are not observable at host level
// and are reported as zero; uptime is reported as 100.
type HostSource struct {
	DiskPath string

	mu       sync.Mutex
	lastNet  *net.IOCountersStat
	lastTime time.Time
}

// NewHostSource creates a host source measuring disk usage at path.
func NewHostSource(path string) *HostSource {
	if path == "" {
		path = "/"
	}
	return &HostSource{DiskPath: path}
}

// Collect implements Source.
func (h *HostSource) Collect(ctx context.Context, _ string) (model.MetricSample, error) {
	s := model.MetricSample{Timestamp: time.Now(), Uptime: 100}

	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return s, fmt.Errorf("cpu usage: %w", err)
	}
	if len(percent) > 0 {
		s.CPU = percent[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("memory usage: %w", err)
	}
	s.Memory = vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return s, fmt.Errorf("disk usage at %s: %w", h.DiskPath, err)
	}
	s.Disk = du.UsedPercent

	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return s, fmt.Errorf("network counters: %w", err)
	}
	if len(counters) > 0 {
		s.Network = h.throughput(counters[0], s.Timestamp)
	}
	return s.Clamped(), nil
}

// throughput converts cumulative byte counters into KB/s since the previous
// call. The first call reports zero.
func (h *HostSource) throughput(cur net.IOCountersStat, now time.Time) model.NetworkThroughput {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out model.NetworkThroughput
	if h.lastNet != nil {
		dt := now.Sub(h.lastTime).Seconds()
		// Counters reset when an interface goes away.
		if dt > 0.1 && cur.BytesRecv >= h.lastNet.BytesRecv && cur.BytesSent >= h.lastNet.BytesSent {
			out.Incoming = float64(cur.BytesRecv-h.lastNet.BytesRecv) / 1024 / dt
			out.Outgoing = float64(cur.BytesSent-h.lastNet.BytesSent) / 1024 / dt
		}
	}
	h.lastNet = &cur
	h.lastTime = now
	return out
}
