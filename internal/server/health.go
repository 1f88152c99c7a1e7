package server

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	System    SystemSnapshot `json:"system"`
}

// SystemSnapshot reports host resource usage in percent. Fields that could
// not be read are left nil and omitted.
type SystemSnapshot struct {
	CPUPercent    *float64 `json:"cpu_percent,omitempty"`
	MemoryPercent *float64 `json:"memory_percent,omitempty"`
	DiskPercent   *float64 `json:"disk_percent,omitempty"`
}

// SystemProbe reads a host snapshot.
type SystemProbe interface {
	Snapshot(ctx context.Context) SystemSnapshot
}

// SystemProbeFunc adapts a function to SystemProbe.
type SystemProbeFunc func(ctx context.Context) SystemSnapshot

// Snapshot implements SystemProbe.
func (f SystemProbeFunc) Snapshot(ctx context.Context) SystemSnapshot {
	return f(ctx)
}

// hostProbe reads the snapshot with gopsutil.
type hostProbe struct {
	diskPath string
}

func (p hostProbe) Snapshot(ctx context.Context) SystemSnapshot {
	var snap SystemSnapshot

	// Interval 0 compares against the previous call instead of blocking.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = &percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryPercent = &vm.UsedPercent
	}
	if usage, err := disk.UsageWithContext(ctx, p.diskPath); err == nil {
		snap.DiskPercent = &usage.UsedPercent
	}
	return snap
}
