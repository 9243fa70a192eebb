package health

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ServerHealth represents a point-in-time health snapshot
type ServerHealth struct {
	Status         string    `json:"status"`
	Uptime         int64     `json:"uptime_seconds"`
	Timestamp      time.Time `json:"timestamp"`
	ActiveSessions int       `json:"active_sessions"`
	ActiveChannels int       `json:"active_channels"`
	Goroutines     int       `json:"goroutines"`
	HeapMB         uint64    `json:"heap_mb"`
	HostCPUPercent float64   `json:"host_cpu_percent"`
	HostMemPercent float64   `json:"host_mem_percent"`
}

// Monitor tracks server uptime and samples process and host metrics
type Monitor struct {
	startTime time.Time
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{startTime: time.Now()}
}

// GetHealth returns the current server health
func (m *Monitor) GetHealth(activeSessions, activeChannels int) *ServerHealth {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	h := &ServerHealth{
		Status:         "healthy",
		Uptime:         int64(time.Since(m.startTime).Seconds()),
		Timestamp:      time.Now(),
		ActiveSessions: activeSessions,
		ActiveChannels: activeChannels,
		Goroutines:     runtime.NumGoroutine(),
		HeapMB:         stats.Alloc / 1024 / 1024,
	}

	// Host metrics are best-effort; a sampling failure is not unhealthy.
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		h.HostCPUPercent = cpuPercent[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil && memStats != nil {
		h.HostMemPercent = memStats.UsedPercent
	}

	return h
}
