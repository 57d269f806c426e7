// Package procsupervisor implements C11: the process supervisor that
// spawns every named service as a child of this same binary and exposes
// an aggregate health view, grounded in spec.md §6's "process supervisor:
// spawns each service on its port; health endpoint" and the teacher's own
// gopsutil-based resource reporting.
package procsupervisor

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SelfHealth is this process's own resource usage, reported alongside the
// basic service/status/time payload every /healthz endpoint already
// returns.
type SelfHealth struct {
	PID          int32     `json:"pid"`
	CPUPercent   float64   `json:"cpu_percent"`
	CPUCores     int       `json:"cpu_cores"`
	RSSBytes     uint64    `json:"rss_bytes"`
	SystemMemPct float64   `json:"system_mem_percent"`
	Uptime       float64   `json:"uptime_seconds"`
	SampledAt    time.Time `json:"sampled_at"`
}

var processStart = time.Now()

// ReadSelfHealth samples the current process's CPU/RSS via gopsutil. A
// sampling failure returns a zero-valued reading rather than an error —
// health reporting must never be the reason a service looks unhealthy.
func ReadSelfHealth() SelfHealth {
	health := SelfHealth{
		PID:       int32(pid()),
		CPUCores:  cpuCoreCount(),
		Uptime:    time.Since(processStart).Seconds(),
		SampledAt: time.Now().UTC(),
	}

	if proc, err := process.NewProcess(health.PID); err == nil {
		if pct, err := proc.CPUPercent(); err == nil {
			health.CPUPercent = pct
		}
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			health.RSSBytes = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		health.SystemMemPct = vm.UsedPercent
	}
	return health
}

func pid() int {
	return os.Getpid()
}

func cpuCoreCount() int {
	counts, err := cpu.Counts(true)
	if err != nil {
		return 0
	}
	return counts
}
