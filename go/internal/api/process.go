package api

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats reports resource usage of the running server for /info
type ProcessStats struct {
	proc      *process.Process
	startedAt time.Time
}

// NewProcessStats inspects the current process
func NewProcessStats(ctx context.Context) (*ProcessStats, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect process: %w", err)
	}

	startedAt := time.Now()
	if ms, err := proc.CreateTimeWithContext(ctx); err == nil {
		startedAt = time.UnixMilli(ms)
	}

	return &ProcessStats{proc: proc, startedAt: startedAt}, nil
}

// GetStats samples memory and CPU. Fields that cannot be read are omitted.
func (s *ProcessStats) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"pid":        s.proc.Pid,
		"goroutines": runtime.NumGoroutine(),
		"started_at": s.startedAt.UTC(),
		"started":    humanize.Time(s.startedAt),
	}

	if mem, err := s.proc.MemoryInfo(); err == nil {
		stats["rss_bytes"] = mem.RSS
		stats["rss"] = humanize.IBytes(mem.RSS)
	} else {
		log.Debug().Err(err).Msg("failed to read process memory")
	}

	if cpu, err := s.proc.CPUPercent(); err == nil {
		stats["cpu_percent"] = cpu
	}
	if threads, err := s.proc.NumThreads(); err == nil {
		stats["threads"] = threads
	}

	return stats
}
