package analysis

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// MemorySample is a point-in-time view of the process's memory.
type MemorySample struct {
	RSS                 uint64    `json:"rss_bytes"`
	VMS                 uint64    `json:"vms_bytes"`
	HeapAlloc           uint64    `json:"heap_alloc_bytes"`
	SystemMemoryPercent float64   `json:"system_memory_percent"`
	CPUPercent          float64   `json:"cpu_percent"`
	Goroutines          int       `json:"goroutines"`
	Time                time.Time `json:"time"`
}

// MemoryProbe samples this process's resource usage.
type MemoryProbe struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.Mutex
}

// NewMemoryProbe creates a probe for the current process.
func NewMemoryProbe() (*MemoryProbe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to inspect current process")
	}
	p := &MemoryProbe{process: proc, startTime: time.Now()}
	if cpuTime, err := proc.Times(); err == nil {
		p.startCPUTime = cpuTime.Total()
	}
	return p, nil
}

// Sample returns current resource usage. Values the platform cannot report
// are left zero.
func (p *MemoryProbe) Sample() MemorySample {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := MemorySample{Time: time.Now(), Goroutines: runtime.NumGoroutine()}

	if cpuTime, err := p.process.Times(); err == nil {
		if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
			s.CPUPercent = (cpuTime.Total() - p.startCPUTime) / elapsed * 100
		}
	}
	if memInfo, err := p.process.MemoryInfo(); err == nil {
		s.RSS = memInfo.RSS
		s.VMS = memInfo.VMS
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		s.SystemMemoryPercent = vmStat.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc
	return s
}

// RSSDelta returns after.RSS - before.RSS, negative when memory was released.
func RSSDelta(before, after MemorySample) int64 {
	return int64(after.RSS) - int64(before.RSS)
}
