package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-triangle/common"
)

const mb = 1 << 20

// Sample is the frame rate and memory picture of one interval.
type Sample struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64 // MB allocated per second over the interval
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64 // longest pause among collections that ran in the interval
}

// Profiler counts frames and, once per interval, logs a Sample through the shared logger.
// It is not safe for concurrent use; the render goroutine owns it.
type Profiler struct {
	interval time.Duration
	now      func() time.Time

	frames      int
	windowStart time.Time
	prevGC      uint32
	prevAlloc   uint64
	last        Sample
}

// ProfilerOption configures a Profiler in NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often a Sample is logged, one second by default.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) { p.interval = d }
}

// NewProfiler returns a profiler whose first interval starts now.
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{interval: time.Second, now: time.Now}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	return p
}

// Last is the most recent logged Sample, zero until the first interval closes.
func (p *Profiler) Last() Sample { return p.last }

// Tick counts one frame. When the interval has run out it reads the runtime memory
// statistics, logs a Sample and starts the next interval.
//
// Returns:
//   - bool: whether a Sample was logged
func (p *Profiler) Tick() bool {
	p.frames++
	t := p.now()
	elapsed := t.Sub(p.windowStart)
	if elapsed <= 0 || elapsed < p.interval {
		return false
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := measure(p.frames, elapsed, &ms, p.prevGC, p.prevAlloc)

	common.Logger().Info("profiler",
		"fps", s.FPS,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb_s", s.AllocRateMB,
		"sys_mb", s.SysMB,
		"gc", s.GCCount,
		"gc_last_us", s.LastPauseUs,
		"gc_max_us", s.MaxPauseUs,
	)

	p.last = s
	p.frames, p.windowStart = 0, t
	p.prevGC, p.prevAlloc = ms.NumGC, ms.TotalAlloc
	return true
}

// measure builds the Sample of an interval that ran frames frames in elapsed time, ending with
// ms and starting at GC count prevGC and cumulative allocation prevAlloc.
func measure(frames int, elapsed time.Duration, ms *runtime.MemStats, prevGC uint32, prevAlloc uint64) Sample {
	secs := elapsed.Seconds()
	s := Sample{
		FPS:         float64(frames) / secs,
		HeapMB:      float64(ms.Alloc) / mb,
		AllocRateMB: float64(ms.TotalAlloc-prevAlloc) / mb / secs,
		SysMB:       float64(ms.Sys) / mb,
		GCCount:     ms.NumGC,
	}
	if ms.NumGC == 0 {
		return s
	}

	// PauseNs is a ring of the most recent collections
	ring := uint32(len(ms.PauseNs))
	s.LastPauseUs = ms.PauseNs[(ms.NumGC-1)%ring] / 1000
	from := max(prevGC, ms.NumGC-min(ms.NumGC, ring))
	for gc := from; gc < ms.NumGC; gc++ {
		s.MaxPauseUs = max(s.MaxPauseUs, ms.PauseNs[gc%ring]/1000)
	}
	return s
}
