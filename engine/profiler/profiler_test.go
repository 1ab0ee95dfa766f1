package profiler

import (
	"bytes"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-triangle/common"
	"github.com/stretchr/testify/assert"
)

func TestTickLogsEachInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	clock := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second))
	p.now = func() time.Time { return clock }
	p.windowStart = clock

	for range 49 {
		clock = clock.Add(20 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock = clock.Add(20 * time.Millisecond)
	assert.True(t, p.Tick())

	assert.InDelta(t, 50, p.Last().FPS, 0.01)
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "fps=")
}

func TestTickWithoutElapsedTime(t *testing.T) {
	clock := time.Unix(0, 0)
	p := NewProfiler(WithInterval(0))
	p.now = func() time.Time { return clock }
	p.windowStart = clock

	assert.False(t, p.Tick())
	assert.Zero(t, p.Last())
}

func TestMeasurePausesWithinInterval(t *testing.T) {
	var ms runtime.MemStats
	ms.NumGC = 3
	ms.PauseNs[0] = 900_000
	ms.PauseNs[1] = 5_000
	ms.PauseNs[2] = 2_000
	ms.Alloc = 2 << 20
	ms.TotalAlloc = 6 << 20

	s := measure(120, 2*time.Second, &ms, 1, 2<<20)
	assert.InDelta(t, 60, s.FPS, 1e-9)
	assert.InDelta(t, 2, s.HeapMB, 1e-9)
	assert.InDelta(t, 2, s.AllocRateMB, 1e-9)
	assert.Equal(t, uint64(2), s.LastPauseUs)
	// the 900us pause ran before the interval
	assert.Equal(t, uint64(5), s.MaxPauseUs)
}

func TestMeasureWrapsPauseRing(t *testing.T) {
	var ms runtime.MemStats
	ms.NumGC = 300
	ms.PauseNs[299%256] = 7_000

	s := measure(1, time.Second, &ms, 0, 0)
	assert.Equal(t, uint64(7), s.LastPauseUs)
	assert.Equal(t, uint64(7), s.MaxPauseUs)
}
