package conference

import (
	"time"

	"go.uber.org/atomic"
)

// canvasStats holds lock-free per-canvas counters updated by the muxer.
type canvasStats struct {
	ticks          atomic.Uint64
	totalTick      atomic.Duration
	peakTick       atomic.Duration
	peakBarrier    atomic.Duration
	encodeRetries  atomic.Uint64
	encodeFailures atomic.Uint64
	framesSent     atomic.Uint64
	framesDropped  atomic.Uint64
	layoutChanges  atomic.Uint64
}

// CanvasStats is a snapshot of a canvas's muxer counters.
type CanvasStats struct {
	Ticks          uint64
	AvgTick        time.Duration
	PeakTick       time.Duration
	PeakBarrier    time.Duration
	EncodeRetries  uint64
	EncodeFailures uint64
	FramesSent     uint64
	FramesDropped  uint64
	LayoutChanges  uint64
}

func (s *canvasStats) recordTick(d time.Duration) {
	s.ticks.Inc()
	s.totalTick.Add(d)
	storeMax(&s.peakTick, d)
}

func (s *canvasStats) recordBarrier(d time.Duration) {
	storeMax(&s.peakBarrier, d)
}

func storeMax(v *atomic.Duration, d time.Duration) {
	for {
		cur := v.Load()
		if d <= cur || v.CompareAndSwap(cur, d) {
			return
		}
	}
}

func (s *canvasStats) snapshot() CanvasStats {
	out := CanvasStats{
		Ticks:          s.ticks.Load(),
		PeakTick:       s.peakTick.Load(),
		PeakBarrier:    s.peakBarrier.Load(),
		EncodeRetries:  s.encodeRetries.Load(),
		EncodeFailures: s.encodeFailures.Load(),
		FramesSent:     s.framesSent.Load(),
		FramesDropped:  s.framesDropped.Load(),
		LayoutChanges:  s.layoutChanges.Load(),
	}
	if out.Ticks > 0 {
		out.AvgTick = s.totalTick.Load() / time.Duration(out.Ticks)
	}
	return out
}
