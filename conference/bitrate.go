package conference

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// kushFactor is the bits-per-pixel constant of the "Kush gauge" estimate.
const kushFactor = 0.07

// kushGauge estimates the kbps needed for w x h video at fps.
func kushGauge(w, h, fps int, quality float64) uint32 {
	if w <= 0 || h <= 0 || fps <= 0 {
		return 0
	}
	return uint32(float64(w*h*fps) * quality * kushFactor / 1000)
}

// clamp bounds kbps to [InvisibleKbps/2, MaxKbps].
func (b BitrateConfig) clamp(kbps uint32) uint32 {
	lo := b.InvisibleKbps / 2
	if kbps < lo {
		kbps = lo
	}
	if b.MaxKbps > 0 && kbps > b.MaxKbps {
		kbps = b.MaxKbps
	}
	return kbps
}

// bitrateState tracks the incoming bitrate requested from one member.
// Raises apply at once; decreases must persist for the debounce window.
type bitrateState struct {
	mu               sync.Mutex
	managed          uint32
	forcedApplied    bool
	ticksSinceChange int
	pending          uint32
	pendingSince     time.Time
}

// layerChanged restarts the settling period.
func (b *bitrateState) layerChanged() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticksSinceChange = 0
}

func (b *bitrateState) current() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.managed
}

// evaluate advances the state by one tick and returns the rate to apply,
// if any. The rate becomes managed only once commit is called, so a rate
// the session refused is proposed again on the next tick.
func (b *bitrateState) evaluate(target uint32, now time.Time, cfg BitrateConfig) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ticksSinceChange++
	if b.ticksSinceChange < cfg.SettleTicks {
		return 0, false
	}

	switch {
	case target == b.managed:
		b.pending = 0
		b.pendingSince = time.Time{}
		return 0, false
	case target > b.managed:
		b.pending = 0
		b.pendingSince = time.Time{}
		return target, true
	}

	if b.pendingSince.IsZero() {
		b.pendingSince = now
	}
	b.pending = target
	if now.Sub(b.pendingSince) < cfg.DebounceWindow {
		return 0, false
	}
	return target, true
}

// commit records kbps as the rate the session accepted.
func (b *bitrateState) commit(kbps uint32, forced bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.managed = kbps
	b.pending = 0
	b.pendingSince = time.Time{}
	if forced {
		b.forcedApplied = true
	}
}

// forcedPending reports whether the forced rate still has to be sent.
func (b *bitrateState) forcedPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.forcedApplied
}

// bitrateTarget returns the kbps the member should send: sized for its
// layer when it has one, else its capture size, else the invisible rate.
func (m *Member) bitrateTarget(cfg BitrateConfig, fps int) uint32 {
	w, h := int(m.layerW.Load()), int(m.layerH.Load())
	if w == 0 || h == 0 {
		w, h = int(m.captureW), int(m.captureH)
	}
	if w == 0 || h == 0 {
		return cfg.clamp(cfg.InvisibleKbps)
	}
	return cfg.clamp(kushGauge(w, h, fps, cfg.Quality))
}

// checkBitrate runs one bitrate evaluation for the member and pushes any
// change to its session.
func (m *Member) checkBitrate(now time.Time, cfg BitrateConfig, fps int) {
	if !cfg.Enabled || !m.videoCapable || m.session == nil || m.gone.Load() {
		return
	}

	if m.forcedKbps > 0 {
		if m.bitrate.forcedPending() && m.applyBitrate(m.forcedKbps, "forced") {
			m.bitrate.commit(m.forcedKbps, true)
		}
		return
	}
	if !m.session.BitrateManageable() {
		return
	}

	kbps, ok := m.bitrate.evaluate(m.bitrateTarget(cfg, fps), now, cfg)
	if ok && m.applyBitrate(kbps, "managed") {
		m.bitrate.commit(kbps, false)
	}
}

// applyBitrate sends kbps to the session and reports whether it was accepted.
func (m *Member) applyBitrate(kbps uint32, reason string) bool {
	if err := m.session.SetIncomingBitrate(kbps); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Member.applyBitrate",
			"member_id": m.id,
			"kbps":      kbps,
			"error":     err.Error(),
		}).Warn("Failed to set incoming bitrate")
		return false
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Member.applyBitrate",
		"member_id": m.id,
		"kbps":      kbps,
		"reason":    reason,
	}).Info("Incoming bitrate updated")
	return true
}
