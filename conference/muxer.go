package conference

import (
	"context"
	"sort"
	"time"

	"github.com/opd-ai/toxmix/layout"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// tickContext carries per-tick state between the muxer steps.
type tickContext struct {
	now           time.Time
	roster        *roster
	holder        uint32
	fps           int
	forceKey      bool
	layoutChanged bool
}

// run is the canvas muxing loop. It returns when ctx is done or the canvas
// or conference is stopped.
func (c *Canvas) run(ctx context.Context) {
	defer close(c.done)

	fps := int(c.conf.fps.Load())
	ticker := time.NewTicker(tickInterval(fps))
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.run",
		"canvas_id": c.id,
		"kind":      c.kind.String(),
		"fps":       fps,
	}).Info("Canvas muxer started")

	for c.waitTick(ctx, ticker, &fps) {
		c.tick()
	}
	c.shutdown()
}

// waitTick blocks until the next tick. A changed frame rate resets the
// ticker and forces a key frame.
func (c *Canvas) waitTick(ctx context.Context, ticker *time.Ticker, fps *int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.stop.Watch():
		return false
	case <-c.conf.stop.Watch():
		return false
	case <-ticker.C:
	}

	if cur := int(c.conf.fps.Load()); cur != *fps {
		*fps = cur
		ticker.Reset(tickInterval(cur))
		c.requestKeyframe()
		logrus.WithFields(logrus.Fields{
			"function":  "Canvas.waitTick",
			"canvas_id": c.id,
			"fps":       cur,
		}).Info("Canvas frame rate changed")
	}
	return true
}

// tick composes, encodes and distributes one frame.
func (c *Canvas) tick() {
	start := time.Now()

	c.mu.Lock()
	tc := &tickContext{
		now:    c.conf.now(),
		roster: c.conf.roster.Load(),
		holder: c.conf.floorHolder.Load(),
		fps:    int(c.conf.fps.Load()),
	}

	c.maintainLayout(tc)
	if c.kind == kindSuper {
		c.intakeSources(tc)
	} else {
		c.intakeFrames(tc)
	}
	c.intakeFileNodes(tc)
	c.stats.recordBarrier(c.patchBarrier())

	keyframe := c.keyframeDue(tc)
	c.videoRW.Lock()
	c.img.Timestamp = uint32(c.tickCount * 90000 / uint64(max(tc.fps, 1)))
	c.encodeAndFanOut(tc, keyframe)
	c.recordFrame()
	c.feedSuperCanvas()
	c.videoRW.Unlock()
	c.tickCount++

	c.unlockAndApply()

	if c.kind == kindShared {
		for _, m := range tc.roster.order {
			if int(m.homeCanvas.Load()) == c.id {
				m.checkBitrate(tc.now, c.conf.cfg.Bitrate, tc.fps)
			}
		}
	}

	c.stats.recordTick(time.Since(start))
}

// maintainLayout re-selects the layout from the group when the candidate
// count changed, then applies any pending layout. A refresh request
// repaints every layer.
func (c *Canvas) maintainLayout(tc *tickContext) {
	if c.group != nil {
		count := len(c.candidates(tc)) + len(c.fileNodes)
		if count != c.lastCount {
			c.lastCount = count
			if best := layout.FindBest(c.group, count); best != nil && best != c.vlayout {
				c.newVlayout = best
				logrus.WithFields(logrus.Fields{
					"function":  "Canvas.maintainLayout",
					"canvas_id": c.id,
					"group":     c.group.Name,
					"count":     count,
					"layout":    best.Name,
				}).Debug("Selected layout for participant count")
			}
		}
	}

	if c.newVlayout != nil {
		c.applyLayout(c.newVlayout)
		tc.layoutChanged = true
	}

	if c.refresh.Swap(0) > 0 {
		tc.forceKey = true
		for _, l := range c.layers {
			l.refresh = true
		}
	}
}

// candidates returns the members that want a layer on this canvas, the
// floor holder first on personal canvases.
func (c *Canvas) candidates(tc *tickContext) []*Member {
	hasDefault := c.conf.defaultAvatar != nil
	var out []*Member
	switch c.kind {
	case kindShared:
		for _, m := range tc.roster.order {
			if int(m.homeCanvas.Load()) == c.id && m.wantsLayer(hasDefault) {
				out = append(out, m)
			}
		}
	case kindPersonal:
		if h := tc.roster.get(tc.holder); h != nil && h.id != c.owner && h.wantsLayer(hasDefault) {
			out = append(out, h)
		}
		for _, m := range tc.roster.order {
			if m.id != c.owner && m.id != tc.holder && m.wantsLayer(hasDefault) {
				out = append(out, m)
			}
		}
	}
	return out
}

// intakeFrames collects each candidate's current image, binds members to
// layers and schedules the layers whose image changed.
func (c *Canvas) intakeFrames(tc *tickContext) {
	for _, l := range c.layers {
		l.tagged = false
	}

	cands := c.candidates(tc)
	follows := c.floorFollows()
	holderPlaced := true
	if follows && tc.holder != NoFloor {
		for _, m := range cands {
			if m.id == tc.holder {
				fi := c.floorLayerIndex()
				idx, ok := c.bindings[m.id]
				holderPlaced = fi < 0 || (ok && idx == fi)
				break
			}
		}
	}

	for _, m := range cands {
		if !m.acquire() {
			continue
		}
		c.intakeMember(tc, m, follows, holderPlaced)
		m.release()
	}

	r := tc.roster
	for _, l := range c.layers {
		if l.memberID != 0 && !l.tagged {
			c.detachLayer(l, r.get(l.memberID), true)
		}
	}
}

func (c *Canvas) intakeMember(tc *tickContext, m *Member, follows, holderPlaced bool) {
	cfg := &c.conf.cfg

	if c.kind == kindShared && int(m.canvasID.Load()) == c.id {
		lid := int(m.layerID.Load())
		if lid >= len(c.layers) || (lid >= 0 && c.layers[lid].memberID != m.id) {
			logrus.WithFields(logrus.Fields{
				"function":  "Canvas.intakeMember",
				"canvas_id": c.id,
				"member_id": m.id,
				"layer":     lid,
			}).Warn("Member layer binding out of sync, clearing")
			m.clearBinding()
		}
	}

	img, gen, state := m.currentImage(tc.now, cfg.AvatarTimeout, c.conf.defaultAvatar)
	avatarOnly := state == showAvatar || state == showMuted

	isHolder := follows && m.id == tc.holder
	res, layer := c.findLayerFor(attachRequest{
		member:       m,
		avatarOnly:   avatarOnly,
		isHolder:     isHolder,
		reserveFloor: follows && !holderPlaced,
		floorHolder:  tc.holder,
	})
	if res == attachFailed {
		c.layerTimedOut(m)
		return
	}

	layer.tagged = true
	layer.avatarOnly = avatarOnly
	layer.setOverlays(m.overlays())
	if gen != layer.gen || layer.refresh || res == attachSuccess {
		layer.gen = gen
		layer.refresh = false
		if img == nil {
			layer.scheduleBlank()
		} else {
			layer.schedule(img, false)
		}
	}
}

// layerTimedOut counts down a member waiting for a layer and moves it to
// the next shared canvas when the countdown expires.
func (c *Canvas) layerTimedOut(m *Member) {
	if c.kind != kindShared {
		return
	}
	if m.layerTimeout.Dec() > 0 {
		return
	}
	m.layerTimeout.Store(int32(c.conf.cfg.LayerTimeoutTicks))

	n := len(c.conf.canvases)
	fields := logrus.Fields{
		"function":  "Canvas.layerTimedOut",
		"canvas_id": c.id,
		"member_id": m.id,
	}
	if n < 2 {
		logrus.WithFields(fields).Warn("No layer available for member")
		return
	}
	next := (c.id + 1) % n
	m.homeCanvas.Store(int32(next))
	fields["next_canvas_id"] = next
	logrus.WithFields(fields).Warn("No layer available, moving member to next canvas")
}

// patchBarrier patches every scheduled layer and returns the time spent.
// Non-overlapping layers are patched concurrently on up to PatchWorkers
// goroutines; overlapping layers follow in index order once the batch is
// done. Caller holds c.mu.
func (c *Canvas) patchBarrier() time.Duration {
	start := time.Now()

	var overlap []*Layer
	var g errgroup.Group
	g.SetLimit(c.conf.cfg.PatchWorkers)
	for _, l := range c.layers {
		if !l.needPatch {
			continue
		}
		if l.geometry.Overlap {
			overlap = append(overlap, l)
			continue
		}
		layer := l
		g.Go(func() error {
			c.videoRW.RLock()
			defer c.videoRW.RUnlock()
			c.patchLayer(layer)
			return nil
		})
	}
	_ = g.Wait()

	for _, l := range overlap {
		c.patchLayer(l)
	}
	for _, l := range c.layers {
		l.clearPatch()
	}
	return time.Since(start)
}

func (c *Canvas) patchLayer(l *Layer) {
	if l.blank {
		c.blankLayer(l)
		return
	}
	c.scaleAndPatch(l, l.pending, l.freeze)
}

// keyframeDue reports whether this tick's frame must be a key frame.
func (c *Canvas) keyframeDue(tc *tickContext) bool {
	due := c.tickCount == 0 || tc.forceKey || tc.layoutChanged

	if c.sendKeyframe > 0 {
		c.sendKeyframe--
		if c.sendKeyframe == 0 {
			due = true
		}
	}
	if iv := c.conf.cfg.KeyframeInterval; iv > 0 && tc.now.Sub(c.lastKeyframe) >= iv {
		due = true
	}
	if due {
		c.lastKeyframe = tc.now
	}
	return due
}

// watchers returns the members receiving this canvas.
func (c *Canvas) watchers(tc *tickContext) []*Member {
	var out []*Member
	for _, m := range tc.roster.order {
		if int(m.watchingCanvas.Load()) == c.id && m.session != nil && !m.gone.Load() {
			out = append(out, m)
		}
	}
	return out
}

// encodeAndFanOut encodes the canvas once per codec in use and queues the
// result on every watcher. Members encoding for themselves get the raw
// image. Caller holds c.mu and c.videoRW in write mode.
func (c *Canvas) encodeAndFanOut(tc *tickContext, keyframe bool) {
	byCodec := make(map[string][]*Member)
	var raw []*Member
	for _, m := range c.watchers(tc) {
		if m.perMemberEncoding {
			raw = append(raw, m)
			continue
		}
		codec := m.codec()
		byCodec[codec] = append(byCodec[codec], m)
	}

	if len(raw) > 0 {
		img := c.img.Clone()
		for _, m := range raw {
			c.enqueue(m, outFrame{raw: img})
		}
	}

	codecs := make([]string, 0, len(byCodec))
	for codec := range byCodec {
		codecs = append(codecs, codec)
	}
	sort.Strings(codecs)

	for _, codec := range codecs {
		ce := c.encoderFor(codec)
		if ce.failed {
			continue
		}

		key := keyframe || ce.pendingKey
		data, err := ce.enc.Encode(c.img, key)
		if err != nil {
			ce.pendingKey = key
			if isMoreData(err) {
				c.stats.encodeRetries.Inc()
				logrus.WithFields(logrus.Fields{
					"function":  "Canvas.encodeAndFanOut",
					"canvas_id": c.id,
					"codec":     codec,
				}).Debug("Encoder needs more data, retrying next tick")
				continue
			}
			c.stats.encodeFailures.Inc()
			logrus.WithFields(logrus.Fields{
				"function":  "Canvas.encodeAndFanOut",
				"canvas_id": c.id,
				"codec":     codec,
				"error":     err.Error(),
			}).Warn("Canvas encode failed")
			continue
		}
		ce.pendingKey = false

		for _, m := range byCodec[codec] {
			c.enqueue(m, outFrame{codec: codec, data: data, keyframe: key})
		}
	}
}

func (c *Canvas) enqueue(m *Member, f outFrame) {
	if m.outbound.Push(f) {
		c.stats.framesSent.Inc()
		return
	}
	c.stats.framesDropped.Inc()
	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.enqueue",
		"canvas_id": c.id,
		"member_id": m.id,
	}).Debug("Outbound queue full, dropping frame")
}

// feedSuperCanvas offers a copy of the composed image to the super canvas.
func (c *Canvas) feedSuperCanvas() {
	if c.kind != kindShared || c.outQueue == nil {
		return
	}
	if !c.outQueue.Push(c.img.Clone()) {
		c.stats.framesDropped.Inc()
	}
}

// shutdown detaches every member and releases encoders, file nodes and
// recorders. Side effects are dropped.
func (c *Canvas) shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		r := c.conf.roster.Load()
		for _, l := range c.layers {
			if l.memberID != 0 {
				c.detachLayer(l, r.get(l.memberID), false)
			}
		}
		c.closeEncoders()
		c.closeFileNodes()
		c.closeRecorders()
		c.takeEffects()

		logrus.WithFields(logrus.Fields{
			"function":  "Canvas.shutdown",
			"canvas_id": c.id,
			"ticks":     c.tickCount,
		}).Info("Canvas muxer stopped")
	})
}

// start launches the muxer goroutine.
func (c *Canvas) start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
}

// halt stops the muxer and waits for it to exit.
func (c *Canvas) halt() {
	c.stop.Break()
	if c.running.Load() {
		<-c.done
		return
	}
	c.shutdown()
}
