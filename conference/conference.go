package conference

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/frostbyte73/core"
	"github.com/google/uuid"
	"github.com/opd-ai/toxmix/layout"
	"github.com/opd-ai/toxmix/limits"
	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Conference mixes the video of its members onto one or more canvases.
//
// Shared canvases 0..CanvasCount-1 exist for the conference lifetime.
// Personal canvases and the super canvas are optional. Each canvas runs
// its own muxer goroutine once the conference is started.
type Conference struct {
	id            string
	cfg           Config
	catalog       *layout.Catalog
	group         *layout.Group
	initial       *layout.Layout
	assets        *assetCache
	defaultAvatar *video.VideoFrame
	loadAvg       func() float64

	// mu guards membership, the floor and personal canvases. It is always
	// taken before any canvas mutex.
	mu           sync.Mutex
	roster       atomic.Pointer[roster]
	canvases     []*Canvas
	super        *Canvas
	personal     map[int]*Canvas
	nextPersonal int
	floor        floorState
	floorHolder  atomic.Uint32
	fps          atomic.Int32

	tpMu         sync.RWMutex
	timeProvider TimeProvider

	events eventHub

	ctx      context.Context
	cancel   context.CancelFunc
	running  atomic.Bool
	stop     core.Fuse
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a conference. A nil cfg uses DefaultConfig and a nil catalog
// uses layout.DefaultCatalog.
func New(cfg *Config, catalog *layout.Catalog) (*Conference, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = layout.DefaultCatalog()
	}

	c := &Conference{
		id:           uuid.NewString(),
		cfg:          *cfg,
		catalog:      catalog,
		assets:       newAssetCache(defaultAssetCacheSize),
		loadAvg:      systemLoadAverage,
		personal:     make(map[int]*Canvas),
		timeProvider: DefaultTimeProvider{},
	}
	if c.cfg.EncoderFactory == nil {
		c.cfg.EncoderFactory = video.PassthroughEncoderFactory
	}
	c.roster.Store(emptyRoster)
	c.fps.Store(int32(cfg.FPS))

	if cfg.LayoutGroup != "" {
		c.group = catalog.Group(cfg.LayoutGroup)
		if c.group == nil {
			return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, cfg.LayoutGroup)
		}
	}
	if cfg.Layout != "" {
		c.initial = catalog.Layout(cfg.Layout)
		if c.initial == nil {
			return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, cfg.Layout)
		}
	} else {
		c.initial = layout.FindBest(c.group, 0)
	}
	if c.initial == nil {
		return nil, ErrNoLayouts
	}

	if cfg.DefaultAvatar != "" {
		avatar, err := c.assets.frame(cfg.DefaultAvatar)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "New",
				"avatar":   cfg.DefaultAvatar,
				"error":    err.Error(),
			}).Warn("Failed to load default avatar")
		}
		c.defaultAvatar = avatar
	}

	c.canvases = make([]*Canvas, cfg.CanvasCount)
	for i := range c.canvases {
		cv, err := newCanvas(c, i, kindShared, 0)
		if err != nil {
			return nil, err
		}
		c.canvases[i] = cv
	}
	for _, cv := range c.canvases {
		c.initCanvasLayout(cv)
	}

	if cfg.SuperCanvas && cfg.CanvasCount > 1 {
		sc, err := c.newSuperCanvas()
		if err != nil {
			return nil, err
		}
		c.super = sc
	}

	logrus.WithFields(logrus.Fields{
		"function":      "New",
		"conference_id": c.id,
		"canvases":      cfg.CanvasCount,
		"layout":        c.initial.Name,
		"group":         cfg.LayoutGroup,
		"fps":           cfg.FPS,
		"super_canvas":  c.super != nil,
	}).Info("Conference created")

	return c, nil
}

// initCanvasLayout applies the initial layout and layout group.
func (c *Conference) initCanvasLayout(cv *Canvas) {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	cv.group = c.group
	cv.applyLayout(c.initial)
	cv.takeEffects()
}

// ID returns the conference id.
func (c *Conference) ID() string { return c.id }

// Start launches the canvas muxers and member writers.
func (c *Conference) Start(ctx context.Context) error {
	if c.stop.IsBroken() {
		return ErrStopped
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	for _, cv := range c.allCanvasesLocked() {
		cv.start(c.ctx)
	}
	for _, m := range c.roster.Load().order {
		m.startWriter(&c.wg)
	}
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "Conference.Start",
		"conference_id": c.id,
	}).Info("Conference started")
	return nil
}

// Stop halts every muxer and writer and releases all members. It is safe
// to call more than once.
func (c *Conference) Stop() {
	c.stopOnce.Do(func() {
		c.stop.Break()

		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		canvases := c.allCanvasesLocked()
		members := c.roster.Load().order
		c.mu.Unlock()

		for _, cv := range canvases {
			cv.halt()
		}
		for _, m := range members {
			m.teardown()
		}
		c.wg.Wait()
		c.running.Store(false)

		logrus.WithFields(logrus.Fields{
			"function":      "Conference.Stop",
			"conference_id": c.id,
		}).Info("Conference stopped")
	})
}

// AddMember joins a participant. The first video member takes an empty
// floor.
func (c *Conference) AddMember(cfg MemberConfig) (*Member, error) {
	if cfg.ID == 0 {
		return nil, ErrInvalidMemberID
	}
	if c.stop.IsBroken() {
		return nil, ErrStopped
	}
	if cfg.CanvasID < 0 || cfg.CanvasID >= len(c.canvases) {
		return nil, fmt.Errorf("%w: %d", ErrCanvasNotFound, cfg.CanvasID)
	}

	var avatar *video.VideoFrame
	if cfg.Avatar != "" {
		f, err := c.assets.frame(cfg.Avatar)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Conference.AddMember",
				"member_id": cfg.ID,
				"avatar":    cfg.Avatar,
				"error":     err.Error(),
			}).Warn("Failed to load member avatar")
		}
		avatar = f
	}

	c.mu.Lock()
	r := c.roster.Load()
	if r.get(cfg.ID) != nil {
		c.mu.Unlock()
		return nil, ErrMemberExists
	}
	m := newMember(cfg, c.cfg.IncomingQueueSize, c.cfg.OutboundQueueSize, c.cfg.LayerTimeoutTicks)
	m.avatar = avatar
	c.roster.Store(r.with(m))
	fc := c.promoteOnJoinLocked(m)

	if c.cfg.PersonalCanvas && m.videoCapable {
		_, _ = c.createPersonalCanvasLocked(m)
	}
	if c.running.Load() {
		m.startWriter(&c.wg)
	}
	watching := c.canvasLocked(int(m.watchingCanvas.Load()))
	c.mu.Unlock()

	if watching != nil {
		watching.requestKeyframe()
	}
	c.applyFloorChange(fc)

	logrus.WithFields(logrus.Fields{
		"function":      "Conference.AddMember",
		"conference_id": c.id,
		"member_id":     m.id,
		"name":          m.name,
		"video":         m.videoCapable,
		"canvas_id":     cfg.CanvasID,
	}).Info("Member joined")
	return m, nil
}

// RemoveMember detaches the member everywhere, reassigns the floor if it
// held it and releases its personal canvas.
func (c *Conference) RemoveMember(id uint32) error {
	c.mu.Lock()
	r := c.roster.Load()
	m := r.get(id)
	if m == nil {
		c.mu.Unlock()
		return ErrMemberNotFound
	}
	c.roster.Store(r.without(id))
	fc := c.reassignOnLeaveLocked(id)

	var owned *Canvas
	if pid := int(m.personalCanvas.Load()); pid >= 0 {
		owned = c.personal[pid]
		delete(c.personal, pid)
		for _, other := range c.roster.Load().order {
			if int(other.watchingCanvas.Load()) == pid {
				other.watchingCanvas.Store(other.homeCanvas.Load())
			}
		}
	}

	var effects []tickEffects
	for _, cv := range c.allCanvasesLocked() {
		cv.mu.Lock()
		cv.detachMember(m)
		effects = append(effects, cv.takeEffects())
		cv.mu.Unlock()
	}
	c.mu.Unlock()

	if owned != nil {
		owned.halt()
	}
	m.teardown()

	for _, e := range effects {
		c.applyEffects(e)
	}
	c.applyFloorChange(fc)

	logrus.WithFields(logrus.Fields{
		"function":      "Conference.RemoveMember",
		"conference_id": c.id,
		"member_id":     id,
	}).Info("Member left")
	return nil
}

// Member returns the member with the given id.
func (c *Conference) Member(id uint32) (*Member, error) {
	m := c.roster.Load().get(id)
	if m == nil {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

// Members returns the member ids in join order.
func (c *Conference) Members() []uint32 {
	r := c.roster.Load()
	ids := make([]uint32, 0, r.len())
	for _, m := range r.order {
		ids = append(ids, m.id)
	}
	return ids
}

// SetVideoMute shows the member's muted snapshot instead of live video.
func (c *Conference) SetVideoMute(id uint32, muted bool) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	if m.videoMuted.Swap(muted) != muted {
		logrus.WithFields(logrus.Fields{
			"function":  "Conference.SetVideoMute",
			"member_id": id,
			"muted":     muted,
		}).Info("Member video mute changed")
	}
	return nil
}

// SetReservationID changes the member's reservation. The member is
// re-placed on the next tick.
func (c *Conference) SetReservationID(id uint32, reservationID string) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	changed := m.reservationID != reservationID
	m.reservationID = reservationID
	m.mu.Unlock()
	if changed {
		c.detachEverywhere(m)
	}
	return nil
}

// SetBanner sets the text drawn along the bottom of the member's layer.
func (c *Conference) SetBanner(id uint32, text string) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.banner = text
	m.overlaySeq++
	m.mu.Unlock()
	return nil
}

// SetLogo sets the PNG drawn in the top-right corner of the member's layer.
func (c *Conference) SetLogo(id uint32, path string) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.logo = path
	m.overlaySeq++
	m.mu.Unlock()
	return nil
}

// SetAvatar loads the PNG shown while the member sends no video.
func (c *Conference) SetAvatar(id uint32, path string) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	f, err := c.assets.frame(path)
	if err != nil {
		return fmt.Errorf("load avatar: %w", err)
	}
	m.setAvatar(f)
	return nil
}

// SetLayout switches the canvas to the named layout on its next tick and
// disables automatic layout selection.
func (c *Conference) SetLayout(canvasID int, name string) error {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}
	l := c.catalog.Layout(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	cv.mu.Lock()
	cv.group = nil
	cv.newVlayout = l
	cv.mu.Unlock()
	return nil
}

// SetLayoutGroup selects layouts for the canvas from the named group by
// participant count. An empty name keeps the current layout fixed.
func (c *Conference) SetLayoutGroup(canvasID int, name string) error {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}
	var g *layout.Group
	if name != "" {
		if g = c.catalog.Group(name); g == nil {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
		}
	}
	cv.mu.Lock()
	cv.group = g
	cv.lastCount = -1
	cv.mu.Unlock()
	return nil
}

// SetWatchingCanvas chooses which canvas the member receives.
func (c *Conference) SetWatchingCanvas(id uint32, canvasID int) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}
	m.watchingCanvas.Store(int32(canvasID))
	cv.requestKeyframe()
	return nil
}

// SetMemberCanvas moves the member's layer to another shared canvas.
func (c *Conference) SetMemberCanvas(id uint32, canvasID int) error {
	m, err := c.Member(id)
	if err != nil {
		return err
	}
	if canvasID < 0 || canvasID >= len(c.canvases) {
		return fmt.Errorf("%w: %d", ErrCanvasNotFound, canvasID)
	}
	old := int(m.homeCanvas.Swap(int32(canvasID)))
	m.layerTimeout.Store(int32(c.cfg.LayerTimeoutTicks))
	if old == canvasID {
		return nil
	}

	cv := c.canvases[old]
	cv.mu.Lock()
	cv.detachMember(m)
	cv.unlockAndApply()
	return nil
}

// RequestRefresh repaints every layer of the canvas and sends a key frame
// on its next tick.
func (c *Conference) RequestRefresh(canvasID int) error {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}
	cv.requestKeyframe()
	return nil
}

// SetFPS changes the frame rate of every canvas.
func (c *Conference) SetFPS(fps int) error {
	if err := limits.ValidateFPS(fps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.fps.Store(int32(fps))
	return nil
}

// FPS returns the current frame rate.
func (c *Conference) FPS() int {
	return int(c.fps.Load())
}

// SetTimeProvider replaces the clock, for deterministic tests.
func (c *Conference) SetTimeProvider(tp TimeProvider) {
	c.tpMu.Lock()
	defer c.tpMu.Unlock()
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	c.timeProvider = tp
}

func (c *Conference) now() time.Time {
	c.tpMu.RLock()
	defer c.tpMu.RUnlock()
	return c.timeProvider.Now()
}

// OnFloorChange registers the floor change callback.
func (c *Conference) OnFloorChange(cb FloorChangeCallback) {
	c.events.setFloorCallback(cb)
}

// OnMemberStatus registers the layer attach and detach callback.
func (c *Conference) OnMemberStatus(cb MemberStatusCallback) {
	c.events.setStatusCallback(cb)
}

// MemberStatus returns a snapshot of the member's video state.
func (c *Conference) MemberStatus(id uint32) (MemberStatus, error) {
	m, err := c.Member(id)
	if err != nil {
		return MemberStatus{}, err
	}
	return MemberStatus{
		ID:               m.id,
		Name:             m.name,
		CanvasID:         int(m.canvasID.Load()),
		LayerID:          int(m.layerID.Load()),
		HomeCanvasID:     int(m.homeCanvas.Load()),
		WatchingCanvasID: int(m.watchingCanvas.Load()),
		PersonalCanvasID: int(m.personalCanvas.Load()),
		VideoMuted:       m.videoMuted.Load(),
		FloorHolder:      c.floorHolder.Load() == m.id,
		ManagedKbps:      m.bitrate.current(),
		AudioPosition:    c.audioPosition(m),
	}, nil
}

// audioPosition returns the audio hint of the shared layer m occupies.
func (c *Conference) audioPosition(m *Member) string {
	cv, err := c.canvas(int(m.canvasID.Load()))
	if err != nil {
		return ""
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	idx := int(m.layerID.Load())
	if idx < 0 || idx >= len(cv.layers) || cv.layers[idx].memberID != m.id {
		return ""
	}
	return cv.layers[idx].geometry.AudioPosition
}

// CanvasStatus returns a snapshot of the canvas and its bindings.
func (c *Conference) CanvasStatus(canvasID int) (CanvasStatus, error) {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return CanvasStatus{}, err
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.status(), nil
}

// CanvasStats returns the muxer counters of the canvas.
func (c *Conference) CanvasStats(canvasID int) (CanvasStats, error) {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return CanvasStats{}, err
	}
	return cv.stats.snapshot(), nil
}

// Snapshot returns a copy of the canvas's composed image.
func (c *Conference) Snapshot(canvasID int) (*video.VideoFrame, error) {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return nil, err
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	cv.videoRW.RLock()
	defer cv.videoRW.RUnlock()
	return cv.img.Clone(), nil
}

// CanvasIDs returns every canvas id in ascending order.
func (c *Conference) CanvasIDs() []int {
	var ids []int
	for _, cv := range c.allCanvases() {
		ids = append(ids, cv.id)
	}
	return ids
}

// canvas resolves a canvas id.
func (c *Conference) canvas(id int) (*Canvas, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cv := c.canvasLocked(id); cv != nil {
		return cv, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrCanvasNotFound, id)
}

func (c *Conference) canvasLocked(id int) *Canvas {
	switch {
	case id >= 0 && id < len(c.canvases):
		return c.canvases[id]
	case id == SuperCanvasID:
		return c.super
	}
	return c.personal[id]
}

// allCanvases returns shared, personal then super canvases. Caller must
// not hold c.mu.
func (c *Conference) allCanvases() []*Canvas {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allCanvasesLocked()
}

func (c *Conference) allCanvasesLocked() []*Canvas {
	out := append([]*Canvas(nil), c.canvases...)
	ids := make([]int, 0, len(c.personal))
	for id := range c.personal {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, c.personal[id])
	}
	if c.super != nil {
		out = append(out, c.super)
	}
	return out
}

// detachEverywhere releases m from every canvas so it is re-placed on the
// next tick.
func (c *Conference) detachEverywhere(m *Member) {
	for _, cv := range c.allCanvases() {
		cv.mu.Lock()
		cv.detachMember(m)
		cv.unlockAndApply()
	}
}

// applyEffects performs side effects collected under a canvas mutex.
func (c *Conference) applyEffects(e tickEffects) {
	seen := make(map[uint32]bool, len(e.keyframes))
	for _, m := range e.keyframes {
		if m == nil || seen[m.id] || m.gone.Load() {
			continue
		}
		seen[m.id] = true
		m.requestKeyFrame()
	}
	c.events.memberStatus(e.status)
}
