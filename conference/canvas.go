package conference

import (
	"fmt"
	"sync"
	"time"

	"github.com/frostbyte73/core"
	"github.com/opd-ai/toxmix/interfaces"
	"github.com/opd-ai/toxmix/layout"
	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// SuperCanvasID is the id members watch to see the composition of all
// shared canvases.
const SuperCanvasID = 999

// personalCanvasBase is the first id handed out to personal canvases.
const personalCanvasBase = 1000

// keyframeSettleTicks delays a second key frame after layout changes so
// members re-attached on the new layout are included.
const keyframeSettleTicks = 5

type canvasKind int

const (
	kindShared canvasKind = iota
	kindPersonal
	kindSuper
)

func (k canvasKind) String() string {
	switch k {
	case kindShared:
		return "shared"
	case kindPersonal:
		return "personal"
	case kindSuper:
		return "super"
	default:
		return "unknown"
	}
}

// tickEffects are side effects collected under the canvas mutex and
// performed after it is released.
type tickEffects struct {
	keyframes []*Member
	status    []MemberStatusEvent
}

// Canvas is one composed output image and the layers laid out on it. The
// composed image keeps its size for the canvas lifetime.
type Canvas struct {
	id    int
	kind  canvasKind
	owner uint32
	conf  *Conference

	width  int
	height int
	img    *video.VideoFrame

	bg        video.Color
	letterbox video.Color
	border    video.Color
	bgImage   *video.VideoFrame
	bgX, bgY  int

	layers     []*Layer
	layersUsed int
	bindings   map[uint32]int
	vlayout    *layout.Layout
	newVlayout *layout.Layout
	group      *layout.Group
	lastCount  int
	attachSeq  uint64

	sendKeyframe int
	lastKeyframe time.Time
	tickCount    uint64
	refresh      atomic.Int32

	// outQueue feeds the super canvas.
	outQueue *frameQueue[*video.VideoFrame]
	sources  []*Canvas

	fileNodes []*fileNode
	encoders  map[string]*canvasEncoder
	recorders map[string]interfaces.Recorder

	effects tickEffects
	scaler  *video.Scaler
	stats   canvasStats

	// mu guards everything above. videoRW is held in read mode by patch
	// workers and in write mode while the image is encoded.
	mu      sync.Mutex
	videoRW sync.RWMutex

	stop         core.Fuse
	running      atomic.Bool
	done         chan struct{}
	shutdownOnce sync.Once
}

func newCanvas(conf *Conference, id int, kind canvasKind, owner uint32) (*Canvas, error) {
	cfg := &conf.cfg
	img := video.NewSolidFrame(uint16(cfg.Width), uint16(cfg.Height), cfg.BackgroundColor)
	if img == nil {
		return nil, fmt.Errorf("allocate %dx%d canvas image", cfg.Width, cfg.Height)
	}

	c := &Canvas{
		id:        id,
		kind:      kind,
		owner:     owner,
		conf:      conf,
		width:     cfg.Width,
		height:    cfg.Height,
		img:       img,
		bg:        cfg.BackgroundColor,
		letterbox: cfg.LetterboxColor,
		border:    cfg.BorderColor,
		bindings:  make(map[uint32]int),
		lastCount: -1,
		encoders:  make(map[string]*canvasEncoder),
		recorders: make(map[string]interfaces.Recorder),
		scaler:    video.NewScaler(),
		done:      make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"function":  "newCanvas",
		"canvas_id": id,
		"kind":      kind.String(),
		"owner":     owner,
		"width":     c.width,
		"height":    c.height,
	}).Info("Created canvas")

	return c, nil
}

// ID returns the canvas id.
func (c *Canvas) ID() int { return c.id }

// floorFollows reports whether floor-designated layers track the floor
// holder on this canvas. Conferences with several shared canvases keep an
// explicit member set per canvas instead.
func (c *Canvas) floorFollows() bool {
	switch c.kind {
	case kindPersonal:
		return true
	case kindShared:
		return len(c.conf.canvases) == 1
	}
	return false
}

func (c *Canvas) floorLayerIndex() int {
	for i, l := range c.layers {
		if l.geometry.Role.IsFloor() {
			return i
		}
	}
	return -1
}

// applyLayout swaps in a new layout. Every layer is reinitialised, every
// bound member is detached and the background is repainted. Caller holds
// c.mu and no patch batch is outstanding.
func (c *Canvas) applyLayout(l *layout.Layout) {
	r := c.conf.roster.Load()
	for _, layer := range c.layers {
		if layer.memberID != 0 {
			m := r.get(layer.memberID)
			c.detachLayer(layer, m, false)
			if m != nil {
				c.effects.keyframes = append(c.effects.keyframes, m)
			}
		}
		if layer.fnode != nil {
			layer.fnode.layer = -1
			layer.fnode = nil
		}
	}

	layers := make([]*Layer, l.Layers())
	for i, g := range l.Geometries {
		layers[i] = newLayer(i, g, c.width, c.height)
	}
	c.layers = layers
	c.layersUsed = 0
	c.bindings = make(map[uint32]int)
	c.vlayout = l
	c.newVlayout = nil
	c.sendKeyframe = keyframeSettleTicks
	c.stats.layoutChanges.Inc()

	c.repaintBackground()
	c.rebindFileNodes()

	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.applyLayout",
		"canvas_id": c.id,
		"layout":    l.Name,
		"layers":    l.Layers(),
	}).Info("Applied layout")
}

// repaintBackground fills the canvas with the background colour, then the
// layout's background image fitted and centred.
func (c *Canvas) repaintBackground() {
	video.FillRect(c.img, 0, 0, c.width, c.height, c.bg)
	c.bgImage = nil
	if c.vlayout == nil || c.vlayout.BackgroundImage == "" {
		return
	}

	bg, err := c.conf.assets.fitted(c.vlayout.BackgroundImage, c.width, c.height)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Canvas.repaintBackground",
			"canvas_id": c.id,
			"image":     c.vlayout.BackgroundImage,
			"error":     err.Error(),
		}).Warn("Failed to load layout background")
		return
	}
	c.bgImage = bg
	c.bgX, c.bgY = c.scaler.FindPosition(c.width, c.height, int(bg.Width), int(bg.Height))
	video.Patch(c.img, bg, c.bgX, c.bgY)
}

// restoreBackground repaints the background under a rectangle.
func (c *Canvas) restoreBackground(x, y, w, h int) {
	video.FillRect(c.img, x, y, w, h, c.bg)
	if c.bgImage == nil {
		return
	}

	x0, y0 := max(x, c.bgX), max(y, c.bgY)
	x1, y1 := min(x+w, c.bgX+int(c.bgImage.Width)), min(y+h, c.bgY+int(c.bgImage.Height))
	if x1 <= x0 || y1 <= y0 {
		return
	}
	part, err := video.Crop(c.bgImage, x0-c.bgX, y0-c.bgY, x1-x0, y1-y0)
	if err != nil {
		return
	}
	video.Patch(c.img, part, (x0-c.bgX)&^1+c.bgX, (y0-c.bgY)&^1+c.bgY)
}

// bindMember attaches m to layer, detaching whatever either of them was
// bound to on this canvas. Caller holds c.mu.
func (c *Canvas) bindMember(layer *Layer, m *Member, avatarOnly bool) {
	if idx, ok := c.bindings[m.id]; ok && idx != layer.idx && idx < len(c.layers) {
		c.detachLayer(c.layers[idx], m, true)
	}
	if layer.memberID != 0 && layer.memberID != m.id {
		c.detachLayer(layer, c.conf.roster.Load().get(layer.memberID), false)
	}

	layer.memberID = m.id
	layer.avatarOnly = avatarOnly
	layer.gen = 0
	layer.refresh = true
	c.attachSeq++
	layer.attachSeq = c.attachSeq
	layer.setOverlays(m.overlays())

	c.bindings[m.id] = layer.idx
	c.layersUsed++
	if c.kind == kindShared {
		m.setBinding(c.id, layer.idx, layer.screenW, layer.screenH)
	}
	m.layerTimeout.Store(int32(c.conf.cfg.LayerTimeoutTicks))

	c.effects.keyframes = append(c.effects.keyframes, m)
	c.effects.status = append(c.effects.status, MemberStatusEvent{
		ConferenceID:  c.conf.ID(),
		MemberID:      m.id,
		CanvasID:      c.id,
		LayerID:       layer.idx,
		Attached:      true,
		AudioPosition: layer.geometry.AudioPosition,
	})

	logrus.WithFields(logrus.Fields{
		"function":    "Canvas.bindMember",
		"canvas_id":   c.id,
		"layer":       layer.idx,
		"member_id":   m.id,
		"avatar_only": avatarOnly,
	}).Info("Member attached to layer")
}

// detachLayer releases the member bound to layer. m may be nil when the
// member is already gone. Caller holds c.mu.
func (c *Canvas) detachLayer(layer *Layer, m *Member, repaint bool) {
	id := layer.memberID
	if id == 0 {
		return
	}
	if idx, ok := c.bindings[id]; ok && idx == layer.idx {
		delete(c.bindings, id)
	}
	layer.clearOccupant()
	c.layersUsed--

	if repaint {
		c.restoreBackground(layer.xPos, layer.yPos, layer.screenW, layer.screenH)
	}
	if m != nil && c.kind == kindShared &&
		int(m.canvasID.Load()) == c.id && int(m.layerID.Load()) == layer.idx {
		m.clearBinding()
	}

	c.effects.status = append(c.effects.status, MemberStatusEvent{
		ConferenceID: c.conf.ID(),
		MemberID:     id,
		CanvasID:     c.id,
		LayerID:      layer.idx,
		Attached:     false,
	})

	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.detachLayer",
		"canvas_id": c.id,
		"layer":     layer.idx,
		"member_id": id,
	}).Info("Member detached from layer")
}

// detachMember releases m from whichever layer it holds on this canvas.
func (c *Canvas) detachMember(m *Member) bool {
	idx, ok := c.bindings[m.id]
	if !ok || idx >= len(c.layers) {
		return false
	}
	c.detachLayer(c.layers[idx], m, true)
	return true
}

// takeEffects returns and clears the collected side effects. Caller holds
// c.mu.
func (c *Canvas) takeEffects() tickEffects {
	e := c.effects
	c.effects = tickEffects{}
	return e
}

// unlockAndApply releases c.mu and performs the collected side effects.
func (c *Canvas) unlockAndApply() {
	e := c.takeEffects()
	c.mu.Unlock()
	c.conf.applyEffects(e)
}

// requestKeyframe schedules a key frame on the next tick.
func (c *Canvas) requestKeyframe() {
	c.refresh.Inc()
}

// status returns a snapshot of the canvas. Caller holds c.mu.
func (c *Canvas) status() CanvasStatus {
	s := CanvasStatus{
		ID:         c.id,
		Kind:       c.kind.String(),
		Owner:      c.owner,
		Width:      c.width,
		Height:     c.height,
		Layers:     len(c.layers),
		LayersUsed: c.layersUsed,
		Bindings:   make(map[int]uint32, len(c.bindings)),
		Recorders:  len(c.recorders),
	}
	if c.vlayout != nil {
		s.Layout = c.vlayout.Name
	}
	for _, l := range c.layers {
		if l.memberID != 0 {
			s.Bindings[l.idx] = l.memberID
		}
		if l.fnode != nil {
			s.FileLayers = append(s.FileLayers, l.idx)
		}
	}
	return s
}
