package conference

import (
	"github.com/opd-ai/toxmix/layout"
	"github.com/opd-ai/toxmix/video"
)

// Layer is one rectangular region of a canvas. All fields are guarded by
// the owning canvas mutex except during the patch batch, when a single
// worker owns the layer.
type Layer struct {
	idx      int
	geometry layout.Geometry

	// Pixel geometry derived from the layout and canvas size.
	screenW int
	screenH int
	xPos    int
	yPos    int

	// memberID is 0 when no member is bound.
	memberID uint32
	fnode    *fileNode

	cur        *video.VideoFrame
	gen        uint64
	avatarOnly bool
	attachSeq  uint64

	bannerText  string
	bannerDirty bool
	banner      *video.VideoFrame
	logoPath    string
	logoDirty   bool
	logo        *video.VideoFrame
	overlaySeq  uint64

	// tagged marks layers visited by this tick's intake.
	tagged bool
	// refresh forces a repaint of the retained image.
	refresh bool
	// needPatch marks pending as this tick's image for the layer.
	needPatch bool
	pending   *video.VideoFrame
	freeze    bool
	// blank paints the letterbox colour instead of an image.
	blank bool
}

func newLayer(idx int, g layout.Geometry, canvasW, canvasH int) *Layer {
	l := &Layer{idx: idx}
	l.setGeometry(g, canvasW, canvasH)
	return l
}

// setGeometry derives pixel placement from normalized geometry. The result
// depends only on g and the canvas size.
func (l *Layer) setGeometry(g layout.Geometry, canvasW, canvasH int) {
	l.geometry = g
	l.screenW = (canvasW * g.Scale / layout.ScaleMax) &^ 1
	l.screenH = (canvasH * g.Height() / layout.ScaleMax) &^ 1
	l.xPos = (canvasW * g.X / layout.ScaleMax) &^ 1
	l.yPos = (canvasH * g.Y / layout.ScaleMax) &^ 1
}

// bound reports whether a member or file node occupies the layer.
func (l *Layer) bound() bool {
	return l.memberID != 0 || l.fnode != nil
}

// clearOccupant drops per-occupant images and overlay state.
func (l *Layer) clearOccupant() {
	l.memberID = 0
	l.cur = nil
	l.gen = 0
	l.avatarOnly = false
	l.attachSeq = 0
	l.bannerText = ""
	l.bannerDirty = false
	l.banner = nil
	l.logoPath = ""
	l.logoDirty = false
	l.logo = nil
	l.overlaySeq = 0
	l.refresh = false
	l.clearPatch()
}

// schedule marks img to be patched into the layer this tick.
func (l *Layer) schedule(img *video.VideoFrame, freeze bool) {
	l.needPatch = true
	l.pending = img
	l.freeze = freeze
	l.blank = false
}

// scheduleBlank marks the layer to be cleared to the letterbox colour.
func (l *Layer) scheduleBlank() {
	l.clearPatch()
	l.needPatch = true
	l.blank = true
}

func (l *Layer) clearPatch() {
	l.needPatch = false
	l.pending = nil
	l.freeze = false
	l.blank = false
}

// setOverlays copies the member's banner and logo, marking whichever
// changed for re-rendering.
func (l *Layer) setOverlays(banner, logo string, seq uint64) {
	if seq == l.overlaySeq {
		return
	}
	l.overlaySeq = seq
	if banner != l.bannerText || l.banner == nil {
		l.bannerText = banner
		l.bannerDirty = true
	}
	if logo != l.logoPath || l.logo == nil {
		l.logoPath = logo
		l.logoDirty = true
	}
	l.refresh = true
}

// Index returns the layer index within its canvas.
func (l *Layer) Index() int { return l.idx }

// MemberID returns the bound member id, 0 when unbound.
func (l *Layer) MemberID() uint32 { return l.memberID }
