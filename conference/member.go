package conference

import (
	"fmt"
	"sync"
	"time"

	"github.com/frostbyte73/core"
	"github.com/opd-ai/toxmix/interfaces"
	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// MemberConfig describes a participant joining the conference.
type MemberConfig struct {
	ID      uint32
	Name    string
	Session interfaces.MemberSession

	// Video marks the member as video capable.
	Video bool

	Moderator bool
	// VideoBridge members lock the floor while they hold it.
	VideoBridge bool
	// PerMemberEncoding members receive the raw canvas image and encode it
	// on their own writer path.
	PerMemberEncoding bool

	ReservationID string

	// Avatar and Logo are PNG paths. Banner is text drawn along the bottom
	// of the member's layer.
	Avatar string
	Logo   string
	Banner string

	// CaptureWidth and CaptureHeight are the member's native resolution,
	// used for bitrate when the member has no layer.
	CaptureWidth  uint16
	CaptureHeight uint16

	// ForcedBitrateKbps disables automatic bitrate management for the member.
	ForcedBitrateKbps uint32

	// CanvasID is the shared canvas the member is placed on.
	CanvasID int
}

type displayState int

const (
	showNone displayState = iota
	showLive
	showAvatar
	showMuted
)

// outFrame is one entry of a member's outbound queue: either an encoded
// canvas frame or the raw canvas image.
type outFrame struct {
	codec    string
	data     []byte
	keyframe bool
	raw      *video.VideoFrame
}

// Member is the video state of one participant. Layers refer to members
// only by id; the conference roster resolves ids to members.
type Member struct {
	id                uint32
	name              string
	session           interfaces.MemberSession
	moderator         bool
	videoBridge       bool
	perMemberEncoding bool
	videoCapable      bool
	captureW          uint16
	captureH          uint16
	forcedKbps        uint32

	// life is write-locked during teardown; users resolving the member from
	// an id hold it in read mode.
	life sync.RWMutex
	gone atomic.Bool

	incoming *frameQueue[*video.VideoFrame]
	outbound *frameQueue[outFrame]

	mu            sync.Mutex
	lastFrame     *video.VideoFrame
	lastFrameAt   time.Time
	avatar        *video.VideoFrame
	muteSnapshot  *video.VideoFrame
	showing       displayState
	gen           uint64
	reservationID string
	banner        string
	logo          string
	overlaySeq    uint64

	videoMuted     atomic.Bool
	canvasID       atomic.Int32
	layerID        atomic.Int32
	layerW         atomic.Int32
	layerH         atomic.Int32
	homeCanvas     atomic.Int32
	watchingCanvas atomic.Int32
	personalCanvas atomic.Int32
	layerTimeout   atomic.Int32

	bitrate bitrateState

	stop       core.Fuse
	writerOnce sync.Once
	writerDone chan struct{}
}

func newMember(cfg MemberConfig, incomingSize, outboundSize, layerTimeout int) *Member {
	m := &Member{
		id:                cfg.ID,
		name:              cfg.Name,
		session:           cfg.Session,
		moderator:         cfg.Moderator,
		videoBridge:       cfg.VideoBridge,
		perMemberEncoding: cfg.PerMemberEncoding,
		videoCapable:      cfg.Video,
		captureW:          cfg.CaptureWidth,
		captureH:          cfg.CaptureHeight,
		forcedKbps:        cfg.ForcedBitrateKbps,
		incoming:          newFrameQueue[*video.VideoFrame](incomingSize),
		outbound:          newFrameQueue[outFrame](outboundSize),
		reservationID:     cfg.ReservationID,
		banner:            cfg.Banner,
		logo:              cfg.Logo,
		writerDone:        make(chan struct{}),
	}
	m.canvasID.Store(-1)
	m.layerID.Store(-1)
	m.homeCanvas.Store(int32(cfg.CanvasID))
	m.watchingCanvas.Store(int32(cfg.CanvasID))
	m.personalCanvas.Store(-1)
	m.layerTimeout.Store(int32(layerTimeout))
	if cfg.Banner != "" || cfg.Logo != "" {
		m.overlaySeq = 1
	}
	return m
}

// ID returns the member id.
func (m *Member) ID() uint32 { return m.id }

// Name returns the display name.
func (m *Member) Name() string { return m.name }

// PushFrame queues a decoded frame for the next tick. Only the newest
// queued frame is used; a full queue drops the frame.
func (m *Member) PushFrame(frame *video.VideoFrame) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if m.gone.Load() {
		return ErrMemberNotFound
	}
	if !m.incoming.Push(frame) {
		logrus.WithFields(logrus.Fields{
			"function":  "Member.PushFrame",
			"member_id": m.id,
			"dropped":   m.incoming.Dropped(),
		}).Debug("Incoming frame queue full, dropping frame")
		return ErrQueueFull
	}
	return nil
}

// acquire takes the lifetime read lock. It returns false for a member that
// is being torn down.
func (m *Member) acquire() bool {
	m.life.RLock()
	if m.gone.Load() {
		m.life.RUnlock()
		return false
	}
	return true
}

func (m *Member) release() {
	m.life.RUnlock()
}

// wantsLayer reports whether the member has anything to show.
func (m *Member) wantsLayer(hasDefaultAvatar bool) bool {
	if m.videoCapable || hasDefaultAvatar {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avatar != nil
}

func (m *Member) setAvatar(f *video.VideoFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avatar = f
	if m.showing == showAvatar {
		m.gen++
	}
}

// currentImage pops the newest queued frame and returns the image the
// member should be shown with, along with a generation number that changes
// whenever that image changes. Every canvas showing the member sees the
// same generation within a tick.
func (m *Member) currentImage(now time.Time, avatarTimeout time.Duration, defaultAvatar *video.VideoFrame) (*video.VideoFrame, uint64, displayState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newFrame := false
	if f, dropped, ok := m.incoming.Latest(); ok {
		m.lastFrame = f
		m.lastFrameAt = now
		newFrame = true
		if dropped > 0 {
			logrus.WithFields(logrus.Fields{
				"function":  "Member.currentImage",
				"member_id": m.id,
				"discarded": dropped,
			}).Debug("Discarding stale frames")
		}
	}

	avatar := m.avatar
	if avatar == nil {
		avatar = defaultAvatar
	}

	var want displayState
	switch {
	case m.videoMuted.Load():
		want = showMuted
	case m.videoCapable && m.lastFrame != nil && now.Sub(m.lastFrameAt) < avatarTimeout:
		want = showLive
	case avatar != nil:
		want = showAvatar
	default:
		want = showNone
	}

	if want != m.showing {
		m.showing = want
		m.gen++
		if want == showMuted {
			m.muteSnapshot = buildMuteSnapshot(m.lastFrame, avatar)
		} else {
			m.muteSnapshot = nil
		}
	} else if want == showLive && newFrame {
		m.gen++
	}

	switch want {
	case showLive:
		return m.lastFrame, m.gen, want
	case showAvatar:
		return avatar, m.gen, want
	case showMuted:
		return m.muteSnapshot, m.gen, want
	}
	return nil, m.gen, want
}

func buildMuteSnapshot(last, avatar *video.VideoFrame) *video.VideoFrame {
	src := last
	if src == nil {
		src = avatar
	}
	if src == nil {
		return nil
	}
	snap, err := video.NewMuteChain().Apply(src)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "buildMuteSnapshot",
			"error":    err.Error(),
		}).Warn("Failed to render mute snapshot")
		return nil
	}
	return snap
}

// overlays returns the banner text, logo path and their change counter.
func (m *Member) overlays() (string, string, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.banner, m.logo, m.overlaySeq
}

func (m *Member) reservation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationID
}

// clearBinding resets the shared-canvas attachment.
func (m *Member) clearBinding() {
	m.canvasID.Store(-1)
	m.layerID.Store(-1)
	m.layerW.Store(0)
	m.layerH.Store(0)
	m.bitrate.layerChanged()
}

// setBinding records the shared-canvas layer and its pixel size.
func (m *Member) setBinding(canvasID, layerID, w, h int) {
	m.canvasID.Store(int32(canvasID))
	m.layerID.Store(int32(layerID))
	m.layerW.Store(int32(w))
	m.layerH.Store(int32(h))
	m.bitrate.layerChanged()
}

// startWriter launches the goroutine draining the outbound queue into the
// session.
func (m *Member) startWriter(wg *sync.WaitGroup) {
	m.writerOnce.Do(func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(m.writerDone)
			m.runWriter()
		}()
	})
}

func (m *Member) runWriter() {
	for {
		select {
		case <-m.stop.Watch():
			return
		case <-m.outbound.Wait():
			m.flushOutbound()
		}
	}
}

// flushOutbound writes every queued frame to the session and returns how
// many were written.
func (m *Member) flushOutbound() int {
	written := 0
	for {
		f, ok := m.outbound.Pop()
		if !ok {
			return written
		}
		if m.session == nil {
			continue
		}

		var err error
		if f.raw != nil {
			err = m.session.WriteRawFrame(f.raw)
		} else {
			err = m.session.WriteEncodedFrame(f.codec, f.data, f.keyframe)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Member.flushOutbound",
				"member_id": m.id,
				"codec":     f.codec,
				"error":     err.Error(),
			}).Warn("Failed to write frame to member session")
			continue
		}
		written++
	}
}

func (m *Member) requestKeyFrame() {
	if m.session == nil {
		return
	}
	if err := m.session.RequestKeyFrame(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Member.requestKeyFrame",
			"member_id": m.id,
			"error":     err.Error(),
		}).Warn("Key frame request failed")
	}
}

// codec returns the codec the member receives.
func (m *Member) codec() string {
	if m.session == nil {
		return ""
	}
	return m.session.Codec()
}

// teardown stops the writer and waits out every lifetime reader.
func (m *Member) teardown() {
	m.stop.Break()
	m.life.Lock()
	m.gone.Store(true)
	m.life.Unlock()

	m.mu.Lock()
	m.lastFrame = nil
	m.avatar = nil
	m.muteSnapshot = nil
	m.mu.Unlock()
}
