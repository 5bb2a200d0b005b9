package conference

import (
	"errors"
	"testing"
	"time"

	"github.com/opd-ai/toxmix/simulation"
	"github.com/opd-ai/toxmix/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deliveries flushes the member's outbound queue and returns the session's
// delivery log.
func deliveries(m *Member, sess *simulation.SimulatedSession) []simulation.DeliveryRecord {
	m.flushOutbound()
	return sess.GetDeliveryLog()
}

func assertColorNear(t *testing.T, want, got video.Color) {
	t.Helper()
	assert.InDelta(t, int(want.Y), int(got.Y), 3, "luma")
	assert.InDelta(t, int(want.U), int(got.U), 3, "chroma u")
	assert.InDelta(t, int(want.V), int(got.V), 3, "chroma v")
}

// Scenario D: an encoder that needs more data is retried on later ticks
// and the pending key frame is carried to the first frame it emits.
func TestEncode_MoreDataRetries(t *testing.T) {
	factory := &simulation.ScriptedEncoderFactory{
		Codec:  "VP8",
		Script: []error{video.ErrMoreData, video.ErrMoreData},
	}
	conf, _ := newTestConference(t, func(c *Config) {
		c.LayoutGroup = ""
		c.Layout = "2x2"
		c.EncoderFactory = factory.New
	})
	m, sess := addVideoMember(t, conf, 1)

	for i := 0; i < 2; i++ {
		pushAll(t, m)
		conf.tickOnce()
		assert.Empty(t, deliveries(m, sess), "tick %d", i+1)
	}

	pushAll(t, m)
	conf.tickOnce()
	log := deliveries(m, sess)
	require.Len(t, log, 1)
	assert.True(t, log[0].Keyframe)
	assert.Equal(t, "VP8", log[0].Codec)

	stats, err := conf.CanvasStats(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.EncodeRetries)
	assert.Equal(t, uint64(0), stats.EncodeFailures)
	assert.Equal(t, uint64(3), stats.Ticks)

	encoders := factory.Encoders("VP8")
	require.Len(t, encoders, 1)
	assert.Equal(t, 3, encoders[0].Calls())
}

func TestEncode_FailureCarriesKeyframe(t *testing.T) {
	factory := &simulation.ScriptedEncoderFactory{
		Codec:  "VP8",
		Script: []error{errors.New("encoder fault")},
	}
	conf, _ := newTestConference(t, func(c *Config) { c.EncoderFactory = factory.New })
	m, sess := addVideoMember(t, conf, 1)

	conf.tickOnce()
	assert.Empty(t, deliveries(m, sess))

	conf.tickOnce()
	log := deliveries(m, sess)
	require.Len(t, log, 1)
	assert.True(t, log[0].Keyframe)

	stats, err := conf.CanvasStats(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.EncodeFailures)
}

func TestEncode_OnePassPerCodec(t *testing.T) {
	factory := &simulation.ScriptedEncoderFactory{}
	conf, _ := newTestConference(t, func(c *Config) { c.EncoderFactory = factory.New })

	type watcher struct {
		m    *Member
		sess *simulation.SimulatedSession
	}
	var watchers []watcher
	for id, codec := range map[uint32]string{1: "VP8", 2: "VP8", 3: "H264"} {
		sess := simulation.NewSimulatedSession(codec)
		m, err := conf.AddMember(MemberConfig{ID: id, Session: sess, Video: true})
		require.NoError(t, err)
		watchers = append(watchers, watcher{m, sess})
	}

	conf.tickOnce()
	conf.tickOnce()

	for _, w := range watchers {
		log := deliveries(w.m, w.sess)
		require.Len(t, log, 2)
		assert.Equal(t, w.sess.Codec(), log[0].Codec)
	}

	vp8 := factory.Encoders("VP8")
	h264 := factory.Encoders("H264")
	require.Len(t, vp8, 1)
	require.Len(t, h264, 1)
	assert.Equal(t, 2, vp8[0].Calls())
	assert.Equal(t, 2, h264[0].Calls())
}

func TestEncode_CreationFailureExcludesCodec(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) {
		c.EncoderFactory = func(codec string, w, h uint16, bitRate uint32) (video.Encoder, error) {
			if codec == "H264" {
				return nil, video.ErrUnsupportedCodec
			}
			return video.PassthroughEncoderFactory(codec, w, h, bitRate)
		}
	})

	m1, sess1 := addVideoMember(t, conf, 1)
	sess2 := simulation.NewSimulatedSession("H264")
	m2, err := conf.AddMember(MemberConfig{ID: 2, Session: sess2, Video: true})
	require.NoError(t, err)

	conf.tickOnce()
	conf.tickOnce()

	assert.Len(t, deliveries(m1, sess1), 2)
	assert.Empty(t, deliveries(m2, sess2))
}

func TestEncode_PerMemberEncodingGetsRawImage(t *testing.T) {
	conf, _ := newTestConference(t, nil)
	sess := simulation.NewSimulatedSession("VP8")
	m, err := conf.AddMember(MemberConfig{ID: 1, Session: sess, Video: true, PerMemberEncoding: true})
	require.NoError(t, err)

	conf.tickOnce()

	log := deliveries(m, sess)
	require.Len(t, log, 1)
	assert.True(t, log[0].Raw)
	assert.Equal(t, uint16(320), log[0].Width)
	assert.Equal(t, uint16(240), log[0].Height)
}

func TestEnqueue_FullOutboundQueueDrops(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) { c.OutboundQueueSize = 1 })
	m, sess := addVideoMember(t, conf, 1)

	for i := 0; i < 3; i++ {
		conf.tickOnce()
	}

	stats, err := conf.CanvasStats(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.FramesSent)
	assert.Equal(t, uint64(2), stats.FramesDropped)
	assert.Len(t, deliveries(m, sess), 1)
}

func TestKeyframeSchedule(t *testing.T) {
	conf, tp := newTestConference(t, func(c *Config) {
		c.LayoutGroup = ""
		c.Layout = "2x2"
		c.KeyframeInterval = time.Second
	})
	m, sess := addVideoMember(t, conf, 1)

	keyframes := func(n int) []bool {
		var out []bool
		for i := 0; i < n; i++ {
			conf.tickOnce()
		}
		for _, rec := range deliveries(m, sess) {
			out = append(out, rec.Keyframe)
		}
		sess.ClearDeliveryLog()
		return out
	}

	// First frame, then the settle key frame after the initial layout.
	assert.Equal(t, []bool{true, false, false, false, true, false}, keyframes(6))

	require.NoError(t, conf.RequestRefresh(0))
	assert.Equal(t, []bool{true, false}, keyframes(2))

	tp.Advance(time.Second)
	assert.Equal(t, []bool{true, false}, keyframes(2))

	assert.ErrorIs(t, conf.RequestRefresh(7), ErrCanvasNotFound)
}

func TestTimestampsAdvanceWithTicks(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) { c.FPS = 10 })
	rec := simulation.NewSimulatedRecorder(0)
	_, err := conf.StartRecording(0, rec)
	require.NoError(t, err)

	conf.tickOnce()
	assert.Equal(t, uint32(0), rec.Last().Timestamp)
	conf.tickOnce()
	assert.Equal(t, uint32(9000), rec.Last().Timestamp)
}

func TestLayerTimeout_MovesMemberToNextCanvas(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) {
		c.CanvasCount = 2
		c.LayoutGroup = ""
		c.Layout = "1x1"
		c.LayerTimeoutTicks = 2
	})
	m1, _ := addVideoMember(t, conf, 1)
	m2, _ := addVideoMember(t, conf, 2)

	pushAll(t, m1, m2)
	conf.tickOnce()
	assert.Equal(t, 0, layerOf(conf, 0, 1))
	assert.Equal(t, -1, layerOf(conf, 0, 2))
	assert.Equal(t, -1, layerOf(conf, 1, 2))

	pushAll(t, m1, m2)
	conf.tickOnce()

	st, err := conf.MemberStatus(2)
	require.NoError(t, err)
	assert.Equal(t, 1, st.HomeCanvasID)
	assert.Equal(t, 1, st.CanvasID)
	assert.Equal(t, 0, st.LayerID)
	assert.Equal(t, 0, layerOf(conf, 1, 2))
	checkBindings(t, conf)
}

func TestLayerTimeout_SingleCanvasKeepsWaiting(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) {
		c.LayoutGroup = ""
		c.Layout = "1x1"
		c.LayerTimeoutTicks = 1
	})
	m1, _ := addVideoMember(t, conf, 1)
	m2, _ := addVideoMember(t, conf, 2)

	for i := 0; i < 3; i++ {
		pushAll(t, m1, m2)
		conf.tickOnce()
	}

	st, err := conf.MemberStatus(2)
	require.NoError(t, err)
	assert.Equal(t, 0, st.HomeCanvasID)
	assert.Equal(t, -1, st.CanvasID)

	// Once the layer frees up the waiting member takes it.
	require.NoError(t, conf.RemoveMember(1))
	pushAll(t, m2)
	conf.tickOnce()
	assert.Equal(t, 0, layerOf(conf, 0, 2))
}

func TestRecording(t *testing.T) {
	conf, _ := newTestConference(t, nil)

	_, err := conf.StartRecording(0, nil)
	assert.ErrorIs(t, err, ErrRecorderNotCapable)
	closed := simulation.NewSimulatedRecorder(0)
	require.NoError(t, closed.Close())
	_, err = conf.StartRecording(0, closed)
	assert.ErrorIs(t, err, ErrRecorderNotCapable)
	_, err = conf.StartRecording(4, simulation.NewSimulatedRecorder(0))
	assert.ErrorIs(t, err, ErrCanvasNotFound)

	limited := simulation.NewSimulatedRecorder(1)
	limitedID, err := conf.StartRecording(0, limited)
	require.NoError(t, err)
	full := simulation.NewSimulatedRecorder(0)
	fullID, err := conf.StartRecording(0, full)
	require.NoError(t, err)
	assert.NotEqual(t, limitedID, fullID)
	assert.Equal(t, 2, canvasStatus(t, conf, 0).Recorders)

	conf.tickOnce()
	conf.tickOnce()

	// A failed write drops and closes the recorder.
	assert.Equal(t, 1, limited.Frames())
	assert.True(t, limited.Closed())
	assert.Equal(t, 1, canvasStatus(t, conf, 0).Recorders)
	assert.ErrorIs(t, conf.StopRecording(0, limitedID), ErrRecordingNotFound)

	assert.Equal(t, 2, full.Frames())
	last := full.Last()
	assert.Equal(t, uint16(320), last.Width)
	assert.Equal(t, uint16(240), last.Height)

	require.NoError(t, conf.StopRecording(0, fullID))
	assert.True(t, full.Closed())
	assert.Equal(t, 0, canvasStatus(t, conf, 0).Recorders)
}

func TestRecording_ClosedOnStop(t *testing.T) {
	conf, _ := newTestConference(t, nil)
	rec := simulation.NewSimulatedRecorder(0)
	_, err := conf.StartRecording(0, rec)
	require.NoError(t, err)

	conf.Stop()
	assert.True(t, rec.Closed())
}

func TestPlayFile(t *testing.T) {
	bg := video.ColorFromRGB(0, 0, 0)
	blue := video.ColorFromRGB(20, 40, 220)
	conf, _ := newTestConference(t, func(c *Config) {
		c.LayoutGroup = ""
		c.Layout = "file"
		c.BackgroundColor = bg
	})

	assert.Error(t, conf.PlayFile(0, nil))
	assert.ErrorIs(t, conf.PlayFile(3, simulation.NewSimulatedFileSource("x", 64, 48, blue, 1)), ErrCanvasNotFound)

	src := simulation.NewSimulatedFileSource("intro.ivf", 64, 48, blue, 2)
	require.NoError(t, conf.PlayFile(0, src))
	assert.Equal(t, []int{0}, canvasStatus(t, conf, 0).FileLayers)

	// Members never take the file layer.
	m, _ := addVideoMember(t, conf, 1)
	pushAll(t, m)
	conf.tickOnce()
	assert.Equal(t, 1, layerOf(conf, 0, 1))

	snap, err := conf.Snapshot(0)
	require.NoError(t, err)
	assertColorNear(t, blue, snap.PixelAt(80, 60))

	conf.tickOnce()
	assert.False(t, src.Closed())

	conf.tickOnce()
	assert.True(t, src.Closed())
	assert.Empty(t, canvasStatus(t, conf, 0).FileLayers)

	snap, err = conf.Snapshot(0)
	require.NoError(t, err)
	assertColorNear(t, bg, snap.PixelAt(80, 60))
}

func TestPlayFile_NoFreeLayer(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("1x1"))
	blue := video.ColorFromRGB(20, 40, 220)

	first := simulation.NewSimulatedFileSource("a", 64, 48, blue, 10)
	require.NoError(t, conf.PlayFile(0, first))
	assert.ErrorIs(t, conf.PlayFile(0, simulation.NewSimulatedFileSource("b", 64, 48, blue, 10)), ErrNoLayer)

	conf.Stop()
	assert.True(t, first.Closed())
}

func TestSuperCanvas_TilesSharedCanvases(t *testing.T) {
	bg := video.ColorFromRGB(10, 200, 10)
	red := video.ColorFromRGB(200, 40, 40)
	conf, _ := newTestConference(t, func(c *Config) {
		c.CanvasCount = 2
		c.SuperCanvas = true
		c.LayoutGroup = ""
		c.Layout = "1x1"
		c.BackgroundColor = bg
	})
	assert.Equal(t, []int{0, 1, SuperCanvasID}, conf.CanvasIDs())

	m, _ := addVideoMember(t, conf, 1)
	pushAll(t, m)
	conf.tickOnce()

	s := canvasStatus(t, conf, SuperCanvasID)
	assert.Equal(t, "super", s.Kind)
	assert.Equal(t, 4, s.Layers)

	snap, err := conf.Snapshot(SuperCanvasID)
	require.NoError(t, err)
	// Canvas 0 shows the member, canvas 1 only its background.
	assertColorNear(t, red, snap.PixelAt(80, 60))
	assertColorNear(t, bg, snap.PixelAt(240, 60))

	sess := simulation.NewSimulatedSession("VP8")
	watcher, err := conf.AddMember(MemberConfig{ID: 2, Session: sess, CanvasID: 1})
	require.NoError(t, err)
	require.NoError(t, conf.SetWatchingCanvas(2, SuperCanvasID))
	conf.tickOnce()
	log := deliveries(watcher, sess)
	require.Len(t, log, 1)
	assert.True(t, log[0].Keyframe)
}

func TestSuperCanvas_NotCreatedForSingleCanvas(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) { c.SuperCanvas = true })
	assert.Equal(t, []int{0}, conf.CanvasIDs())
	_, err := conf.CanvasStatus(SuperCanvasID)
	assert.ErrorIs(t, err, ErrCanvasNotFound)
}
