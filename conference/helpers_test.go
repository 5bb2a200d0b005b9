package conference

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/toxmix/layout"
	"github.com/opd-ai/toxmix/simulation"
	"github.com/opd-ai/toxmix/video"
	"github.com/stretchr/testify/require"
)

// MockTimeProvider is a controllable clock for tests.
type MockTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: start}
}

func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// testConfig returns a small canvas configuration for fast tests.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.KeyframeInterval = 0
	cfg.PatchWorkers = 2
	return cfg
}

// newTestConference builds a conference that is ticked by hand with
// tickOnce instead of running its muxers.
func newTestConference(t *testing.T, mutate func(*Config)) (*Conference, *MockTimeProvider) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	conf, err := New(cfg, testCatalog())
	require.NoError(t, err)

	tp := NewMockTimeProvider(time.Unix(1_700_000_000, 0))
	conf.SetTimeProvider(tp)
	t.Cleanup(conf.Stop)
	return conf, tp
}

// tickOnce runs one tick on every canvas: shared, personal, then super.
func (c *Conference) tickOnce() {
	for _, cv := range c.allCanvases() {
		cv.tick()
	}
}

func addVideoMember(t *testing.T, conf *Conference, id uint32) (*Member, *simulation.SimulatedSession) {
	t.Helper()
	sess := simulation.NewSimulatedSession("VP8")
	m, err := conf.AddMember(MemberConfig{
		ID:            id,
		Name:          "member",
		Session:       sess,
		Video:         true,
		CaptureWidth:  640,
		CaptureHeight: 480,
	})
	require.NoError(t, err)
	return m, sess
}

func solidFrame(c video.Color) *video.VideoFrame {
	return video.NewSolidFrame(64, 48, c)
}

// pushAll pushes one frame for every member.
func pushAll(t *testing.T, members ...*Member) {
	t.Helper()
	for _, m := range members {
		require.NoError(t, m.PushFrame(solidFrame(video.ColorFromRGB(200, 40, 40))))
	}
}

// canvasStatus is a test shorthand for CanvasStatus.
func canvasStatus(t *testing.T, conf *Conference, id int) CanvasStatus {
	t.Helper()
	s, err := conf.CanvasStatus(id)
	require.NoError(t, err)
	return s
}

// checkBindings verifies that layer bindings and member fields agree.
func checkBindings(t *testing.T, conf *Conference) {
	t.Helper()
	for _, cv := range conf.canvases {
		cv.mu.Lock()
		for _, l := range cv.layers {
			if l.memberID == 0 {
				continue
			}
			m := conf.roster.Load().get(l.memberID)
			require.NotNil(t, m, "layer %d bound to unknown member %d", l.idx, l.memberID)
			require.Equal(t, int32(cv.id), m.canvasID.Load())
			require.Equal(t, int32(l.idx), m.layerID.Load())
		}
		seen := map[uint32]int{}
		for _, l := range cv.layers {
			if l.memberID != 0 {
				seen[l.memberID]++
				require.Equal(t, 1, seen[l.memberID], "member %d bound twice", l.memberID)
			}
		}
		cv.mu.Unlock()
	}
	for _, m := range conf.roster.Load().order {
		cid, lid := int(m.canvasID.Load()), int(m.layerID.Load())
		if cid < 0 {
			require.Equal(t, -1, lid)
			continue
		}
		cv := conf.canvases[cid]
		cv.mu.Lock()
		require.Less(t, lid, len(cv.layers))
		require.Equal(t, m.id, cv.layers[lid].memberID)
		cv.mu.Unlock()
	}
}

// testCatalog extends the built-in catalog with small layouts exercising
// layer roles, and a "test" group with capacities 1, 2, 4 and 9.
func testCatalog() *layout.Catalog {
	def := layout.DefaultCatalog()
	var layouts []*layout.Layout
	for _, name := range def.Names() {
		layouts = append(layouts, def.Layout(name))
	}
	var groups []*layout.Group
	for _, name := range def.GroupNames() {
		groups = append(groups, def.Group(name))
	}

	duo := &layout.Layout{Name: "duo", Geometries: []layout.Geometry{
		{X: 0, Y: 90, Scale: 180, AudioPosition: "left"},
		{X: 180, Y: 90, Scale: 180, AudioPosition: "right"},
	}}
	reserved := &layout.Layout{Name: "reserved", Geometries: []layout.Geometry{
		{X: 0, Y: 0, Scale: 180, Role: layout.RoleReserved, ReservationID: "guest"},
		{X: 180, Y: 0, Scale: 180},
	}}
	file := &layout.Layout{Name: "file", Geometries: []layout.Geometry{
		{X: 0, Y: 0, Scale: 180, Role: layout.RoleFileOnly},
		{X: 180, Y: 0, Scale: 180},
	}}
	stage := &layout.Layout{Name: "stage", Geometries: []layout.Geometry{
		{X: 0, Y: 0, Scale: 180, Role: layout.RoleFloorOnly},
		{X: 180, Y: 0, Scale: 180},
	}}
	layouts = append(layouts, duo, reserved, file, stage)
	groups = append(groups, &layout.Group{Name: "test", Layouts: []*layout.Layout{
		def.Layout("1x1"), duo, def.Layout("2x2"), def.Layout("3x3"),
	}})
	return layout.NewCatalog(layouts, groups)
}

// writeTestPNG writes a solid w x h PNG and returns its path.
func writeTestPNG(t *testing.T, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "asset.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

// layerOf returns the layer index the member holds on canvas id, -1 when
// unbound.
func layerOf(conf *Conference, canvasID int, memberID uint32) int {
	cv, err := conf.canvas(canvasID)
	if err != nil {
		return -1
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	if idx, ok := cv.bindings[memberID]; ok {
		return idx
	}
	return -1
}
