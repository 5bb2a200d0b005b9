package conference

import (
	"image/color"
	"testing"

	"github.com/opd-ai/toxmix/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func explicitLayout(name string) func(*Config) {
	return func(c *Config) {
		c.LayoutGroup = ""
		c.Layout = name
	}
}

func TestFindLayer_Reservation(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("reserved"))

	m1, _ := addVideoMember(t, conf, 1)
	m2, err := conf.AddMember(MemberConfig{
		ID:            2,
		Session:       simulation.NewSimulatedSession("VP8"),
		Video:         true,
		ReservationID: "guest",
	})
	require.NoError(t, err)
	pushAll(t, m1, m2)
	conf.tickOnce()

	assert.Equal(t, 1, layerOf(conf, 0, 1), "unreserved member skips the reserved layer")
	assert.Equal(t, 0, layerOf(conf, 0, 2), "reservation holder gets the reserved layer")
	checkBindings(t, conf)

	require.NoError(t, conf.SetReservationID(2, ""))
	assert.Equal(t, -1, layerOf(conf, 0, 2))
	pushAll(t, m1, m2)
	conf.tickOnce()
	assert.Equal(t, -1, layerOf(conf, 0, 2), "reserved layer refuses members without the reservation")
	assert.Equal(t, 1, layerOf(conf, 0, 1))
	checkBindings(t, conf)
}

func TestFindLayer_FileOnlyLayerRefusesMembers(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("file"))

	m1, _ := addVideoMember(t, conf, 1)
	m2, _ := addVideoMember(t, conf, 2)
	pushAll(t, m1, m2)
	conf.tickOnce()

	assert.Equal(t, 1, layerOf(conf, 0, 1))
	assert.Equal(t, -1, layerOf(conf, 0, 2))
}

func TestFindLayer_FloorOnlyFollowsHolder(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("stage"))

	m1, _ := addVideoMember(t, conf, 1)
	m2, _ := addVideoMember(t, conf, 2)
	pushAll(t, m1, m2)
	conf.tickOnce()

	require.Equal(t, uint32(1), conf.VideoFloorHolder())
	assert.Equal(t, 0, layerOf(conf, 0, 1))
	assert.Equal(t, 1, layerOf(conf, 0, 2))

	require.NoError(t, conf.SetVideoFloorHolder(2, false))
	conf.tickOnce()
	assert.Equal(t, 0, layerOf(conf, 0, 2), "new holder takes the floor layer")
	assert.Equal(t, -1, layerOf(conf, 0, 1))

	conf.tickOnce()
	assert.Equal(t, 1, layerOf(conf, 0, 1), "previous holder finds the freed layer")
	checkBindings(t, conf)
}

func TestFindLayer_LiveVideoEvictsOldestAvatar(t *testing.T) {
	avatar := writeTestPNG(t, 32, 32, color.RGBA{R: 10, G: 10, B: 200, A: 255})
	conf, _ := newTestConference(t, func(c *Config) {
		explicitLayout("duo")(c)
		c.DefaultAvatar = avatar
	})

	for id := uint32(1); id <= 2; id++ {
		_, err := conf.AddMember(MemberConfig{ID: id, Session: simulation.NewSimulatedSession("VP8")})
		require.NoError(t, err)
	}
	conf.tickOnce()
	require.Equal(t, 0, layerOf(conf, 0, 1))
	require.Equal(t, 1, layerOf(conf, 0, 2))

	// An avatar-only member never evicts.
	_, err := conf.AddMember(MemberConfig{ID: 3, Session: simulation.NewSimulatedSession("VP8")})
	require.NoError(t, err)
	conf.tickOnce()
	assert.Equal(t, -1, layerOf(conf, 0, 3))

	m4, _ := addVideoMember(t, conf, 4)
	pushAll(t, m4)
	conf.tickOnce()

	assert.Equal(t, 0, layerOf(conf, 0, 4), "live member takes the avatar layer attached longest")
	assert.Equal(t, -1, layerOf(conf, 0, 1))
	assert.Equal(t, 1, layerOf(conf, 0, 2))
	checkBindings(t, conf)
}

func TestFindLayer_HolderAvatarProtected(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("duo"))

	m1, _ := addVideoMember(t, conf, 1)
	require.NoError(t, conf.SetVideoMute(1, true))
	m2, _ := addVideoMember(t, conf, 2)
	pushAll(t, m1, m2)
	conf.tickOnce()
	require.Equal(t, uint32(1), conf.VideoFloorHolder())
	require.Equal(t, 0, layerOf(conf, 0, 1))
	require.Equal(t, 1, layerOf(conf, 0, 2))

	m3, _ := addVideoMember(t, conf, 3)
	pushAll(t, m1, m2, m3)
	conf.tickOnce()
	assert.Equal(t, -1, layerOf(conf, 0, 3), "sole holder avatar is kept")
	assert.Equal(t, 0, layerOf(conf, 0, 1))

	m4, err := conf.AddMember(MemberConfig{
		ID:        4,
		Session:   simulation.NewSimulatedSession("VP8"),
		Video:     true,
		Moderator: true,
	})
	require.NoError(t, err)
	pushAll(t, m1, m2, m3, m4)
	conf.tickOnce()
	assert.Equal(t, 0, layerOf(conf, 0, 4), "moderator may take the holder's avatar layer")
	assert.Equal(t, -1, layerOf(conf, 0, 1))
	checkBindings(t, conf)
}

func TestFindLayer_SelfHealsStaleBinding(t *testing.T) {
	conf, _ := newTestConference(t, explicitLayout("2x2"))
	m, _ := addVideoMember(t, conf, 1)
	pushAll(t, m)
	conf.tickOnce()
	require.Equal(t, 0, layerOf(conf, 0, 1))

	// Corrupt the member side of the binding.
	m.layerID.Store(3)
	conf.tickOnce()
	checkBindings(t, conf)
	assert.Equal(t, 0, layerOf(conf, 0, 1))
}

// Binding exclusivity holds across joins, leaves, mutes and layout swaps.
func TestBindingExclusivity(t *testing.T) {
	conf, _ := newTestConference(t, func(c *Config) { c.LayoutGroup = "test" })

	var members []*Member
	for id := uint32(1); id <= 6; id++ {
		m, _ := addVideoMember(t, conf, id)
		members = append(members, m)
		pushAll(t, members...)
		conf.tickOnce()
		checkBindings(t, conf)
	}

	require.NoError(t, conf.SetVideoMute(3, true))
	require.NoError(t, conf.SetLayout(0, "duo"))
	for i := 0; i < 3; i++ {
		conf.tickOnce()
		checkBindings(t, conf)
	}

	require.NoError(t, conf.SetLayoutGroup(0, "grid"))
	for _, id := range []uint32{2, 5} {
		require.NoError(t, conf.RemoveMember(id))
		conf.tickOnce()
		checkBindings(t, conf)
	}
	assert.Equal(t, 4, canvasStatus(t, conf, 0).LayersUsed)
}
