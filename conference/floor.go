package conference

import (
	"github.com/sirupsen/logrus"
)

// NoFloor is the floor holder id when nobody holds the video floor.
const NoFloor uint32 = 0

// floorState is guarded by the conference mutex. The holder is mirrored in
// Conference.floorHolder for lock-free reads by the muxers.
type floorState struct {
	holder uint32
	last   uint32
	locked bool
}

// floorChange is the deferred side effect of a holder change.
type floorChange struct {
	event  FloorChangeEvent
	holder *Member
}

// setFloorLocked makes m the floor holder; nil clears the floor. Caller
// holds c.mu. Floor layers on canvases where they follow the holder are
// re-homed on the next tick.
func (c *Conference) setFloorLocked(m *Member) *floorChange {
	var id uint32
	if m != nil {
		id = m.id
	}
	old := c.floor.holder
	if old == id {
		return nil
	}

	if old != NoFloor {
		c.floor.last = old
	}
	c.floor.holder = id
	c.floorHolder.Store(id)
	if m != nil && m.videoBridge {
		c.floor.locked = true
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Conference.setFloorLocked",
		"conference_id": c.id,
		"old_member_id": old,
		"new_member_id": id,
		"locked":        c.floor.locked,
	}).Debug("Floor holder updated")

	return &floorChange{
		event: FloorChangeEvent{
			ConferenceID: c.id,
			OldMemberID:  old,
			NewMemberID:  id,
		},
		holder: m,
	}
}

// applyFloorChange performs the side effects of a holder change outside
// the conference mutex.
func (c *Conference) applyFloorChange(fc *floorChange) {
	if fc == nil {
		return
	}
	if fc.holder != nil && !fc.holder.gone.Load() {
		fc.holder.requestKeyFrame()
	}
	for _, cv := range c.allCanvases() {
		if cv.kind != kindSuper {
			cv.requestKeyframe()
		}
	}
	c.events.floorChanged(fc.event)
}

// SetVideoFloorHolder gives the video floor to the member. A locked floor
// is only taken with force, and stays locked afterwards.
func (c *Conference) SetVideoFloorHolder(id uint32, force bool) error {
	c.mu.Lock()
	if c.floor.locked && !force && c.floor.holder != id {
		c.mu.Unlock()
		return ErrFloorLocked
	}
	m := c.roster.Load().get(id)
	if m == nil {
		c.mu.Unlock()
		return ErrMemberNotFound
	}
	if !m.videoCapable {
		c.mu.Unlock()
		return ErrNoVideo
	}
	fc := c.setFloorLocked(m)
	c.mu.Unlock()

	c.applyFloorChange(fc)
	return nil
}

// ClearVideoFloorHolder releases the floor. The floor stays empty until a
// holder is set or membership changes.
func (c *Conference) ClearVideoFloorHolder() {
	c.mu.Lock()
	fc := c.setFloorLocked(nil)
	c.floor.last = NoFloor
	c.floor.locked = false
	c.mu.Unlock()

	c.applyFloorChange(fc)
}

// VideoFloorHolder returns the current holder, NoFloor when none.
func (c *Conference) VideoFloorHolder() uint32 {
	return c.floorHolder.Load()
}

// LockFloor prevents floor changes that are not forced.
func (c *Conference) LockFloor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floor.locked = true
}

// UnlockFloor allows floor changes again.
func (c *Conference) UnlockFloor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floor.locked = false
}

// FloorLocked reports whether the floor is locked.
func (c *Conference) FloorLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.floor.locked
}

// promoteOnJoinLocked gives an empty floor to a joining video member.
// Caller holds c.mu.
func (c *Conference) promoteOnJoinLocked(m *Member) *floorChange {
	if c.floor.holder != NoFloor || !m.videoCapable {
		return nil
	}
	return c.setFloorLocked(m)
}

// reassignOnLeaveLocked picks a new holder when the holder leaves: the
// previous holder if still present, else the first video member in join
// order. Caller holds c.mu and has already removed id from the roster.
func (c *Conference) reassignOnLeaveLocked(id uint32) *floorChange {
	if c.floor.last == id {
		c.floor.last = NoFloor
	}
	if c.floor.holder != id {
		return nil
	}

	r := c.roster.Load()
	next := r.get(c.floor.last)
	if next != nil && !next.videoCapable {
		next = nil
	}
	if next == nil {
		for _, m := range r.order {
			if m.videoCapable {
				next = m
				break
			}
		}
	}

	c.floor.locked = false
	fc := c.setFloorLocked(next)
	if c.floor.last == id || c.floor.last == c.floor.holder {
		c.floor.last = NoFloor
	}
	return fc
}
