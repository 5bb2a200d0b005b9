package conference

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// FloorChangeEvent reports a change of video floor holder. A zero member id
// means no holder.
type FloorChangeEvent struct {
	ConferenceID string
	OldMemberID  uint32
	NewMemberID  uint32
}

// MemberStatusEvent reports a member attaching to or detaching from a layer.
// AudioPosition is the layer's audio placement hint for an external audio
// mixer, set on attach.
type MemberStatusEvent struct {
	ConferenceID  string
	MemberID      uint32
	CanvasID      int
	LayerID       int
	Attached      bool
	AudioPosition string
}

// MemberStatus is a snapshot of a member's video state.
type MemberStatus struct {
	ID               uint32
	Name             string
	CanvasID         int
	LayerID          int
	HomeCanvasID     int
	WatchingCanvasID int
	PersonalCanvasID int
	VideoMuted       bool
	FloorHolder      bool
	ManagedKbps      uint32
	// AudioPosition is the audio hint of the member's shared layer.
	AudioPosition string
}

// CanvasStatus is a snapshot of a canvas and its layer bindings.
type CanvasStatus struct {
	ID         int
	Kind       string
	Owner      uint32
	Width      int
	Height     int
	Layout     string
	Layers     int
	LayersUsed int
	// Bindings maps layer index to member id.
	Bindings   map[int]uint32
	FileLayers []int
	Recorders  int
}

// FloorChangeCallback receives floor changes.
type FloorChangeCallback func(FloorChangeEvent)

// MemberStatusCallback receives layer attach and detach events.
type MemberStatusCallback func(MemberStatusEvent)

// eventHub dispatches events to registered callbacks outside of any
// conference or canvas lock.
type eventHub struct {
	mu       sync.RWMutex
	onFloor  FloorChangeCallback
	onStatus MemberStatusCallback
}

func (h *eventHub) setFloorCallback(cb FloorChangeCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFloor = cb
}

func (h *eventHub) setStatusCallback(cb MemberStatusCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatus = cb
}

func (h *eventHub) floorChanged(ev FloorChangeEvent) {
	logrus.WithFields(logrus.Fields{
		"function":      "eventHub.floorChanged",
		"conference_id": ev.ConferenceID,
		"old_member_id": ev.OldMemberID,
		"new_member_id": ev.NewMemberID,
	}).Info("Video floor changed")

	h.mu.RLock()
	cb := h.onFloor
	h.mu.RUnlock()
	if cb != nil {
		cb(ev)
	}
}

func (h *eventHub) memberStatus(events []MemberStatusEvent) {
	h.mu.RLock()
	cb := h.onStatus
	h.mu.RUnlock()
	if cb == nil {
		return
	}
	for _, ev := range events {
		cb(ev)
	}
}
