package conference

import (
	"github.com/opd-ai/toxmix/layout"
	"github.com/sirupsen/logrus"
)

type attachResult int

const (
	// attachFailed means no eligible layer this tick; the caller retries.
	attachFailed attachResult = iota
	// attachSuccess means the member was freshly bound.
	attachSuccess
	// attachAlready means the member was already bound correctly.
	attachAlready
)

func (r attachResult) String() string {
	switch r {
	case attachSuccess:
		return "success"
	case attachAlready:
		return "already"
	default:
		return "failed"
	}
}

// attachRequest carries what findLayerFor needs to know about the member
// and the floor for one decision.
type attachRequest struct {
	member     *Member
	avatarOnly bool
	// isHolder is set when the member holds the floor and floor layers
	// follow it on this canvas.
	isHolder bool
	// reserveFloor keeps floor layers free for a holder who is a candidate
	// of this canvas but not yet placed.
	reserveFloor bool
	floorHolder  uint32
}

// findLayerFor binds the member to the best eligible layer. Caller holds
// c.mu.
//
// Policy in priority order: reservation ids restrict layers to matching
// members; floor-only layers hold only the floor holder and are skipped
// when a file node claims them; file layers never take members; empty
// layers are preferred; when the canvas is full a member with live video
// may take over an avatar-only layer.
func (c *Canvas) findLayerFor(req attachRequest) (attachResult, *Layer) {
	m := req.member

	floor := -1
	if req.isHolder {
		if fi := c.floorLayerIndex(); fi >= 0 && c.layers[fi].fnode == nil && reservationAllows(c.layers[fi], m) {
			floor = fi
		}
	}

	if idx, ok := c.bindings[m.id]; ok {
		if idx < len(c.layers) && c.layers[idx].memberID == m.id {
			if floor < 0 || idx == floor {
				layer := c.layers[idx]
				if c.kind == kindShared && (int(m.canvasID.Load()) != c.id || int(m.layerID.Load()) != idx) {
					m.setBinding(c.id, idx, layer.screenW, layer.screenH)
				}
				return attachAlready, layer
			}
			// The holder moves onto the floor layer below.
		} else {
			delete(c.bindings, m.id)
		}
	}

	if floor >= 0 {
		layer := c.layers[floor]
		c.bindMember(layer, m, req.avatarOnly)
		return attachSuccess, layer
	}

	eligible := func(layer *Layer) bool {
		if layer.fnode != nil || layer.geometry.Role == layout.RoleFileOnly {
			return false
		}
		if layer.geometry.Role == layout.RoleFloorOnly && !req.isHolder {
			return false
		}
		if layer.geometry.Role == layout.RoleFloor && req.reserveFloor && !req.isHolder {
			return false
		}
		return reservationAllows(layer, m)
	}

	// A reserved layer matching the member's reservation wins over any
	// other empty layer.
	if rid := m.reservation(); rid != "" {
		for _, layer := range c.layers {
			if layer.geometry.ReservationID == rid && !layer.bound() && eligible(layer) {
				c.bindMember(layer, m, req.avatarOnly)
				return attachSuccess, layer
			}
		}
	}

	for _, layer := range c.layers {
		if !layer.bound() && eligible(layer) {
			c.bindMember(layer, m, req.avatarOnly)
			return attachSuccess, layer
		}
	}

	if req.avatarOnly {
		return attachFailed, nil
	}
	victim := c.evictionCandidate(req, eligible)
	if victim == nil {
		return attachFailed, nil
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.findLayerFor",
		"canvas_id": c.id,
		"layer":     victim.idx,
		"evicted":   victim.memberID,
		"member_id": m.id,
	}).Info("Live video member taking over avatar layer")

	c.bindMember(victim, m, false)
	return attachSuccess, victim
}

// evictionCandidate picks the avatar-only layer attached longest, ties
// broken by the lowest index. The floor holder's avatar is kept while it
// is the only avatar on the canvas unless the taker is a moderator.
func (c *Canvas) evictionCandidate(req attachRequest, eligible func(*Layer) bool) *Layer {
	var best *Layer
	avatars := 0
	holderAvatar := false
	for _, layer := range c.layers {
		if layer.memberID == 0 || !layer.avatarOnly {
			continue
		}
		avatars++
		if layer.memberID == req.floorHolder {
			holderAvatar = true
		}
		if !eligible(layer) {
			continue
		}
		if best == nil || layer.attachSeq < best.attachSeq ||
			(layer.attachSeq == best.attachSeq && layer.idx < best.idx) {
			best = layer
		}
	}

	if best != nil && best.memberID == req.floorHolder && avatars == 1 && holderAvatar && !req.member.moderator {
		return nil
	}
	return best
}

func reservationAllows(layer *Layer, m *Member) bool {
	rid := layer.geometry.ReservationID
	return rid == "" || rid == m.reservation()
}
