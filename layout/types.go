package layout

import (
	"fmt"
	"strings"
)

// ScaleMax is the size of the normalized coordinate space layer geometry is
// expressed in. A layer with X=0 and Scale=ScaleMax spans the full canvas width.
const ScaleMax = 360

// Role describes which occupants a layer accepts.
type Role int

const (
	// RoleNormal layers accept any member with video.
	RoleNormal Role = iota
	// RoleFloor layers follow the floor holder but accept other members when
	// the floor holder is already placed.
	RoleFloor
	// RoleFloorOnly layers hold the floor holder and nobody else.
	RoleFloorOnly
	// RoleFileOnly layers are reserved for file playback.
	RoleFileOnly
	// RoleReserved layers hold only members whose reservation id matches.
	RoleReserved
)

var roleNames = map[Role]string{
	RoleNormal:    "normal",
	RoleFloor:     "floor",
	RoleFloorOnly: "floor_only",
	RoleFileOnly:  "file_only",
	RoleReserved:  "reserved",
}

// String returns the configuration name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole converts a configuration string to a Role. The empty string is
// RoleNormal.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleNormal, nil
	}
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return RoleNormal, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// IsFloor reports whether the layer is designated for the floor holder.
func (r Role) IsFloor() bool {
	return r == RoleFloor || r == RoleFloorOnly
}

// Geometry is the normalized placement of a single layer.
type Geometry struct {
	X      int
	Y      int
	Scale  int
	HScale int // 0 means equal to Scale
	Border int // border width in pixels

	// Zoom crops the source to the layer aspect instead of letterboxing.
	Zoom bool
	// Overlap marks layers that intersect another layer; they are patched
	// after the parallel batch.
	Overlap bool

	Role          Role
	ReservationID string
	AudioPosition string
}

// Height returns the effective vertical scale.
func (g Geometry) Height() int {
	if g.HScale == 0 {
		return g.Scale
	}
	return g.HScale
}

// Validate checks the geometry fits the normalized space.
func (g Geometry) Validate() error {
	if g.Scale <= 0 || g.Scale > ScaleMax {
		return fmt.Errorf("%w: scale %d not in (0, %d]", ErrInvalidGeometry, g.Scale, ScaleMax)
	}
	if g.HScale < 0 || g.HScale > ScaleMax {
		return fmt.Errorf("%w: hscale %d not in [0, %d]", ErrInvalidGeometry, g.HScale, ScaleMax)
	}
	if g.X < 0 || g.X+g.Scale > ScaleMax {
		return fmt.Errorf("%w: x %d with scale %d exceeds %d", ErrInvalidGeometry, g.X, g.Scale, ScaleMax)
	}
	if g.Y < 0 || g.Y+g.Height() > ScaleMax {
		return fmt.Errorf("%w: y %d with hscale %d exceeds %d", ErrInvalidGeometry, g.Y, g.Height(), ScaleMax)
	}
	if g.Border < 0 {
		return fmt.Errorf("%w: negative border %d", ErrInvalidGeometry, g.Border)
	}
	if g.Role == RoleReserved && g.ReservationID == "" {
		return fmt.Errorf("%w: reserved layer without reservation_id", ErrInvalidGeometry)
	}
	return nil
}

// Layout is a named arrangement of layer geometries. Layouts are immutable
// once loaded and shared by every canvas using them.
type Layout struct {
	Name            string
	BackgroundImage string
	Geometries      []Geometry
}

// Layers returns the layer capacity of the layout.
func (l *Layout) Layers() int {
	if l == nil {
		return 0
	}
	return len(l.Geometries)
}

// FloorIndex returns the index of the first floor-designated layer, or -1.
func (l *Layout) FloorIndex() int {
	if l == nil {
		return -1
	}
	for i, g := range l.Geometries {
		if g.Role.IsFloor() {
			return i
		}
	}
	return -1
}

// Group is a capacity-ordered list of alternative layouts.
type Group struct {
	Name    string
	Layouts []*Layout
}
