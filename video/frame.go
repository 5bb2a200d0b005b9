package video

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// VideoFrame represents a video frame in YUV420 format.
//
// Frames are the unit exchanged between member decoders, the canvas
// compositor and the encoders. Width and height are always even so the
// chroma planes subsample cleanly.
type VideoFrame struct {
	Width   uint16
	Height  uint16
	Y       []byte // Luminance plane
	U       []byte // Chrominance U plane
	V       []byte // Chrominance V plane
	YStride int    // Stride for Y plane
	UStride int    // Stride for U plane
	VStride int    // Stride for V plane

	// Timestamp is the 90kHz presentation timestamp assigned by the producer.
	Timestamp uint32
}

// Color is a YUV triple used for fills, borders and letterboxing.
type Color struct {
	Y, U, V uint8
}

// Black is the default canvas background.
var Black = Color{Y: 0, U: 128, V: 128}

// ColorFromRGB converts an RGB triple to full-range (JFIF) YUV.
func ColorFromRGB(r, g, b uint8) Color {
	y, cb, cr := color.RGBToYCbCr(r, g, b)
	return Color{Y: y, U: cb, V: cr}
}

// ParseColor parses a "#RRGGBB" string into a Color.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: expected #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return ColorFromRGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// NewVideoFrame allocates a frame of the given size. Odd dimensions are
// rounded down to the nearest even value. Returns nil for an empty size,
// mirroring an allocation failure.
func NewVideoFrame(width, height uint16) *VideoFrame {
	width &^= 1
	height &^= 1
	if width == 0 || height == 0 {
		return nil
	}

	uvWidth := int(width) / 2
	uvHeight := int(height) / 2

	return &VideoFrame{
		Width:   width,
		Height:  height,
		YStride: int(width),
		UStride: uvWidth,
		VStride: uvWidth,
		Y:       make([]byte, int(width)*int(height)),
		U:       make([]byte, uvWidth*uvHeight),
		V:       make([]byte, uvWidth*uvHeight),
	}
}

// NewSolidFrame allocates a frame filled with a single colour.
func NewSolidFrame(width, height uint16, c Color) *VideoFrame {
	frame := NewVideoFrame(width, height)
	if frame == nil {
		return nil
	}
	FillRect(frame, 0, 0, int(frame.Width), int(frame.Height), c)
	return frame
}

// Clone returns a deep copy of the frame.
func (f *VideoFrame) Clone() *VideoFrame {
	if f == nil {
		return nil
	}
	return copyFrame(f)
}

// Validate checks that the planes are large enough for the declared size.
func (f *VideoFrame) Validate() error {
	if f == nil {
		return fmt.Errorf("video frame cannot be nil")
	}
	if f.Width == 0 || f.Height == 0 {
		return fmt.Errorf("invalid frame dimensions: %dx%d", f.Width, f.Height)
	}
	if f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("frame dimensions must be even for YUV420: %dx%d", f.Width, f.Height)
	}

	uvHeight := int(f.Height) / 2
	if len(f.Y) < int(f.Height)*f.YStride {
		return fmt.Errorf("Y plane too small: got %d, expected %d", len(f.Y), int(f.Height)*f.YStride)
	}
	if len(f.U) < uvHeight*f.UStride {
		return fmt.Errorf("U plane too small: got %d, expected %d", len(f.U), uvHeight*f.UStride)
	}
	if len(f.V) < uvHeight*f.VStride {
		return fmt.Errorf("V plane too small: got %d, expected %d", len(f.V), uvHeight*f.VStride)
	}
	return nil
}

// Aspect returns width divided by height.
func (f *VideoFrame) Aspect() float64 {
	if f == nil || f.Height == 0 {
		return 0
	}
	return float64(f.Width) / float64(f.Height)
}

// PixelAt returns the YUV value at (x, y). Out-of-range coordinates
// return the zero Color.
func (f *VideoFrame) PixelAt(x, y int) Color {
	if f == nil || x < 0 || y < 0 || x >= int(f.Width) || y >= int(f.Height) {
		return Color{}
	}
	return Color{
		Y: f.Y[y*f.YStride+x],
		U: f.U[(y/2)*f.UStride+x/2],
		V: f.V[(y/2)*f.VStride+x/2],
	}
}

// copyFrame creates a deep copy of a video frame.
func copyFrame(frame *VideoFrame) *VideoFrame {
	return &VideoFrame{
		Width:     frame.Width,
		Height:    frame.Height,
		YStride:   frame.YStride,
		UStride:   frame.UStride,
		VStride:   frame.VStride,
		Y:         append([]byte(nil), frame.Y...),
		U:         append([]byte(nil), frame.U...),
		V:         append([]byte(nil), frame.V...),
		Timestamp: frame.Timestamp,
	}
}
