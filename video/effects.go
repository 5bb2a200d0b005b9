package video

import (
	"fmt"
)

// Effect modifies a frame in place.
type Effect func(f *VideoFrame)

// Chain is a sequence of effects applied to a copy of the input frame.
type Chain []Effect

// NewMuteChain returns the chain used for muted-video snapshots: the last
// frame in grayscale, darkened and softened.
func NewMuteChain() Chain {
	return Chain{Desaturate, Darken(64), BoxBlur(2)}
}

// Apply runs every effect on a private copy of frame.
func (c Chain) Apply(frame *VideoFrame) (*VideoFrame, error) {
	if frame == nil {
		return nil, fmt.Errorf("input frame cannot be nil")
	}
	out := copyFrame(frame)
	for _, fx := range c {
		fx(out)
	}
	return out, nil
}

// Desaturate sets both chroma planes to neutral.
func Desaturate(f *VideoFrame) {
	for i := range f.U {
		f.U[i] = 128
	}
	for i := range f.V {
		f.V[i] = 128
	}
}

// Darken returns an effect lowering luminance by amount, saturating at 0.
func Darken(amount int) Effect {
	return func(f *VideoFrame) {
		for i, y := range f.Y {
			f.Y[i] = clampByte(int(y) - amount)
		}
	}
}

// BoxBlur returns an effect averaging each luma sample with its
// neighbours within radius. Radius is clamped to 1..5.
func BoxBlur(radius int) Effect {
	radius = max(1, min(radius, 5))
	return func(f *VideoFrame) {
		w, h, stride := int(f.Width), int(f.Height), f.YStride
		src := make([]byte, len(f.Y))
		copy(src, f.Y)

		for y := 0; y < h; y++ {
			y0, y1 := max(0, y-radius), min(h-1, y+radius)
			for x := 0; x < w; x++ {
				x0, x1 := max(0, x-radius), min(w-1, x+radius)
				sum := 0
				for yy := y0; yy <= y1; yy++ {
					row := src[yy*stride:]
					for xx := x0; xx <= x1; xx++ {
						sum += int(row[xx])
					}
				}
				f.Y[y*stride+x] = byte(sum / ((y1 - y0 + 1) * (x1 - x0 + 1)))
			}
		}
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
