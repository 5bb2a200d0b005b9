// Package limits provides centralized bounds for the conference mixer.
// These are enforced when configuration is validated rather than baked
// into fixed-size arrays, so every component agrees on the same caps.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxLayers is the largest number of layers a single layout may define.
	MaxLayers = 64

	// MaxCanvases is the largest number of shared canvases per conference,
	// not counting the super canvas or personal canvases.
	MaxCanvases = 16

	// MaxPersonalCanvases caps per-viewer canvases; each one multiplies the
	// per-tick compositing work.
	MaxPersonalCanvases = 32

	// MinCanvasDimension and MaxCanvasDimension bound canvas width and height.
	MinCanvasDimension = 16
	MaxCanvasDimension = 4096

	// MinFPS and MaxFPS bound the muxing frame rate.
	MinFPS = 1
	MaxFPS = 60
)

var (
	// ErrOutOfRange indicates a value outside its permitted range
	ErrOutOfRange = errors.New("value out of range")

	// ErrTooMany indicates a count exceeding its maximum
	ErrTooMany = errors.New("count exceeds limit")
)

// ValidateLayerCount validates the number of layers in a layout.
func ValidateLayerCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: layout needs at least 1 layer, got %d", ErrOutOfRange, n)
	}
	if n > MaxLayers {
		return fmt.Errorf("%w: %d layers exceeds limit %d", ErrTooMany, n, MaxLayers)
	}
	return nil
}

// ValidateCanvasCount validates the number of shared canvases.
func ValidateCanvasCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: need at least 1 canvas, got %d", ErrOutOfRange, n)
	}
	if n > MaxCanvases {
		return fmt.Errorf("%w: %d canvases exceeds limit %d", ErrTooMany, n, MaxCanvases)
	}
	return nil
}

// ValidatePersonalCanvasCount validates the personal canvas cap. Zero is
// allowed and disables personal canvases.
func ValidatePersonalCanvasCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: personal canvas count %d is negative", ErrOutOfRange, n)
	}
	if n > MaxPersonalCanvases {
		return fmt.Errorf("%w: %d personal canvases exceeds limit %d", ErrTooMany, n, MaxPersonalCanvases)
	}
	return nil
}

// ValidateCanvasSize validates canvas dimensions. Both must be even so the
// composed image subsamples cleanly.
func ValidateCanvasSize(width, height int) error {
	if width < MinCanvasDimension || width > MaxCanvasDimension {
		return fmt.Errorf("%w: canvas width %d not in [%d, %d]", ErrOutOfRange, width, MinCanvasDimension, MaxCanvasDimension)
	}
	if height < MinCanvasDimension || height > MaxCanvasDimension {
		return fmt.Errorf("%w: canvas height %d not in [%d, %d]", ErrOutOfRange, height, MinCanvasDimension, MaxCanvasDimension)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("%w: canvas size %dx%d must be even", ErrOutOfRange, width, height)
	}
	return nil
}

// ValidateFPS validates the muxing frame rate.
func ValidateFPS(fps int) error {
	if fps < MinFPS || fps > MaxFPS {
		return fmt.Errorf("%w: fps %d not in [%d, %d]", ErrOutOfRange, fps, MinFPS, MaxFPS)
	}
	return nil
}
