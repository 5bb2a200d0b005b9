// Package limits provides centralized bounds and validation functions for
// the conference mixer. Components that size collections (layers per
// layout, canvases per conference, personal canvases) consult these limits
// at configuration time instead of relying on compile-time array sizes.
//
// # Limits
//
//   - MaxLayers (64): layers per layout. Layouts exceeding it are rejected by
//     the layout loader.
//
//   - MaxCanvases (16): shared canvases per conference.
//
//   - MaxPersonalCanvases (32): per-viewer canvases. Each personal canvas is
//     composited every tick, so the cost grows linearly with this value.
//
//   - Canvas dimensions within [MinCanvasDimension, MaxCanvasDimension] and even.
//
//   - Frame rate within [MinFPS, MaxFPS].
//
// # Validation Functions
//
// Each validation function returns nil or an error wrapping ErrOutOfRange or
// ErrTooMany:
//
//	if err := limits.ValidateCanvasCount(cfg.CanvasCount); err != nil {
//	    return fmt.Errorf("invalid config: %w", err)
//	}
//
// Use errors.Is to classify failures:
//
//	if errors.Is(err, limits.ErrTooMany) {
//	    // scale down the request
//	}
package limits
