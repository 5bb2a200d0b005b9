package conference

import (
	"fmt"
	"time"

	"github.com/opd-ai/toxmix/limits"
	"github.com/opd-ai/toxmix/video"
)

// BitrateConfig defines the adaptive incoming bitrate parameters.
type BitrateConfig struct {
	// Enabled turns on automatic bitrate management.
	Enabled bool

	// Quality scales the "Kush gauge" estimate: 1 is low motion, 4 is high.
	Quality float64

	// MaxKbps is the ceiling of any managed bitrate.
	MaxKbps uint32

	// InvisibleKbps is the rate for members not on screen; half of it is the
	// floor of any managed bitrate.
	InvisibleKbps uint32

	// DebounceWindow delays decreases; increases apply immediately.
	DebounceWindow time.Duration

	// SettleTicks is how many ticks must pass after a layer change before
	// the bitrate is re-evaluated.
	SettleTicks int
}

// DefaultBitrateConfig returns conservative defaults.
func DefaultBitrateConfig() BitrateConfig {
	return BitrateConfig{
		Enabled:        true,
		Quality:        1,
		MaxKbps:        2500,
		InvisibleKbps:  256,
		DebounceWindow: 5 * time.Second,
		SettleTicks:    10,
	}
}

// Config holds the conference video settings.
type Config struct {
	// Canvas geometry and clock
	Width  int
	Height int
	FPS    int

	// CanvasCount is the number of shared canvases.
	CanvasCount int

	// Layout is the explicit initial layout name. LayoutGroup, when set,
	// auto-selects a layout from the group by participant count.
	Layout      string
	LayoutGroup string

	BackgroundColor video.Color
	LetterboxColor  video.Color
	BorderColor     video.Color

	// KeyframeInterval forces a periodic key frame. Zero disables it.
	KeyframeInterval time.Duration

	// LayerTimeoutTicks is how long a member may wait for a layer before it
	// is moved to the next canvas.
	LayerTimeoutTicks int

	// AvatarTimeout is how long after the last frame a member is shown with
	// its avatar instead of live video.
	AvatarTimeout time.Duration

	// DefaultAvatar is a PNG shown for members without their own avatar.
	DefaultAvatar string

	// Queue sizes: decoded frames per member, encoded frames per member and
	// composed frames per canvas for the super canvas.
	IncomingQueueSize int
	OutboundQueueSize int
	CanvasQueueSize   int

	// PatchWorkers bounds concurrent layer scaling per tick.
	PatchWorkers int

	// EncoderBitRate is the initial bit rate of canvas encoders in bps.
	EncoderBitRate uint32

	// EncoderFactory creates canvas encoders; nil uses the passthrough encoder.
	EncoderFactory video.EncoderFactory

	// PersonalCanvas gives every video member its own canvas.
	PersonalCanvas       bool
	MaxPersonalCanvases  int
	PersonalCPULoadLimit float64

	// SuperCanvas composes all shared canvases into one when there are
	// several.
	SuperCanvas bool

	Bitrate BitrateConfig
}

// DefaultConfig returns a 720p single-canvas configuration at 15 fps using
// the built-in "grid" layout group.
func DefaultConfig() *Config {
	return &Config{
		Width:                1280,
		Height:               720,
		FPS:                  15,
		CanvasCount:          1,
		LayoutGroup:          "grid",
		BackgroundColor:      video.Black,
		LetterboxColor:       video.Black,
		BorderColor:          video.ColorFromRGB(0x33, 0x33, 0x33),
		KeyframeInterval:     10 * time.Second,
		LayerTimeoutTicks:    150,
		AvatarTimeout:        2 * time.Second,
		IncomingQueueSize:    8,
		OutboundQueueSize:    32,
		CanvasQueueSize:      2,
		PatchWorkers:         4,
		EncoderBitRate:       1_000_000,
		EncoderFactory:       video.PassthroughEncoderFactory,
		MaxPersonalCanvases:  8,
		PersonalCPULoadLimit: 0,
		Bitrate:              DefaultBitrateConfig(),
	}
}

// Validate checks the configuration against the mixer limits.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := limits.ValidateCanvasSize(c.Width, c.Height); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := limits.ValidateFPS(c.FPS); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := limits.ValidateCanvasCount(c.CanvasCount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := limits.ValidatePersonalCanvasCount(c.MaxPersonalCanvases); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Layout == "" && c.LayoutGroup == "" {
		return fmt.Errorf("%w: a layout or layout group is required", ErrInvalidConfig)
	}
	if c.LayerTimeoutTicks < 1 {
		return fmt.Errorf("%w: layer timeout %d ticks", ErrInvalidConfig, c.LayerTimeoutTicks)
	}
	if c.IncomingQueueSize < 1 || c.OutboundQueueSize < 1 || c.CanvasQueueSize < 1 {
		return fmt.Errorf("%w: queue sizes must be positive", ErrInvalidConfig)
	}
	if c.PatchWorkers < 1 {
		return fmt.Errorf("%w: patch workers %d", ErrInvalidConfig, c.PatchWorkers)
	}
	if c.PersonalCPULoadLimit < 0 {
		return fmt.Errorf("%w: negative cpu load limit", ErrInvalidConfig)
	}
	if c.Bitrate.Enabled {
		if c.Bitrate.Quality <= 0 {
			return fmt.Errorf("%w: bitrate quality %.2f", ErrInvalidConfig, c.Bitrate.Quality)
		}
		if c.Bitrate.MaxKbps == 0 || c.Bitrate.InvisibleKbps/2 > c.Bitrate.MaxKbps {
			return fmt.Errorf("%w: bitrate bounds [%d, %d]", ErrInvalidConfig, c.Bitrate.InvisibleKbps/2, c.Bitrate.MaxKbps)
		}
	}
	return nil
}

// tickInterval returns the frame period for fps.
func tickInterval(fps int) time.Duration {
	if fps < 1 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
