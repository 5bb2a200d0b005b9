package conference

import "time"

// TimeProvider is the conference clock. It drives avatar and layer
// timeouts, bitrate debouncing and keyframe intervals; tick durations for
// statistics always use the wall clock. Implementations must be safe for
// concurrent use.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider reads the wall clock.
type DefaultTimeProvider struct{}

func (DefaultTimeProvider) Now() time.Time { return time.Now() }
