package simulation

import (
	"errors"
	"sync"

	"github.com/opd-ai/toxmix/video"
)

// ErrRecorderFull is returned once a SimulatedRecorder reaches its limit
var ErrRecorderFull = errors.New("simulated recorder full")

// SimulatedRecorder implements interfaces.Recorder by counting frames.
type SimulatedRecorder struct {
	limit  int
	frames int
	last   *video.VideoFrame
	closed bool
	mu     sync.Mutex
}

// NewSimulatedRecorder creates a recorder that accepts up to limit frames.
// A limit of 0 means unlimited.
func NewSimulatedRecorder(limit int) *SimulatedRecorder {
	return &SimulatedRecorder{limit: limit}
}

// VideoCapable implements Recorder.VideoCapable
func (r *SimulatedRecorder) VideoCapable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// WriteVideo implements Recorder.WriteVideo
func (r *SimulatedRecorder) WriteVideo(frame *video.VideoFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit > 0 && r.frames >= r.limit {
		return ErrRecorderFull
	}
	r.frames++
	r.last = frame.Clone()
	return nil
}

// Close implements Recorder.Close
func (r *SimulatedRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns the number of frames written.
func (r *SimulatedRecorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Last returns a copy of the last frame written.
func (r *SimulatedRecorder) Last() *video.VideoFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Clone()
}

// Closed reports whether Close was called.
func (r *SimulatedRecorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
