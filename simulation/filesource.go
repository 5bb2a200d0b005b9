package simulation

import (
	"io"
	"sync"

	"github.com/opd-ai/toxmix/video"
)

// SimulatedFileSource implements interfaces.FileSource with a fixed number
// of solid-colour frames.
type SimulatedFileSource struct {
	name   string
	width  uint16
	height uint16
	color  video.Color
	remain int
	closed bool
	mu     sync.Mutex
}

// NewSimulatedFileSource creates a source that yields frames solid frames
// before io.EOF.
func NewSimulatedFileSource(name string, width, height uint16, c video.Color, frames int) *SimulatedFileSource {
	return &SimulatedFileSource{
		name:   name,
		width:  width,
		height: height,
		color:  c,
		remain: frames,
	}
}

// ReadFrame implements FileSource.ReadFrame
func (f *SimulatedFileSource) ReadFrame() (*video.VideoFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, io.ErrClosedPipe
	}
	if f.remain <= 0 {
		return nil, io.EOF
	}
	f.remain--
	return video.NewSolidFrame(f.width, f.height, f.color), nil
}

// Name implements FileSource.Name
func (f *SimulatedFileSource) Name() string {
	return f.name
}

// Close implements FileSource.Close
func (f *SimulatedFileSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *SimulatedFileSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
