// Package interfaces defines the boundary capabilities the conference mixer
// consumes: participant media sessions, recorders and playback sources.
//
// The mixer never touches signalling, transport or file formats directly.
// Production code supplies implementations backed by real media stacks;
// the simulation package supplies in-memory ones for tests and demos.
//
// # MemberSession
//
// [MemberSession] is the per-participant control and delivery surface:
//
//	type loggingSession struct{ id uint32 }
//
//	func (s *loggingSession) RequestKeyFrame() error { return nil }
//	func (s *loggingSession) SetIncomingBitrate(kbps uint32) error {
//	    log.Printf("member %d: send at %d kbps", s.id, kbps)
//	    return nil
//	}
//	func (s *loggingSession) WriteEncodedFrame(codec string, data []byte, key bool) error {
//	    return nil
//	}
//	func (s *loggingSession) WriteRawFrame(f *video.VideoFrame) error { return nil }
//	func (s *loggingSession) Codec() string           { return "VP8" }
//	func (s *loggingSession) BitrateManageable() bool { return true }
//
// # Recorder and FileSource
//
// [Recorder] receives the composed raw canvas image every tick while
// recording is active. [FileSource] feeds a playback layer and signals the
// end of the file with io.EOF.
//
// # Thread Safety
//
// Sessions are written from the canvas muxing goroutine and from member
// writer goroutines concurrently. Implementations must be safe for
// concurrent use.
package interfaces
