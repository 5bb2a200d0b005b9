package interfaces

import "github.com/opd-ai/toxmix/video"

// MemberSession is the media session of one conference participant. The
// mixer drives it for key frames, bitrate control and frame delivery;
// signalling and transport stay behind the implementation.
type MemberSession interface {
	// RequestKeyFrame asks the participant's encoder for a full picture
	RequestKeyFrame() error

	// SetIncomingBitrate asks the participant to send at most kbps
	SetIncomingBitrate(kbps uint32) error

	// WriteEncodedFrame delivers a composed canvas frame encoded with codec
	WriteEncodedFrame(codec string, data []byte, keyframe bool) error

	// WriteRawFrame delivers the composed canvas image for members that
	// encode on their own writer path
	WriteRawFrame(frame *video.VideoFrame) error

	// Codec returns the codec the participant receives, e.g. "VP8"
	Codec() string

	// BitrateManageable returns false when the transport does not accept
	// bitrate control messages
	BitrateManageable() bool
}

// Recorder receives the composed image of a canvas once per tick.
type Recorder interface {
	// VideoCapable returns true while the recorder has an open video track
	VideoCapable() bool

	// WriteVideo stores one composed frame
	WriteVideo(frame *video.VideoFrame) error

	// Close finalizes the recording
	Close() error
}

// FileSource supplies frames for a playback layer. ReadFrame returns
// io.EOF when the file is exhausted.
type FileSource interface {
	ReadFrame() (*video.VideoFrame, error)
	Name() string
	Close() error
}
