package video

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrMoreData is returned by an Encoder that has buffered the frame but
// has no output yet. Callers retry on the next tick.
var ErrMoreData = errors.New("encoder needs more data")

// ErrUnsupportedCodec is returned by an EncoderFactory for unknown codecs.
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Encoder is the codec capability the mixer drives. Implementations are
// opaque; the mixer only relies on these calls.
type Encoder interface {
	// Encode converts a YUV420 frame to encoded bytes. When keyframe is
	// set the encoder must emit a full picture.
	Encode(frame *VideoFrame, keyframe bool) ([]byte, error)
	// SetBitRate updates the target encoding bit rate in bits per second
	SetBitRate(bitRate uint32) error
	// Codec returns the codec name, e.g. "VP8"
	Codec() string
	// Close releases encoder resources
	Close() error
}

// EncoderFactory creates an Encoder for a codec at a fixed output size.
type EncoderFactory func(codec string, width, height uint16, bitRate uint32) (Encoder, error)

// passthroughHeaderSize is [flags:1][width:2][height:2][timestamp:4].
const passthroughHeaderSize = 9

const passthroughKeyframeFlag = 0x01

// PassthroughEncoder packs raw YUV420 planes behind a small header.
//
// It stands in for a real codec in tests and demos while preserving the
// Encoder contract, including frame-size checks and key-frame marking.
type PassthroughEncoder struct {
	codec   string
	bitRate uint32
	width   uint16
	height  uint16
}

// NewPassthroughEncoder creates a passthrough encoder for the given size.
func NewPassthroughEncoder(codec string, width, height uint16, bitRate uint32) *PassthroughEncoder {
	logrus.WithFields(logrus.Fields{
		"function": "NewPassthroughEncoder",
		"codec":    codec,
		"width":    width,
		"height":   height,
		"bit_rate": bitRate,
	}).Info("Creating passthrough encoder")

	return &PassthroughEncoder{
		codec:   codec,
		bitRate: bitRate,
		width:   width,
		height:  height,
	}
}

// PassthroughEncoderFactory is an EncoderFactory that accepts any codec name.
func PassthroughEncoderFactory(codec string, width, height uint16, bitRate uint32) (Encoder, error) {
	if codec == "" {
		return nil, fmt.Errorf("%w: empty codec name", ErrUnsupportedCodec)
	}
	return NewPassthroughEncoder(codec, width, height, bitRate), nil
}

// Encode packs the frame. Every output is self-contained, so the key-frame
// flag only marks the header.
func (e *PassthroughEncoder) Encode(frame *VideoFrame, keyframe bool) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("video frame cannot be nil")
	}

	if frame.Width != e.width || frame.Height != e.height {
		logrus.WithFields(logrus.Fields{
			"function":        "PassthroughEncoder.Encode",
			"expected_width":  e.width,
			"expected_height": e.height,
			"actual_width":    frame.Width,
			"actual_height":   frame.Height,
		}).Error("Frame dimension validation failed")
		return nil, fmt.Errorf("frame size mismatch: expected %dx%d, got %dx%d",
			e.width, e.height, frame.Width, frame.Height)
	}

	ySize := int(frame.Width) * int(frame.Height)
	uvSize := ySize / 4
	data := make([]byte, passthroughHeaderSize+ySize+2*uvSize)

	if keyframe {
		data[0] = passthroughKeyframeFlag
	}
	binary.LittleEndian.PutUint16(data[1:3], frame.Width)
	binary.LittleEndian.PutUint16(data[3:5], frame.Height)
	binary.LittleEndian.PutUint32(data[5:9], frame.Timestamp)

	offset := passthroughHeaderSize
	offset += packPlane(data[offset:], frame.Y, int(frame.Width), int(frame.Height), frame.YStride)
	offset += packPlane(data[offset:], frame.U, int(frame.Width)/2, int(frame.Height)/2, frame.UStride)
	packPlane(data[offset:], frame.V, int(frame.Width)/2, int(frame.Height)/2, frame.VStride)

	return data, nil
}

// SetBitRate updates the target bit rate.
func (e *PassthroughEncoder) SetBitRate(bitRate uint32) error {
	logrus.WithFields(logrus.Fields{
		"function":     "PassthroughEncoder.SetBitRate",
		"codec":        e.codec,
		"old_bit_rate": e.bitRate,
		"new_bit_rate": bitRate,
	}).Debug("Updating encoder bit rate")

	e.bitRate = bitRate
	return nil
}

// BitRate returns the current target bit rate.
func (e *PassthroughEncoder) BitRate() uint32 {
	return e.bitRate
}

// Codec returns the codec name this encoder was created for.
func (e *PassthroughEncoder) Codec() string {
	return e.codec
}

// Close releases encoder resources.
func (e *PassthroughEncoder) Close() error {
	logrus.WithFields(logrus.Fields{
		"function": "PassthroughEncoder.Close",
		"codec":    e.codec,
	}).Debug("Closing passthrough encoder")
	return nil
}

// DecodePassthrough unpacks data produced by PassthroughEncoder.
func DecodePassthrough(data []byte) (*VideoFrame, bool, error) {
	if len(data) < passthroughHeaderSize {
		return nil, false, fmt.Errorf("data too short: %d bytes", len(data))
	}

	keyframe := data[0]&passthroughKeyframeFlag != 0
	width := binary.LittleEndian.Uint16(data[1:3])
	height := binary.LittleEndian.Uint16(data[3:5])

	frame := NewVideoFrame(width, height)
	if frame == nil || frame.Width != width || frame.Height != height {
		return nil, false, fmt.Errorf("invalid frame dimensions: %dx%d", width, height)
	}
	frame.Timestamp = binary.LittleEndian.Uint32(data[5:9])

	expected := passthroughHeaderSize + len(frame.Y) + len(frame.U) + len(frame.V)
	if len(data) < expected {
		return nil, false, fmt.Errorf("data too short for %dx%d frame: %d < %d",
			width, height, len(data), expected)
	}

	offset := passthroughHeaderSize
	offset += copy(frame.Y, data[offset:])
	offset += copy(frame.U, data[offset:])
	copy(frame.V, data[offset:])

	return frame, keyframe, nil
}

// packPlane writes a strided plane tightly into dst and returns the bytes written.
func packPlane(dst, src []byte, width, height, stride int) int {
	for row := 0; row < height; row++ {
		copy(dst[row*width:(row+1)*width], src[row*stride:row*stride+width])
	}
	return width * height
}
