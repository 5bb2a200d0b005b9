package video

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughEncoder_RoundTrip(t *testing.T) {
	encoder := NewPassthroughEncoder("VP8", 64, 48, 256000)
	frame := createTestFrame(64, 48)
	frame.Timestamp = 3000

	data, err := encoder.Encode(frame, true)
	require.NoError(t, err)

	decoded, keyframe, err := DecodePassthrough(data)
	require.NoError(t, err)
	assert.True(t, keyframe)
	assert.Equal(t, frame.Width, decoded.Width)
	assert.Equal(t, frame.Height, decoded.Height)
	assert.Equal(t, uint32(3000), decoded.Timestamp)
	assert.Equal(t, frame.Y, decoded.Y)
	assert.Equal(t, frame.U, decoded.U)
	assert.Equal(t, frame.V, decoded.V)
}

func TestPassthroughEncoder_Errors(t *testing.T) {
	encoder := NewPassthroughEncoder("VP8", 64, 48, 256000)

	_, err := encoder.Encode(nil, false)
	assert.Error(t, err)

	_, err = encoder.Encode(createTestFrame(32, 32), false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "frame size mismatch")

	_, _, err = DecodePassthrough([]byte{1, 2})
	assert.Error(t, err)
}

func TestPassthroughEncoder_BitRateAndClose(t *testing.T) {
	encoder := NewPassthroughEncoder("H264", 32, 32, 1000)
	assert.Equal(t, "H264", encoder.Codec())

	require.NoError(t, encoder.SetBitRate(5000))
	assert.Equal(t, uint32(5000), encoder.BitRate())
	assert.NoError(t, encoder.Close())
}

func TestPassthroughEncoderFactory(t *testing.T) {
	enc, err := PassthroughEncoderFactory("VP8", 32, 32, 1000)
	require.NoError(t, err)
	assert.Equal(t, "VP8", enc.Codec())

	_, err = PassthroughEncoderFactory("", 32, 32, 1000)
	assert.True(t, errors.Is(err, ErrUnsupportedCodec))
}
