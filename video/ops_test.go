package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillRect(t *testing.T) {
	frame := NewSolidFrame(64, 48, Black)
	red := ColorFromRGB(255, 0, 0)

	FillRect(frame, 10, 10, 20, 8, red)

	assert.Equal(t, red, frame.PixelAt(10, 10))
	assert.Equal(t, red, frame.PixelAt(29, 17))
	assert.Equal(t, Black, frame.PixelAt(30, 10))
	assert.Equal(t, Black, frame.PixelAt(10, 18))
	assert.Equal(t, Black, frame.PixelAt(0, 0))
}

func TestFillRect_Clipped(t *testing.T) {
	frame := NewSolidFrame(32, 32, Black)
	white := ColorFromRGB(255, 255, 255)

	assert.NotPanics(t, func() {
		FillRect(frame, -10, -10, 100, 100, white)
		FillRect(frame, 40, 40, 10, 10, Black)
		FillRect(nil, 0, 0, 10, 10, Black)
	})
	assert.Equal(t, white, frame.PixelAt(31, 31))
}

func TestPatch(t *testing.T) {
	dst := NewSolidFrame(64, 64, Black)
	blue := ColorFromRGB(0, 0, 255)
	src := NewSolidFrame(16, 16, blue)

	Patch(dst, src, 8, 4)

	assert.Equal(t, blue, dst.PixelAt(8, 4))
	assert.Equal(t, blue, dst.PixelAt(23, 19))
	assert.Equal(t, Black, dst.PixelAt(24, 4))
	assert.Equal(t, Black, dst.PixelAt(7, 4))
}

func TestPatch_ClipsAtEdges(t *testing.T) {
	dst := NewSolidFrame(32, 32, Black)
	green := ColorFromRGB(0, 255, 0)
	src := NewSolidFrame(16, 16, green)

	assert.NotPanics(t, func() {
		Patch(dst, src, 24, 24)
		Patch(dst, src, -8, -8)
		Patch(dst, src, 100, 100)
	})

	assert.Equal(t, green, dst.PixelAt(31, 31))
	assert.Equal(t, green, dst.PixelAt(0, 0))
	assert.Equal(t, green, dst.PixelAt(7, 7))
	assert.Equal(t, Black, dst.PixelAt(8, 8))
}

func TestCrop(t *testing.T) {
	src := createTestFrame(64, 48)

	out, err := Crop(src, 8, 4, 16, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(16), out.Width)
	assert.Equal(t, uint16(10), out.Height)
	assert.Equal(t, src.Y[4*64+8], out.Y[0])

	_, err = Crop(src, 100, 100, 10, 10)
	assert.Error(t, err)

	_, err = Crop(nil, 0, 0, 10, 10)
	assert.Error(t, err)
}

func TestCopyInto(t *testing.T) {
	src := createTestFrame(32, 32)
	src.Timestamp = 900
	dst := NewVideoFrame(32, 32)

	require.NoError(t, CopyInto(dst, src))
	assert.Equal(t, src.Y, dst.Y)
	assert.Equal(t, uint32(900), dst.Timestamp)

	assert.Error(t, CopyInto(NewVideoFrame(16, 16), src))
}
