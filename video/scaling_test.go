package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaler_Scale_Dimensions(t *testing.T) {
	scaler := NewScaler()

	tests := []struct {
		name       string
		srcW, srcH uint16
		dstW, dstH uint16
	}{
		{"QVGA to VGA", 320, 240, 640, 480},
		{"HD to VGA", 1280, 720, 640, 480},
		{"layer tile", 640, 480, 426, 240},
		{"minimum", 64, 48, MinDimension, MinDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := scaler.Scale(createTestFrame(tt.srcW, tt.srcH), tt.dstW, tt.dstH)
			require.NoError(t, err)
			require.NoError(t, out.Validate())
			assert.Equal(t, tt.dstW, out.Width)
			assert.Equal(t, tt.dstH, out.Height)
			assert.Len(t, out.Y, int(tt.dstW)*int(tt.dstH))
			assert.Len(t, out.U, int(tt.dstW/2)*int(tt.dstH/2))
		})
	}
}

func TestScaler_Scale_Errors(t *testing.T) {
	scaler := NewScaler()
	src := createTestFrame(320, 240)

	tests := []struct {
		name       string
		frame      *VideoFrame
		w, h       uint16
		wantSubstr string
	}{
		{"nil frame", nil, 640, 480, "cannot be nil"},
		{"zero width", src, 0, 480, "too small"},
		{"zero height", src, 640, 0, "too small"},
		{"odd width", src, 641, 480, "must be even"},
		{"odd height", src, 640, 481, "must be even"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := scaler.Scale(tt.frame, tt.w, tt.h)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSubstr)
			assert.Nil(t, out)
		})
	}
}

func TestScaler_Scale_SameSizeCopies(t *testing.T) {
	src := createTestFrame(64, 48)
	src.Y[100] = 123

	out, err := NewScaler().Scale(src, 64, 48)
	require.NoError(t, err)
	assert.Equal(t, byte(123), out.Y[100])

	src.Y[100] = 200
	assert.Equal(t, byte(123), out.Y[100])
}

func TestScaler_Scale_SolidColourIsExact(t *testing.T) {
	c := ColorFromRGB(30, 160, 90)
	out, err := NewScaler().Scale(NewSolidFrame(100, 60, c), 318, 182)
	require.NoError(t, err)

	for _, p := range [][2]int{{0, 0}, {157, 91}, {317, 181}} {
		assert.Equal(t, c, out.PixelAt(p[0], p[1]))
	}
}

func TestScaler_Scale_Interpolates(t *testing.T) {
	// Two columns, 0 and 200: doubling the width puts the midpoint between.
	src := NewVideoFrame(2, 2)
	for y := 0; y < 2; y++ {
		src.Y[y*src.YStride] = 0
		src.Y[y*src.YStride+1] = 200
	}

	out, err := NewScaler().Scale(src, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 100, 200, 200}, out.Y[:4])
}

func TestScaler_Fit(t *testing.T) {
	scaler := NewScaler()

	tests := []struct {
		name         string
		srcW, srcH   uint16
		maxW, maxH   uint16
		wantW, wantH uint16
	}{
		{"16:9 into 4:3 letterboxes", 1280, 720, 320, 240, 320, 180},
		{"4:3 into 16:9 pillarboxes", 640, 480, 640, 360, 480, 360},
		{"same aspect fills", 640, 480, 320, 240, 320, 240},
		{"odd result rounded to even", 1000, 333, 100, 100, 100, 32},
		{"portrait into landscape", 360, 640, 640, 360, 202, 360},
		{"sliver clamps to minimum", 1000, 2, 100, 100, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := scaler.Fit(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}

	w, h := scaler.Fit(0, 10, 100, 100)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestScaler_FindPosition(t *testing.T) {
	scaler := NewScaler()

	x, y := scaler.FindPosition(320, 240, 320, 180)
	assert.Equal(t, 0, x)
	assert.Equal(t, 30, y)

	x, y = scaler.FindPosition(640, 360, 480, 360)
	assert.Equal(t, 80, x)
	assert.Equal(t, 0, y)

	x, y = scaler.FindPosition(100, 100, 200, 200)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func BenchmarkScaler_Scale_VGAToTile(b *testing.B) {
	scaler := NewScaler()
	src := createTestFrame(640, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := scaler.Scale(src, 426, 240); err != nil {
			b.Fatal(err)
		}
	}
}

// createTestFrame returns a frame with a luma ramp and neutral chroma.
func createTestFrame(width, height uint16) *VideoFrame {
	frame := NewVideoFrame(width, height)
	for i := range frame.Y {
		frame.Y[i] = byte(i % 256)
	}
	for i := range frame.U {
		frame.U[i] = 128
		frame.V[i] = 128
	}
	return frame
}
