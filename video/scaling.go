package video

import (
	"fmt"
)

// MinDimension is the smallest width or height the scaler produces.
const MinDimension = 2

// Scaler resizes YUV420 frames with bilinear interpolation and computes
// aspect-preserving fits. It holds no state and is safe for concurrent use.
type Scaler struct{}

// NewScaler creates a new video frame scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Scale resizes frame to targetWidth x targetHeight. Both dimensions must
// be even and at least MinDimension.
func (s *Scaler) Scale(frame *VideoFrame, targetWidth, targetHeight uint16) (*VideoFrame, error) {
	if frame == nil {
		return nil, fmt.Errorf("source frame cannot be nil")
	}
	if targetWidth < MinDimension || targetHeight < MinDimension {
		return nil, fmt.Errorf("target dimensions too small: %dx%d (minimum %dx%d)",
			targetWidth, targetHeight, MinDimension, MinDimension)
	}
	if targetWidth%2 != 0 || targetHeight%2 != 0 {
		return nil, fmt.Errorf("target dimensions must be even for YUV420: %dx%d", targetWidth, targetHeight)
	}
	if frame.Width == targetWidth && frame.Height == targetHeight {
		return copyFrame(frame), nil
	}

	out := NewVideoFrame(targetWidth, targetHeight)
	out.Timestamp = frame.Timestamp

	planes := []struct {
		name       string
		src, dst   []byte
		srcW, srcH int
		srcStride  int
		dstW, dstH int
		dstStride  int
	}{
		{"Y", frame.Y, out.Y, int(frame.Width), int(frame.Height), frame.YStride, int(targetWidth), int(targetHeight), out.YStride},
		{"U", frame.U, out.U, int(frame.Width) / 2, int(frame.Height) / 2, frame.UStride, int(targetWidth) / 2, int(targetHeight) / 2, out.UStride},
		{"V", frame.V, out.V, int(frame.Width) / 2, int(frame.Height) / 2, frame.VStride, int(targetWidth) / 2, int(targetHeight) / 2, out.VStride},
	}
	for _, p := range planes {
		if err := resamplePlane(p.src, p.srcW, p.srcH, p.srcStride, p.dst, p.dstW, p.dstH, p.dstStride); err != nil {
			return nil, fmt.Errorf("failed to scale %s plane: %w", p.name, err)
		}
	}
	return out, nil
}

// tap is one precomputed sampling position: the two source indices and
// the weight of the second, in 1/256ths.
type tap struct {
	i0, i1 int
	w      int
}

func taps(srcLen, dstLen int) []tap {
	out := make([]tap, dstLen)
	for d := range out {
		pos := d * srcLen * 256 / dstLen
		i0 := pos >> 8
		out[d] = tap{i0: i0, i1: min(i0+1, srcLen-1), w: pos & 0xff}
	}
	return out
}

func resamplePlane(src []byte, srcW, srcH, srcStride int, dst []byte, dstW, dstH, dstStride int) error {
	if srcW == 0 || srcH == 0 {
		return fmt.Errorf("empty source plane: %dx%d", srcW, srcH)
	}
	if len(src) < (srcH-1)*srcStride+srcW {
		return fmt.Errorf("source buffer too small: %d bytes for %dx%d", len(src), srcW, srcH)
	}
	if len(dst) < (dstH-1)*dstStride+dstW {
		return fmt.Errorf("destination buffer too small: %d bytes for %dx%d", len(dst), dstW, dstH)
	}

	xs := taps(srcW, dstW)
	for y, ty := range taps(srcH, dstH) {
		r0 := src[ty.i0*srcStride:]
		r1 := src[ty.i1*srcStride:]
		row := dst[y*dstStride:]
		for x, tx := range xs {
			top := int(r0[tx.i0])*(256-tx.w) + int(r0[tx.i1])*tx.w
			bot := int(r1[tx.i0])*(256-tx.w) + int(r1[tx.i1])*tx.w
			row[x] = byte((top*(256-ty.w) + bot*ty.w + 1<<15) >> 16)
		}
	}
	return nil
}

// Fit computes the largest even-sized rectangle with the source aspect
// ratio that fits inside maxWidth x maxHeight.
func (s *Scaler) Fit(srcWidth, srcHeight, maxWidth, maxHeight uint16) (width, height uint16) {
	if srcWidth == 0 || srcHeight == 0 || maxWidth == 0 || maxHeight == 0 {
		return 0, 0
	}

	if uint32(srcWidth)*uint32(maxHeight) >= uint32(maxWidth)*uint32(srcHeight) {
		width = maxWidth
		height = uint16(uint32(maxWidth) * uint32(srcHeight) / uint32(srcWidth))
	} else {
		height = maxHeight
		width = uint16(uint32(maxHeight) * uint32(srcWidth) / uint32(srcHeight))
	}

	width = max(width&^1, MinDimension)
	height = max(height&^1, MinDimension)
	return width, height
}

// FindPosition returns the offset that centres an inner rectangle inside
// an outer one. Offsets are even so chroma samples stay aligned.
func (s *Scaler) FindPosition(outerWidth, outerHeight, innerWidth, innerHeight int) (x, y int) {
	x = max(((outerWidth-innerWidth)/2)&^1, 0)
	y = max(((outerHeight-innerHeight)/2)&^1, 0)
	return x, y
}
