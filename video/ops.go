package video

import (
	"fmt"
)

// FillRect paints the rectangle (x, y, w, h) of dst with c. The rectangle
// is clipped to the frame; coordinates are aligned down to even values so
// chroma writes never straddle a luma pair.
func FillRect(dst *VideoFrame, x, y, w, h int, c Color) {
	if dst == nil {
		return
	}
	x0, y0, x1, y1, ok := clipRect(dst, x, y, w, h)
	if !ok {
		return
	}

	for row := y0; row < y1; row++ {
		line := dst.Y[row*dst.YStride+x0 : row*dst.YStride+x1]
		for i := range line {
			line[i] = c.Y
		}
	}

	for row := y0 / 2; row < (y1+1)/2; row++ {
		uLine := dst.U[row*dst.UStride+x0/2 : row*dst.UStride+(x1+1)/2]
		vLine := dst.V[row*dst.VStride+x0/2 : row*dst.VStride+(x1+1)/2]
		for i := range uLine {
			uLine[i] = c.U
		}
		for i := range vLine {
			vLine[i] = c.V
		}
	}
}

// Patch copies src into dst with its top-left corner at (x, y). Portions
// of src outside dst are clipped. Negative offsets crop the source.
func Patch(dst, src *VideoFrame, x, y int) {
	if dst == nil || src == nil {
		return
	}
	x &^= 1
	y &^= 1

	srcX, srcY := 0, 0
	if x < 0 {
		srcX = -x
		x = 0
	}
	if y < 0 {
		srcY = -y
		y = 0
	}

	w := int(src.Width) - srcX
	h := int(src.Height) - srcY
	if x+w > int(dst.Width) {
		w = int(dst.Width) - x
	}
	if y+h > int(dst.Height) {
		h = int(dst.Height) - y
	}
	if w <= 0 || h <= 0 {
		return
	}

	for row := 0; row < h; row++ {
		so := (srcY+row)*src.YStride + srcX
		do := (y+row)*dst.YStride + x
		copy(dst.Y[do:do+w], src.Y[so:so+w])
	}

	cw := (w + 1) / 2
	for row := 0; row < (h+1)/2; row++ {
		su := (srcY/2+row)*src.UStride + srcX/2
		sv := (srcY/2+row)*src.VStride + srcX/2
		du := (y/2+row)*dst.UStride + x/2
		dv := (y/2+row)*dst.VStride + x/2
		copy(dst.U[du:du+cw], src.U[su:su+cw])
		copy(dst.V[dv:dv+cw], src.V[sv:sv+cw])
	}
}

// Crop returns a new frame holding the (x, y, w, h) region of src. The
// region is aligned to even coordinates and clipped to the source.
func Crop(src *VideoFrame, x, y, w, h int) (*VideoFrame, error) {
	if src == nil {
		return nil, fmt.Errorf("source frame cannot be nil")
	}
	x0, y0, x1, y1, ok := clipRect(src, x, y, w, h)
	if !ok {
		return nil, fmt.Errorf("crop rectangle %dx%d+%d+%d outside %dx%d frame",
			w, h, x, y, src.Width, src.Height)
	}

	out := NewVideoFrame(uint16(x1-x0), uint16(y1-y0))
	if out == nil {
		return nil, fmt.Errorf("crop rectangle %dx%d too small", x1-x0, y1-y0)
	}
	out.Timestamp = src.Timestamp
	Patch(out, src, -x0, -y0)
	return out, nil
}

// CopyInto copies src into dst when both share the same dimensions.
func CopyInto(dst, src *VideoFrame) error {
	if dst == nil || src == nil {
		return fmt.Errorf("frames cannot be nil")
	}
	if dst.Width != src.Width || dst.Height != src.Height {
		return fmt.Errorf("frame size mismatch: %dx%d vs %dx%d",
			dst.Width, dst.Height, src.Width, src.Height)
	}
	Patch(dst, src, 0, 0)
	dst.Timestamp = src.Timestamp
	return nil
}

// clipRect aligns and clips a rectangle to the frame bounds.
func clipRect(f *VideoFrame, x, y, w, h int) (x0, y0, x1, y1 int, ok bool) {
	x0 = x &^ 1
	y0 = y &^ 1
	x1 = x + w
	y1 = y + h
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > int(f.Width) {
		x1 = int(f.Width)
	}
	if y1 > int(f.Height) {
		y1 = int(f.Height)
	}
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1, y1, true
}
