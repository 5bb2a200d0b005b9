package video

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// textPadding is the left inset of rendered banner text in pixels.
const textPadding = 6

// ReadPNG decodes a PNG file into a YUV420 frame.
func ReadPNG(path string) (*VideoFrame, error) {
	img, err := DecodePNGImage(path)
	if err != nil {
		return nil, err
	}

	frame := FromImage(img)
	if frame == nil {
		return nil, fmt.Errorf("png %s too small: %dx%d", path, img.Bounds().Dx(), img.Bounds().Dy())
	}
	return frame, nil
}

// FromImage converts any image to a YUV420 frame. Odd dimensions are
// cropped by one pixel. Returns nil for images smaller than 2x2.
func FromImage(img image.Image) *VideoFrame {
	b := img.Bounds()
	frame := NewVideoFrame(uint16(b.Dx()), uint16(b.Dy()))
	if frame == nil {
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height)))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	for y := 0; y < int(frame.Height); y++ {
		for x := 0; x < int(frame.Width); x++ {
			c := rgba.RGBAAt(x, y)
			yy, _, _ := color.RGBToYCbCr(c.R, c.G, c.B)
			frame.Y[y*frame.YStride+x] = yy
		}
	}

	for cy := 0; cy < int(frame.Height)/2; cy++ {
		for cx := 0; cx < int(frame.Width)/2; cx++ {
			var sumU, sumV int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					c := rgba.RGBAAt(cx*2+dx, cy*2+dy)
					_, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
					sumU += int(cb)
					sumV += int(cr)
				}
			}
			frame.U[cy*frame.UStride+cx] = byte(sumU / 4)
			frame.V[cy*frame.VStride+cx] = byte(sumV / 4)
		}
	}

	return frame
}

// ToRGBA converts a Color back to an RGBA value.
func (c Color) ToRGBA() color.RGBA {
	r, g, b := color.YCbCrToRGB(c.Y, c.U, c.V)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// RenderText draws a single line of text onto a solid strip of the given
// size. Text that does not fit is clipped on the right.
func RenderText(text string, width, height uint16, fg, bg Color) *VideoFrame {
	width &^= 1
	height &^= 1
	if width < MinDimension || height < MinDimension {
		return nil
	}

	canvas := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg.ToRGBA()), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	baseline := (int(height)-textHeight)/2 + metrics.Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg.ToRGBA()),
		Face: face,
		Dot:  fixed.P(textPadding, baseline),
	}
	drawer.DrawString(text)

	return FromImage(canvas)
}

// ScaleImage scales a decoded image to the given size with Catmull-Rom
// resampling before conversion. Used for high quality one-off assets such
// as backgrounds, where per-frame speed does not matter.
func ScaleImage(img image.Image, width, height uint16) *VideoFrame {
	width &^= 1
	height &^= 1
	if width < MinDimension || height < MinDimension {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return FromImage(dst)
}

// DecodePNGImage reads a PNG without converting it, for callers that want
// to resample with ScaleImage.
func DecodePNGImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open png: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode png %s: %w", path, err)
	}
	return img, nil
}
