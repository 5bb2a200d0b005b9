package conference

import (
	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
)

// bannerColor and bannerText are the banner strip colours.
var (
	bannerBackground = video.ColorFromRGB(0x20, 0x20, 0x20)
	bannerForeground = video.ColorFromRGB(0xff, 0xff, 0xff)
)

const minBannerHeight = 18

// placement describes where a source image lands inside a layer. All
// offsets are relative to the layer's top-left corner.
type placement struct {
	// inner is the layer area left after the border.
	innerX, innerY, innerW, innerH int
	// crop is the source region used; the full source unless zooming.
	cropX, cropY, cropW, cropH int
	// scaled is the size the cropped source is resampled to.
	scaledW, scaledH int
	// off centres the scaled image in the inner area.
	offX, offY int
}

// computePlacement works out the crop, scale and offset for a source of
// srcW x srcH in a layer of screenW x screenH. With zoom the source is
// centre-cropped to the layer aspect and fills it exactly; otherwise it is
// fitted and letterboxed. All values are even.
func computePlacement(srcW, srcH, screenW, screenH, border int, zoom bool) (placement, bool) {
	border = (border + 1) &^ 1
	p := placement{
		innerX: border,
		innerY: border,
		innerW: (screenW - 2*border) &^ 1,
		innerH: (screenH - 2*border) &^ 1,
	}
	if srcW < video.MinDimension || srcH < video.MinDimension ||
		p.innerW < video.MinDimension || p.innerH < video.MinDimension {
		return p, false
	}

	p.cropW, p.cropH = srcW, srcH
	if zoom {
		p.scaledW, p.scaledH = p.innerW, p.innerH
		if srcW*p.innerH > p.innerW*srcH {
			p.cropW = (srcH * p.innerW / p.innerH) &^ 1
		} else {
			p.cropH = (srcW * p.innerH / p.innerW) &^ 1
		}
		p.cropW = max(p.cropW, video.MinDimension)
		p.cropH = max(p.cropH, video.MinDimension)
		p.cropX = ((srcW - p.cropW) / 2) &^ 1
		p.cropY = ((srcH - p.cropH) / 2) &^ 1
		return p, true
	}

	scaler := video.NewScaler()
	w, h := scaler.Fit(uint16(srcW), uint16(srcH), uint16(p.innerW), uint16(p.innerH))
	p.scaledW, p.scaledH = int(w), int(h)
	p.offX, p.offY = scaler.FindPosition(p.innerW, p.innerH, p.scaledW, p.scaledH)
	return p, true
}

// scaleAndPatch scales img into the layer's rectangle of the canvas image.
// A nil img re-patches the layer's current image, and is a no-op when the
// layer has none. With freeze the layer keeps its own copy of img, for
// sources that reuse their buffers. Bad input is a no-op.
func (c *Canvas) scaleAndPatch(layer *Layer, img *video.VideoFrame, freeze bool) {
	if layer == nil || layer.screenW < video.MinDimension || layer.screenH < video.MinDimension {
		return
	}
	switch {
	case img == nil:
		img = layer.cur
		if img == nil {
			return
		}
	case freeze:
		img = img.Clone()
	}
	layer.cur = img

	g := layer.geometry
	if g.Border > 0 {
		video.FillRect(c.img, layer.xPos, layer.yPos, layer.screenW, layer.screenH, c.border)
	}

	p, ok := computePlacement(int(img.Width), int(img.Height), layer.screenW, layer.screenH, g.Border, g.Zoom)
	if !ok {
		return
	}

	src := img
	if p.cropW != int(img.Width) || p.cropH != int(img.Height) {
		cropped, err := video.Crop(img, p.cropX, p.cropY, p.cropW, p.cropH)
		if err != nil {
			c.logPatchError(layer, err)
			return
		}
		src = cropped
	}

	scaled := src
	if int(src.Width) != p.scaledW || int(src.Height) != p.scaledH {
		var err error
		scaled, err = c.scaler.Scale(src, uint16(p.scaledW), uint16(p.scaledH))
		if err != nil {
			c.logPatchError(layer, err)
			return
		}
	}

	x := layer.xPos + p.innerX
	y := layer.yPos + p.innerY
	if p.scaledW != p.innerW || p.scaledH != p.innerH {
		video.FillRect(c.img, x, y, p.innerW, p.innerH, c.letterbox)
	}
	video.Patch(c.img, scaled, x+p.offX, y+p.offY)

	c.patchOverlays(layer, p)
}

// blankLayer drops the layer's current image and fills its rectangle with
// the letterbox colour, keeping border and overlays.
func (c *Canvas) blankLayer(layer *Layer) {
	if layer == nil || layer.screenW < video.MinDimension || layer.screenH < video.MinDimension {
		return
	}
	layer.cur = nil

	g := layer.geometry
	if g.Border > 0 {
		video.FillRect(c.img, layer.xPos, layer.yPos, layer.screenW, layer.screenH, c.border)
	}
	p, _ := computePlacement(2, 2, layer.screenW, layer.screenH, g.Border, false)
	video.FillRect(c.img, layer.xPos+p.innerX, layer.yPos+p.innerY, p.innerW, p.innerH, c.letterbox)
	c.patchOverlays(layer, p)
}

// patchOverlays draws the banner strip along the bottom and the logo in
// the top-right corner. Each is rendered only when its dirty flag is set.
func (c *Canvas) patchOverlays(layer *Layer, p placement) {
	x := layer.xPos + p.innerX
	y := layer.yPos + p.innerY

	if layer.bannerText != "" {
		if layer.bannerDirty || layer.banner == nil {
			h := max(minBannerHeight, (p.innerH/8)&^1)
			layer.banner = video.RenderText(layer.bannerText, uint16(p.innerW), uint16(min(h, p.innerH)), bannerForeground, bannerBackground)
			layer.bannerDirty = false
		}
		if layer.banner != nil {
			video.Patch(c.img, layer.banner, x, y+p.innerH-int(layer.banner.Height))
		}
	} else {
		layer.banner = nil
	}

	if layer.logoPath != "" {
		if layer.logoDirty || layer.logo == nil {
			logo, err := c.conf.assets.fitted(layer.logoPath, max(p.innerW/4, 2), max(p.innerH/4, 2))
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function":  "Canvas.patchOverlays",
					"canvas_id": c.id,
					"layer":     layer.idx,
					"logo":      layer.logoPath,
					"error":     err.Error(),
				}).Warn("Failed to load layer logo")
				layer.logoPath = ""
			}
			layer.logo = logo
			layer.logoDirty = false
		}
		if layer.logo != nil {
			video.Patch(c.img, layer.logo, x+p.innerW-int(layer.logo.Width), y)
		}
	} else {
		layer.logo = nil
	}
}

func (c *Canvas) logPatchError(layer *Layer, err error) {
	logrus.WithFields(logrus.Fields{
		"function":  "Canvas.scaleAndPatch",
		"canvas_id": c.id,
		"layer":     layer.idx,
		"error":     err.Error(),
	}).Warn("Failed to patch layer")
}
