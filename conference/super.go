package conference

import (
	"math"

	"github.com/opd-ai/toxmix/layout"
	"github.com/opd-ai/toxmix/video"
)

// newSuperCanvas builds the canvas that tiles every shared canvas into a
// grid. Each shared canvas gets an output queue the super canvas drains.
func (c *Conference) newSuperCanvas() (*Canvas, error) {
	sc, err := newCanvas(c, SuperCanvasID, kindSuper, 0)
	if err != nil {
		return nil, err
	}

	n := int(math.Ceil(math.Sqrt(float64(len(c.canvases)))))
	sc.sources = c.canvases
	for _, src := range c.canvases {
		src.outQueue = newFrameQueue[*video.VideoFrame](c.cfg.CanvasQueueSize)
	}

	sc.mu.Lock()
	sc.applyLayout(layout.GridLayout("super", n))
	sc.takeEffects()
	sc.mu.Unlock()
	return sc, nil
}

// intakeSources schedules the newest composed image of each shared canvas
// into its tile.
func (c *Canvas) intakeSources(tc *tickContext) {
	for i, src := range c.sources {
		if i >= len(c.layers) || src.outQueue == nil {
			break
		}
		img, _, ok := src.outQueue.Latest()
		if !ok {
			if c.layers[i].refresh {
				c.layers[i].refresh = false
				c.layers[i].schedule(c.layers[i].cur, false)
			}
			continue
		}
		c.layers[i].refresh = false
		c.layers[i].schedule(img, false)
	}
}
