package conference

import (
	"errors"

	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
)

// canvasEncoder is the per-codec encoder of a canvas. A failed encoder
// could not be created; members receiving that codec get no video.
type canvasEncoder struct {
	codec  string
	enc    video.Encoder
	failed bool
	// pendingKey carries a key frame request across ErrMoreData retries.
	pendingKey bool
}

// encoderFor returns the canvas encoder for codec, creating it on first
// use. Caller holds c.mu.
func (c *Canvas) encoderFor(codec string) *canvasEncoder {
	if ce, ok := c.encoders[codec]; ok {
		return ce
	}

	ce := &canvasEncoder{codec: codec, pendingKey: true}
	factory := c.conf.cfg.EncoderFactory
	if factory == nil {
		factory = video.PassthroughEncoderFactory
	}
	enc, err := factory(codec, uint16(c.width), uint16(c.height), c.conf.cfg.EncoderBitRate)
	if err != nil {
		ce.failed = true
		logrus.WithFields(logrus.Fields{
			"function":  "Canvas.encoderFor",
			"canvas_id": c.id,
			"codec":     codec,
			"error":     err.Error(),
		}).Error("Failed to create canvas encoder, members on this codec get no video")
	} else {
		ce.enc = enc
	}
	c.encoders[codec] = ce
	return ce
}

func (c *Canvas) closeEncoders() {
	for codec, ce := range c.encoders {
		if ce.enc != nil {
			if err := ce.enc.Close(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":  "Canvas.closeEncoders",
					"canvas_id": c.id,
					"codec":     codec,
					"error":     err.Error(),
				}).Warn("Failed to close encoder")
			}
		}
		delete(c.encoders, codec)
	}
}

func isMoreData(err error) bool {
	return errors.Is(err, video.ErrMoreData)
}
