package simulation

import (
	"sync"

	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
)

// ScriptedEncoder wraps a passthrough encoder and returns a scripted
// sequence of errors before succeeding. Used to exercise encoder retry
// handling.
type ScriptedEncoder struct {
	*video.PassthroughEncoder

	script []error
	calls  int
	mu     sync.Mutex
}

// NewScriptedEncoder creates an encoder whose first len(script) Encode
// calls return the scripted errors in order. A nil entry succeeds.
func NewScriptedEncoder(codec string, width, height uint16, bitRate uint32, script ...error) *ScriptedEncoder {
	return &ScriptedEncoder{
		PassthroughEncoder: video.NewPassthroughEncoder(codec, width, height, bitRate),
		script:             script,
	}
}

// Encode implements video.Encoder.Encode
func (e *ScriptedEncoder) Encode(frame *video.VideoFrame, keyframe bool) ([]byte, error) {
	e.mu.Lock()
	call := e.calls
	e.calls++
	e.mu.Unlock()

	if call < len(e.script) && e.script[call] != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ScriptedEncoder.Encode",
			"call":     call,
			"error":    e.script[call].Error(),
		}).Debug("Returning scripted encoder error")
		return nil, e.script[call]
	}
	return e.PassthroughEncoder.Encode(frame, keyframe)
}

// Calls returns how many times Encode was invoked.
func (e *ScriptedEncoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// ScriptedEncoderFactory builds encoders for a conference, applying a script
// only to one codec. Created encoders are retained for inspection.
type ScriptedEncoderFactory struct {
	Codec  string
	Script []error

	created []*ScriptedEncoder
	mu      sync.Mutex
}

// New implements video.EncoderFactory.
func (f *ScriptedEncoderFactory) New(codec string, width, height uint16, bitRate uint32) (video.Encoder, error) {
	var script []error
	if codec == f.Codec {
		script = f.Script
	}
	enc := NewScriptedEncoder(codec, width, height, bitRate, script...)

	f.mu.Lock()
	f.created = append(f.created, enc)
	f.mu.Unlock()
	return enc, nil
}

// Encoders returns every encoder created for codec.
func (f *ScriptedEncoderFactory) Encoders(codec string) []*ScriptedEncoder {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*ScriptedEncoder
	for _, e := range f.created {
		if e.Codec() == codec {
			out = append(out, e)
		}
	}
	return out
}
