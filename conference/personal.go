package conference

import (
	"bitbucket.org/bertimus9/systemstat"
	"github.com/sirupsen/logrus"
)

// systemLoadAverage returns the one-minute load average.
func systemLoadAverage() float64 {
	return systemstat.GetLoadAvgSample().One
}

// createPersonalCanvasLocked gives m its own canvas showing everyone else.
// Caller holds c.mu.
func (c *Conference) createPersonalCanvasLocked(m *Member) (*Canvas, error) {
	fields := logrus.Fields{
		"function":  "Conference.createPersonalCanvasLocked",
		"member_id": m.id,
	}

	if len(c.personal) >= c.cfg.MaxPersonalCanvases {
		fields["max"] = c.cfg.MaxPersonalCanvases
		logrus.WithFields(fields).Warn("Personal canvas limit reached, member stays on shared canvas")
		return nil, ErrPersonalCanvasLimit
	}
	if lim := c.cfg.PersonalCPULoadLimit; lim > 0 {
		if load := c.loadAvg(); load > lim {
			fields["load"] = load
			fields["limit"] = lim
			logrus.WithFields(fields).Warn("System load too high for a personal canvas, member stays on shared canvas")
			return nil, ErrPersonalCanvasLimit
		}
	}

	id := personalCanvasBase + c.nextPersonal
	c.nextPersonal++
	cv, err := newCanvas(c, id, kindPersonal, m.id)
	if err != nil {
		return nil, err
	}
	c.initCanvasLayout(cv)

	c.personal[id] = cv
	m.personalCanvas.Store(int32(id))
	m.watchingCanvas.Store(int32(id))

	if c.running.Load() {
		cv.start(c.ctx)
	}

	fields["canvas_id"] = id
	logrus.WithFields(fields).Info("Created personal canvas")
	return cv, nil
}
