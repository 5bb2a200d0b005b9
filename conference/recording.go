package conference

import (
	"sort"

	"github.com/google/uuid"
	"github.com/opd-ai/toxmix/interfaces"
	"github.com/sirupsen/logrus"
)

// StartRecording attaches rec to the canvas and returns the recording id.
// The recorder receives a copy of every composed frame.
func (c *Conference) StartRecording(canvasID int, rec interfaces.Recorder) (string, error) {
	if rec == nil || !rec.VideoCapable() {
		return "", ErrRecorderNotCapable
	}
	cv, err := c.canvas(canvasID)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	cv.mu.Lock()
	cv.recorders[id] = rec
	cv.mu.Unlock()
	cv.requestKeyframe()

	logrus.WithFields(logrus.Fields{
		"function":     "Conference.StartRecording",
		"canvas_id":    canvasID,
		"recording_id": id,
	}).Info("Recording started")
	return id, nil
}

// StopRecording detaches and closes the recorder.
func (c *Conference) StopRecording(canvasID int, id string) error {
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}

	cv.mu.Lock()
	rec, ok := cv.recorders[id]
	delete(cv.recorders, id)
	cv.mu.Unlock()
	if !ok {
		return ErrRecordingNotFound
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Conference.StopRecording",
		"canvas_id":    canvasID,
		"recording_id": id,
	}).Info("Recording stopped")
	return rec.Close()
}

// recordFrame hands the composed image to every recorder. A recorder that
// fails a write is dropped. Caller holds c.mu.
func (c *Canvas) recordFrame() {
	if len(c.recorders) == 0 {
		return
	}

	ids := make([]string, 0, len(c.recorders))
	for id := range c.recorders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	img := c.img.Clone()
	for _, id := range ids {
		rec := c.recorders[id]
		if !rec.VideoCapable() {
			continue
		}
		if err := rec.WriteVideo(img); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "Canvas.recordFrame",
				"canvas_id":    c.id,
				"recording_id": id,
				"error":        err.Error(),
			}).Warn("Recorder write failed, stopping recording")
			delete(c.recorders, id)
			_ = rec.Close()
		}
	}
}

func (c *Canvas) closeRecorders() {
	for id, rec := range c.recorders {
		_ = rec.Close()
		delete(c.recorders, id)
	}
}
