package conference

import (
	"errors"
	"io"

	"github.com/opd-ai/toxmix/interfaces"
	"github.com/opd-ai/toxmix/layout"
	"github.com/sirupsen/logrus"
)

// fileNode plays a file source into a layer. layer is -1 while the node
// waits for a layer after a layout change.
type fileNode struct {
	src   interfaces.FileSource
	layer int
}

// PlayFile plays src on a layer of the canvas: the first file-only layer,
// else the floor layer, else the first empty layer. The source is closed
// when it reaches io.EOF or the canvas stops.
func (c *Conference) PlayFile(canvasID int, src interfaces.FileSource) error {
	if src == nil {
		return errors.New("file source cannot be nil")
	}
	cv, err := c.canvas(canvasID)
	if err != nil {
		return err
	}

	cv.mu.Lock()
	idx := cv.fileLayerFor()
	if idx < 0 {
		cv.mu.Unlock()
		return ErrNoLayer
	}
	node := &fileNode{src: src, layer: -1}
	cv.fileNodes = append(cv.fileNodes, node)
	cv.bindFileNode(node, idx)
	cv.unlockAndApply()

	logrus.WithFields(logrus.Fields{
		"function":  "Conference.PlayFile",
		"canvas_id": canvasID,
		"layer":     idx,
		"file":      src.Name(),
	}).Info("Playing file on canvas")
	return nil
}

// fileLayerFor picks a layer for a new file node, -1 when none is free.
// Caller holds c.mu.
func (c *Canvas) fileLayerFor() int {
	for i, l := range c.layers {
		if l.geometry.Role == layout.RoleFileOnly && l.fnode == nil {
			return i
		}
	}
	if fi := c.floorLayerIndex(); fi >= 0 && c.layers[fi].fnode == nil {
		return fi
	}
	for i, l := range c.layers {
		if !l.bound() && l.geometry.Role != layout.RoleReserved && l.geometry.ReservationID == "" {
			return i
		}
	}
	return -1
}

// bindFileNode puts node on layer idx, detaching any member there.
func (c *Canvas) bindFileNode(node *fileNode, idx int) {
	layer := c.layers[idx]
	if layer.memberID != 0 {
		c.detachLayer(layer, c.conf.roster.Load().get(layer.memberID), false)
	}
	layer.fnode = node
	layer.refresh = true
	node.layer = idx
}

// unbindFileNode removes node from its layer and the canvas and closes
// its source.
func (c *Canvas) unbindFileNode(node *fileNode) {
	if node.layer >= 0 && node.layer < len(c.layers) {
		layer := c.layers[node.layer]
		if layer.fnode == node {
			layer.fnode = nil
			layer.clearOccupant()
			c.restoreBackground(layer.xPos, layer.yPos, layer.screenW, layer.screenH)
		}
	}
	node.layer = -1

	for i, n := range c.fileNodes {
		if n == node {
			c.fileNodes = append(c.fileNodes[:i], c.fileNodes[i+1:]...)
			break
		}
	}
	if err := node.src.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Canvas.unbindFileNode",
			"canvas_id": c.id,
			"file":      node.src.Name(),
			"error":     err.Error(),
		}).Warn("Failed to close file source")
	}
}

// rebindFileNodes places nodes left without a layer, for instance after a
// layout change.
func (c *Canvas) rebindFileNodes() {
	for _, node := range c.fileNodes {
		if node.layer >= 0 {
			continue
		}
		idx := c.fileLayerFor()
		if idx < 0 {
			logrus.WithFields(logrus.Fields{
				"function":  "Canvas.rebindFileNodes",
				"canvas_id": c.id,
				"file":      node.src.Name(),
			}).Warn("No layer for file playback")
			continue
		}
		c.bindFileNode(node, idx)
	}
}

// intakeFileNodes pulls one frame from every bound file node.
func (c *Canvas) intakeFileNodes(tc *tickContext) {
	if len(c.fileNodes) == 0 {
		return
	}
	c.rebindFileNodes()

	nodes := append([]*fileNode(nil), c.fileNodes...)
	for _, node := range nodes {
		if node.layer < 0 {
			continue
		}
		frame, err := node.src.ReadFrame()
		if errors.Is(err, io.EOF) {
			logrus.WithFields(logrus.Fields{
				"function":  "Canvas.intakeFileNodes",
				"canvas_id": c.id,
				"file":      node.src.Name(),
			}).Info("File playback finished")
			c.unbindFileNode(node)
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Canvas.intakeFileNodes",
				"canvas_id": c.id,
				"file":      node.src.Name(),
				"error":     err.Error(),
			}).Warn("Failed to read file frame")
			continue
		}
		layer := c.layers[node.layer]
		layer.refresh = false
		layer.schedule(frame, true)
	}
}

func (c *Canvas) closeFileNodes() {
	for len(c.fileNodes) > 0 {
		c.unbindFileNode(c.fileNodes[0])
	}
}
