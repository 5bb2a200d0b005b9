package simulation

import (
	"errors"
	"sync"
	"time"

	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
)

// ErrSessionClosed is returned by writes to a closed SimulatedSession
var ErrSessionClosed = errors.New("simulated session closed")

// DeliveryRecord represents one frame delivered to a simulated member.
type DeliveryRecord struct {
	Codec     string
	Size      int
	Keyframe  bool
	Raw       bool
	Width     uint16
	Height    uint16
	Timestamp time.Time
}

// SimulatedSession implements interfaces.MemberSession in memory and keeps
// a log of everything the mixer asked of it for test verification.
type SimulatedSession struct {
	codec       string
	manageable  bool
	deliveryLog []DeliveryRecord
	bitrateLog  []uint32
	keyframes   int
	closed      bool
	writeErr    error
	bitrateErr  error
	mu          sync.RWMutex
}

// NewSimulatedSession creates a session receiving frames encoded with codec.
func NewSimulatedSession(codec string) *SimulatedSession {
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedSession",
		"codec":    codec,
	}).Debug("Creating simulated member session")

	return &SimulatedSession{
		codec:       codec,
		manageable:  true,
		deliveryLog: make([]DeliveryRecord, 0),
	}
}

// RequestKeyFrame implements MemberSession.RequestKeyFrame
func (s *SimulatedSession) RequestKeyFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyframes++
	return nil
}

// SetIncomingBitrate implements MemberSession.SetIncomingBitrate
func (s *SimulatedSession) SetIncomingBitrate(kbps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bitrateErr != nil {
		return s.bitrateErr
	}
	s.bitrateLog = append(s.bitrateLog, kbps)
	return nil
}

// FailBitrate makes SetIncomingBitrate return err without recording the
// rate. Pass nil to recover.
func (s *SimulatedSession) FailBitrate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitrateErr = err
}

// WriteEncodedFrame implements MemberSession.WriteEncodedFrame
func (s *SimulatedSession) WriteEncodedFrame(codec string, data []byte, keyframe bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	s.deliveryLog = append(s.deliveryLog, DeliveryRecord{
		Codec:     codec,
		Size:      len(data),
		Keyframe:  keyframe,
		Timestamp: time.Now(),
	})
	return nil
}

// WriteRawFrame implements MemberSession.WriteRawFrame
func (s *SimulatedSession) WriteRawFrame(frame *video.VideoFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	rec := DeliveryRecord{Raw: true, Timestamp: time.Now()}
	if frame != nil {
		rec.Width, rec.Height = frame.Width, frame.Height
		rec.Size = len(frame.Y) + len(frame.U) + len(frame.V)
	}
	s.deliveryLog = append(s.deliveryLog, rec)
	return nil
}

func (s *SimulatedSession) writableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.writeErr
}

// Codec implements MemberSession.Codec
func (s *SimulatedSession) Codec() string {
	return s.codec
}

// BitrateManageable implements MemberSession.BitrateManageable
func (s *SimulatedSession) BitrateManageable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manageable
}

// SetBitrateManageable toggles whether bitrate control is accepted.
func (s *SimulatedSession) SetBitrateManageable(manageable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manageable = manageable
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (s *SimulatedSession) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Close marks the session closed; later writes fail with ErrSessionClosed.
func (s *SimulatedSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// GetDeliveryLog returns a copy of the delivery log.
func (s *SimulatedSession) GetDeliveryLog() []DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := make([]DeliveryRecord, len(s.deliveryLog))
	copy(log, s.deliveryLog)
	return log
}

// FrameCount returns the number of frames delivered.
func (s *SimulatedSession) FrameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deliveryLog)
}

// KeyFrameRequests returns how many key frames the mixer requested.
func (s *SimulatedSession) KeyFrameRequests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyframes
}

// BitrateLog returns every bitrate the mixer applied, in order.
func (s *SimulatedSession) BitrateLog() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint32(nil), s.bitrateLog...)
}

// LastBitrate returns the most recently applied bitrate, or 0.
func (s *SimulatedSession) LastBitrate() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.bitrateLog) == 0 {
		return 0
	}
	return s.bitrateLog[len(s.bitrateLog)-1]
}

// ClearDeliveryLog clears the delivery log for test cleanup.
func (s *SimulatedSession) ClearDeliveryLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryLog = make([]DeliveryRecord, 0)
}

// SessionStats is a typed summary of a simulated session.
type SessionStats struct {
	Frames           int
	Keyframes        int
	RawFrames        int
	KeyFrameRequests int
	BitrateChanges   int
}

// GetStats returns statistics about the session.
func (s *SimulatedSession) GetStats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := SessionStats{
		Frames:           len(s.deliveryLog),
		KeyFrameRequests: s.keyframes,
		BitrateChanges:   len(s.bitrateLog),
	}
	for _, rec := range s.deliveryLog {
		if rec.Keyframe {
			stats.Keyframes++
		}
		if rec.Raw {
			stats.RawFrames++
		}
	}
	return stats
}
