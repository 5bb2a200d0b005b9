// Package simulation provides in-memory implementations of the mixer's
// boundary capabilities for deterministic testing and demos.
//
// # Overview
//
// The conference mixer talks to participants, recorders and playback files
// only through the interfaces package. This package implements those
// interfaces entirely in memory and records every interaction so tests can
// verify delivery, key-frame requests and bitrate control without a real
// media stack:
//
//	sess := simulation.NewSimulatedSession("VP8")
//	m, _ := conf.AddMember(conference.MemberConfig{ID: 1, Session: sess, Video: true})
//	// ... run a few ticks ...
//	stats := sess.GetStats()
//	fmt.Println(stats.Frames, stats.Keyframes, sess.LastBitrate())
//
// # Fault Injection
//
// SimulatedSession.FailWrites makes deliveries fail, SimulatedRecorder
// accepts a frame limit, and ScriptedEncoder returns a scripted error
// sequence (for example video.ErrMoreData twice) before succeeding.
//
// # Thread Safety
//
// All types are safe for concurrent use.
package simulation
