// Package conference composes the video of conference members onto
// canvases and distributes the encoded result.
//
// # Architecture
//
// A Conference owns a fixed set of shared canvases, optional personal
// canvases (one per video member, showing everyone else) and an optional
// super canvas tiling all shared canvases. Each canvas runs a muxer
// goroutine that ticks at the conference frame rate:
//
//   - maintain the layout, selecting one from the layout group by
//     participant count
//   - take the newest frame of every candidate member and bind members to
//     layers
//   - scale and patch changed layers, concurrently for layers that do not
//     overlap
//   - encode once per codec and queue the result on every watcher
//   - hand the composed image to recorders and the super canvas
//
// Members push decoded frames with Member.PushFrame. Frames are dropped,
// never blocked on, when a queue is full.
//
// # Usage
//
//	conf, err := conference.New(conference.DefaultConfig(), layout.DefaultCatalog())
//	if err != nil {
//	    return err
//	}
//	if err := conf.Start(ctx); err != nil {
//	    return err
//	}
//	defer conf.Stop()
//
//	m, err := conf.AddMember(conference.MemberConfig{
//	    ID:      1,
//	    Name:    "alice",
//	    Session: session,
//	    Video:   true,
//	})
//	m.PushFrame(frame)
//
// # Floor
//
// The first video member to join holds the video floor. Layers with the
// floor role follow the holder on single-canvas conferences and on
// personal canvases. When the holder leaves the floor passes to the
// previous holder, else to the first video member in join order.
//
// # Locking
//
// The conference mutex is always taken before a canvas mutex, and member
// and queue mutexes are leaves. Muxers resolve members through an
// immutable roster snapshot and never take the conference mutex. Key frame
// requests and status callbacks collected under a canvas mutex run after
// it is released.
package conference
