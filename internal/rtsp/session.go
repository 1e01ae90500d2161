// Package rtsp owns the per-camera RTSP session lifecycle: connect,
// read-decode-append, reconnect with backoff, and clean shutdown.
//
// Grounded on viamrobotics-rdk/components/camera/rtsp/rtsp.go and
// nicksanford-viamrtsp/rtsp.go (gortsplib session setup, MJPEG track
// negotiation, RTP depacketization via pion/rtp). The state machine
// itself is modeled explicitly (§9's design note) so SessionFactory can
// be swapped for a fake in tests that need to drive transitions
// deterministically.
package rtsp

import (
	"context"
	"image"
	"time"
)

// Session is one open RTSP connection. ReadFrame blocks until a decoded
// frame is available, ctx is done, or the session fails.
type Session interface {
	ReadFrame(ctx context.Context) (img image.Image, capturedAt time.Time, err error)
	Close() error
}

// SessionFactory opens a Session against sourceURL. Production code uses
// GortsplibFactory; tests inject a fake to drive the Worker state
// machine deterministically.
type SessionFactory interface {
	Open(ctx context.Context, sourceURL string) (Session, error)
}
