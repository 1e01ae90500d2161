package rtsp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/url"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"
)

// readTimeout bounds a single socket read, per the concurrency model's
// "bounded read timeout of 10s" for RTSP camera sessions.
const readTimeout = 10 * time.Second

type decodedFrame struct {
	img image.Image
	at  time.Time
	err error
}

// gortsplibSession wraps one gortsplib.Client subscribed to a camera's
// MJPEG track. Frames arrive on the client's own callback goroutine and
// are funneled through frames for ReadFrame to consume, matching the
// OnPacketRTP callback pattern viamrobotics-rdk's RTSP camera uses.
type gortsplibSession struct {
	client *gortsplib.Client
	frames chan decodedFrame
}

// GortsplibFactory opens RTSP sessions against MJPEG-over-RTSP cameras
// using bluenviron/gortsplib and pion/rtp, mirroring
// viamrobotics-rdk/components/camera/rtsp/rtsp.go's non-passthrough
// (MJPEG) branch.
type GortsplibFactory struct{}

func (GortsplibFactory) Open(ctx context.Context, sourceURL string) (Session, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "rtsp" {
		return nil, errors.New("source_url is not an rtsp:// URL")
	}

	client := &gortsplib.Client{
		ReadTimeout: readTimeout,
	}

	sess := &gortsplibSession{
		client: client,
		frames: make(chan decodedFrame, 4),
	}

	client.OnPacketLost = func(err error) {}
	client.OnTransportSwitch = func(err error) {}
	client.OnDecodeError = func(err error) {}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			client.Close()
		}
	}()

	desc, _, err := client.Describe(u)
	if err != nil {
		return nil, err
	}

	var mjpeg *format.MJPEG
	media := desc.FindFormat(&mjpeg)
	if media == nil {
		return nil, errors.New("no MJPEG track advertised by source")
	}

	dec, err := mjpeg.CreateDecoder()
	if err != nil {
		return nil, err
	}

	client.OnPacketRTP(media, mjpeg, func(pkt *rtp.Packet) {
		jpegBytes, err := dec.Decode(pkt)
		if err != nil {
			return
		}
		img, err := jpeg.Decode(bytes.NewReader(jpegBytes))
		now := time.Now()
		select {
		case sess.frames <- decodedFrame{img: img, at: now, err: err}:
		default:
			// consumer is behind; drop this packet rather than block the
			// client's callback goroutine
		}
	})

	if _, err := client.Setup(desc.BaseURL, media, 0, 0); err != nil {
		return nil, err
	}
	if _, err := client.Play(nil); err != nil {
		return nil, err
	}

	ok = true
	return sess, nil
}

func (s *gortsplibSession) ReadFrame(ctx context.Context) (image.Image, time.Time, error) {
	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case f := <-s.frames:
		return f.img, f.at, f.err
	}
}

func (s *gortsplibSession) Close() error {
	return s.client.Close()
}
