package rtsp

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/camera"
	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
	"github.com/MaximushkaBed/camera-ingest-module/internal/ring"
)

// fakeSession hands out a fixed number of frames then reports an error
// that mimics the source going away, so tests can drive reconnects
// without a real RTSP server.
type fakeSession struct {
	framesLeft int
	failAfter  error
	closed     bool
}

func (s *fakeSession) ReadFrame(ctx context.Context) (image.Image, time.Time, error) {
	if s.framesLeft <= 0 {
		<-ctx.Done() // block like a real stalled socket until the per-read timeout fires
		return nil, time.Time{}, ctx.Err()
	}
	s.framesLeft--
	return image.NewGray(image.Rect(0, 0, 4, 4)), time.Now(), nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	mu        sync.Mutex
	opens     int
	failOpens int // number of Open calls that fail before succeeding
	frames    int
}

func (f *fakeFactory) Open(ctx context.Context, url string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.opens <= f.failOpens {
		return nil, errors.New("connection refused")
	}
	return &fakeSession{framesLeft: f.frames}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(cameraID string, ev eventbus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev.CameraID = cameraID
	b.events = append(b.events, ev)
}

func (b *recordingBus) snapshot() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]eventbus.Event, len(b.events))
	copy(out, b.events)
	return out
}

type noopMotion struct{}

func (noopMotion) Submit(cameraID string, frame model.Frame) {}

func TestWorkerEmitsConnectedThenFramesInOrder(t *testing.T) {
	cam := camera.New(camera.Spec{ID: "cam1", SourceType: camera.SourceRTSP, SourceURL: "rtsp://example/stream"})
	buf := ring.New(10)
	bus := &recordingBus{}
	factory := &fakeFactory{frames: 3}

	w := NewWorker(cam, buf, factory, bus, noopMotion{}, metrics.New(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	deadline := time.After(2 * time.Second)
	for buf.Fill() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d frames ingested before timeout", buf.Fill())
		case <-time.After(5 * time.Millisecond):
		}
	}

	snap := buf.Snapshot(3)
	for i, f := range snap {
		if f.Seq != uint64(i) {
			t.Fatalf("frame[%d].Seq = %d, want %d", i, f.Seq, i)
		}
	}

	events := bus.snapshot()
	if len(events) == 0 || events[0].Type != eventbus.CameraConnected {
		t.Fatalf("expected first event to be camera.connected, got %+v", events)
	}

	w.Stop()
	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop within 2s")
	}
}

func TestWorkerReconnectsAfterFailedConnect(t *testing.T) {
	cam := camera.New(camera.Spec{ID: "cam2", SourceType: camera.SourceRTSP, SourceURL: "rtsp://example/stream"})
	buf := ring.New(10)
	bus := &recordingBus{}
	factory := &fakeFactory{failOpens: 2, frames: 1}

	w := NewWorker(cam, buf, factory, bus, noopMotion{}, metrics.New(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	deadline := time.After(10 * time.Second)
	for buf.Fill() < 1 {
		select {
		case <-deadline:
			t.Fatalf("worker never ingested a frame after reconnects; state=%s", cam.State())
		case <-time.After(10 * time.Millisecond):
		}
	}

	var disconnected int
	deadline2 := time.After(1 * time.Second)
wait:
	for {
		for _, ev := range bus.snapshot() {
			if ev.Type == eventbus.CameraDisconnected {
				disconnected++
			}
		}
		if disconnected >= 2 {
			break wait
		}
		select {
		case <-deadline2:
			break wait
		case <-time.After(5 * time.Millisecond):
			disconnected = 0
		}
	}

	if disconnected < 2 {
		t.Fatalf("expected at least 2 camera.disconnected events from failed connects, got %d", disconnected)
	}

	w.Stop()
}
