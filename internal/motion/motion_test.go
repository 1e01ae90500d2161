package motion

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recordingPublisher) Publish(cameraID string, ev eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.CameraID = cameraID
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func solidFrame(w, h int, v uint8, seq uint64) model.Frame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return model.Frame{Image: img, Seq: seq, Timestamp: float64(seq)}
}

func waitForCount(t *testing.T, pub *recordingPublisher, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for pub.count() < want {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", want, pub.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFirstFrameEmitsNothing(t *testing.T) {
	pub := &recordingPublisher{}
	stage := New(Config{Threshold: 25, AreaMinRatio: 0.005, Cooldown: 0}, pub, metrics.New(), zap.NewNop())

	stage.Submit("cam", solidFrame(10, 10, 100, 0))
	time.Sleep(50 * time.Millisecond)

	if pub.count() != 0 {
		t.Fatalf("expected no events from first frame, got %d", pub.count())
	}
}

func TestLargeChangeEmitsMotion(t *testing.T) {
	pub := &recordingPublisher{}
	stage := New(Config{Threshold: 25, AreaMinRatio: 0.005, Cooldown: 0}, pub, metrics.New(), zap.NewNop())

	stage.Submit("cam", solidFrame(10, 10, 0, 0))
	time.Sleep(20 * time.Millisecond)
	stage.Submit("cam", solidFrame(10, 10, 255, 1))

	waitForCount(t, pub, 1)
	area := *pub.events[0].Area
	if area != 100 {
		t.Fatalf("area = %d, want 100 (full 10x10 frame changed)", area)
	}
}

func TestCooldownSuppressesRepeatEmission(t *testing.T) {
	pub := &recordingPublisher{}
	stage := New(Config{Threshold: 25, AreaMinRatio: 0.005, Cooldown: time.Hour}, pub, metrics.New(), zap.NewNop())

	stage.Submit("cam", solidFrame(10, 10, 0, 0))
	time.Sleep(20 * time.Millisecond)
	stage.Submit("cam", solidFrame(10, 10, 255, 1))
	waitForCount(t, pub, 1)

	time.Sleep(20 * time.Millisecond)
	stage.Submit("cam", solidFrame(10, 10, 0, 2))
	time.Sleep(50 * time.Millisecond)

	if pub.count() != 1 {
		t.Fatalf("expected cooldown to suppress second emission, got %d events", pub.count())
	}
}

func TestDimensionChangeResetsReferenceWithoutEmitting(t *testing.T) {
	pub := &recordingPublisher{}
	stage := New(Config{Threshold: 25, AreaMinRatio: 0.005, Cooldown: 0}, pub, metrics.New(), zap.NewNop())

	stage.Submit("cam", solidFrame(10, 10, 0, 0))
	time.Sleep(20 * time.Millisecond)
	stage.Submit("cam", solidFrame(20, 20, 255, 1)) // dims changed
	time.Sleep(50 * time.Millisecond)

	if pub.count() != 0 {
		t.Fatalf("expected no emission across a dimension change, got %d", pub.count())
	}
}
