// Package motion implements the frame-differencing motion detector.
//
// This is intentionally a simple stage: grayscale, absolute diff against
// the previous frame, threshold, area-gate, cooldown. It exists to
// exercise the pipeline's fan-out, not to be a production-grade motion
// algorithm. No example in the corpus does frame-differencing motion
// detection, so this stage's algorithm is grounded directly in the
// design-level description rather than an adapted file; its
// backpressure shape (bounded per-camera queue, drop on overflow)
// mirrors internal/eventbus.
package motion

import (
	"image"
	"image/color"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
)

// Config holds the threshold, area-min ratio, and cooldown used for
// every camera's motion detection.
type Config struct {
	Threshold    uint8
	AreaMinRatio float64
	Cooldown     time.Duration
}

// Publisher is the subset of eventbus.Bus the motion stage needs.
type Publisher interface {
	Publish(cameraID string, ev eventbus.Event)
}

type job struct {
	cameraID string
	frame    model.Frame
}

type cameraState struct {
	mu       sync.Mutex
	prevGray *image.Gray
	lastEmit time.Time
	hasEmit  bool
	input    chan job
	done     chan struct{}
}

// Stage runs one goroutine per camera, each processing at most one
// frame at a time; if Submit is called faster than a camera's goroutine
// drains, the pending frame is replaced so only the most recent frame
// is ever waiting (frames are dropped from the motion stage's input
// only — the ring buffer and publisher still see every frame).
type Stage struct {
	cfg     Config
	bus     Publisher
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	states map[string]*cameraState
}

// New builds a Stage with the given detection parameters.
func New(cfg Config, bus Publisher, m *metrics.Metrics, logger *zap.Logger) *Stage {
	return &Stage{cfg: cfg, bus: bus, metrics: m, logger: logger, states: make(map[string]*cameraState)}
}

// Submit hands frame to cameraID's motion goroutine, never blocking the
// caller (the ingest path).
func (s *Stage) Submit(cameraID string, frame model.Frame) {
	st := s.stateFor(cameraID)
	j := job{cameraID: cameraID, frame: frame}
	select {
	case st.input <- j:
		return
	default:
	}
	// Input full: drop the stale pending frame and replace it with the
	// newest one.
	select {
	case <-st.input:
	default:
	}
	select {
	case st.input <- j:
	default:
	}
}

func (s *Stage) stateFor(cameraID string) *cameraState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[cameraID]; ok {
		return st
	}
	st := &cameraState{
		input: make(chan job, 1),
		done:  make(chan struct{}),
	}
	s.states[cameraID] = st
	go s.run(cameraID, st)
	return st
}

func (s *Stage) run(cameraID string, st *cameraState) {
	defer close(st.done)
	for j := range st.input {
		s.process(cameraID, st, j.frame)
	}
}

func (s *Stage) process(cameraID string, st *cameraState, frame model.Frame) {
	if frame.Image == nil {
		return
	}
	gray := toGray(frame.Image)

	st.mu.Lock()
	prev := st.prevGray
	st.prevGray = gray
	st.mu.Unlock()

	if prev == nil {
		return // first frame ever: store reference, emit nothing
	}
	if !sameDims(prev, gray) {
		return // dimensions changed (e.g. reconnect): reset reference, emit nothing
	}

	area := diffArea(prev, gray, s.cfg.Threshold)
	total := gray.Bounds().Dx() * gray.Bounds().Dy()
	areaMin := int(s.cfg.AreaMinRatio * float64(total))

	st.mu.Lock()
	sinceLast := time.Since(st.lastEmit)
	withinCooldown := st.hasEmit && sinceLast < s.cfg.Cooldown
	st.mu.Unlock()

	if area < areaMin || withinCooldown {
		return
	}

	st.mu.Lock()
	st.lastEmit = time.Now()
	st.hasEmit = true
	st.mu.Unlock()

	s.metrics.MotionEventsTotal.WithLabelValues(cameraID).Inc()
	s.bus.Publish(cameraID, eventbus.Event{
		Type:      eventbus.MotionDetected,
		Timestamp: frame.Timestamp,
		Area:      &area,
	})
}

// StopCamera tears down a camera's motion goroutine, e.g. when the
// camera is deregistered.
func (s *Stage) StopCamera(cameraID string) {
	s.mu.Lock()
	st, ok := s.states[cameraID]
	if ok {
		delete(s.states, cameraID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	close(st.input)
	select {
	case <-st.done:
	case <-time.After(2 * time.Second):
	}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func sameDims(a, b *image.Gray) bool {
	return a.Bounds().Dx() == b.Bounds().Dx() && a.Bounds().Dy() == b.Bounds().Dy()
}

func diffArea(prev, cur *image.Gray, threshold uint8) int {
	b := cur.Bounds()
	area := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pv := prev.GrayAt(x, y).Y
			cv := cur.GrayAt(x, y).Y
			var d uint8
			if pv > cv {
				d = pv - cv
			} else {
				d = cv - pv
			}
			if d >= threshold {
				area++
			}
		}
	}
	return area
}
