package rtsp

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/camera"
	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
	"github.com/MaximushkaBed/camera-ingest-module/internal/ring"
)

// maxConsecutiveDecodeFailures is the count of consecutive decode
// failures at which the worker gives up on the current session and
// reconnects, per §4.4.
const maxConsecutiveDecodeFailures = 10

// perReadTimeout bounds one ReadFrame call within a connected epoch.
const perReadTimeout = 10 * time.Second

// EventPublisher is the subset of *eventbus.Bus the worker needs.
type EventPublisher interface {
	Publish(cameraID string, ev eventbus.Event)
}

// MotionSubmitter is the subset of *motion.Stage the worker needs.
type MotionSubmitter interface {
	Submit(cameraID string, frame model.Frame)
}

// Worker owns one RTSP camera's session lifecycle: connect, ingest,
// reconnect with backoff, and clean stop. Grounded on
// viamrobotics-rdk/components/camera/rtsp/rtsp.go's session-owning
// struct, generalized into the explicit state machine §4.4/§9 call for
// (connecting/connected/disconnected/stopped) with an injectable
// SessionFactory so tests can drive transitions without a real camera.
type Worker struct {
	id        string
	sourceURL string
	factory   SessionFactory
	cam       *camera.Camera
	ring      *ring.Buffer
	bus       EventPublisher
	motion    MotionSubmitter
	metrics   *metrics.Metrics
	logger    *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	lastSeq uint64
}

// NewWorker builds a Worker for cam, appending decoded frames to buf.
func NewWorker(
	cam *camera.Camera,
	buf *ring.Buffer,
	factory SessionFactory,
	bus EventPublisher,
	motionStage MotionSubmitter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		id:        cam.ID,
		sourceURL: cam.SourceURL,
		factory:   factory,
		cam:       cam,
		ring:      buf,
		bus:       bus,
		motion:    motionStage,
		metrics:   m,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Stop requests the worker to transition to stopped and release its
// session. It does not block; use Done to wait for acknowledgement.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

// Done is closed once the worker's Run goroutine has fully exited.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}

// Run drives the state machine until ctx is cancelled or Stop is
// called. It is meant to be launched with `go w.Run(ctx)`.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.setState(camera.StateStopped)

	for {
		if w.stopRequested(ctx) {
			return
		}

		w.setState(camera.StateConnecting)
		sess, err := w.connect(ctx)
		if err != nil {
			failures := w.cam.IncFailures()
			w.setState(camera.StateDisconnected)
			w.emitDisconnected("connect failed: " + err.Error())
			w.metrics.RTSPReconnectsTotal.WithLabelValues(w.id).Inc()
			if !w.sleepBackoff(ctx, failures) {
				return
			}
			continue
		}

		w.cam.ResetFailures()
		w.setState(camera.StateConnected)
		epochID := uuid.NewString()
		w.logger.Info("rtsp epoch started", zap.String("camera_id", w.id), zap.String("epoch_id", epochID))
		w.emitConnected()

		reason := w.ingestEpoch(ctx, sess)
		sess.Close()
		w.logger.Info("rtsp epoch ended", zap.String("camera_id", w.id), zap.String("epoch_id", epochID), zap.String("reason", reason))

		if w.stopRequested(ctx) {
			return
		}

		w.setState(camera.StateDisconnected)
		w.emitDisconnected(reason)
		w.metrics.RTSPReconnectsTotal.WithLabelValues(w.id).Inc()
		if !w.sleepBackoff(ctx, w.cam.Failures()) {
			return
		}
	}
}

func (w *Worker) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) connect(ctx context.Context) (Session, error) {
	return w.factory.Open(ctx, w.sourceURL)
}

// ingestEpoch reads frames until the session fails, the context is
// cancelled, or Stop is called, returning the human-readable reason the
// epoch ended (used in the camera.disconnected payload).
func (w *Worker) ingestEpoch(ctx context.Context, sess Session) string {
	consecutiveDecodeFailures := 0

	for {
		if w.stopRequested(ctx) {
			return "stopped"
		}

		readCtx, cancel := context.WithTimeout(ctx, perReadTimeout)
		img, capturedAt, err := sess.ReadFrame(readCtx)
		cancel()

		if err != nil {
			if w.stopRequested(ctx) {
				return "stopped"
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return "read timeout"
			}
			consecutiveDecodeFailures++
			w.metrics.DecodeErrorsTotal.WithLabelValues(w.id).Inc()
			w.logger.Warn("rtsp decode error", zap.String("camera_id", w.id), zap.Error(err))
			if consecutiveDecodeFailures >= maxConsecutiveDecodeFailures {
				return "too many consecutive decode failures"
			}
			continue
		}

		consecutiveDecodeFailures = 0
		w.ingestFrame(img, capturedAt)
	}
}

func (w *Worker) ingestFrame(img image.Image, capturedAt time.Time) {
	ts := float64(capturedAt.UnixNano()) / 1e9
	seq := w.lastSeq
	w.lastSeq++

	frame := model.Frame{
		Image:     img,
		Timestamp: ts,
		Source:    model.SourceRTSP,
		Seq:       seq,
	}

	w.ring.Append(frame)
	w.metrics.FrameIngestLatencySecs.Observe(time.Since(capturedAt).Seconds())
	w.metrics.FramesIngestedTotal.WithLabelValues(w.id, string(model.SourceRTSP)).Inc()
	w.metrics.RingBufferFill.WithLabelValues(w.id).Set(float64(w.ring.Fill()))
	w.cam.RecordFrame(ts)

	w.motion.Submit(w.id, frame)

	seqCopy := seq
	w.bus.Publish(w.id, eventbus.Event{
		Type:      eventbus.FrameIngested,
		Timestamp: ts,
		Source:    string(model.SourceRTSP),
		Seq:       &seqCopy,
	})
}

func (w *Worker) setState(s camera.State) {
	w.cam.SetState(s)
	w.metrics.CameraState.WithLabelValues(w.id).Set(metrics.StateValue(string(s)))
}

func (w *Worker) emitConnected() {
	w.bus.Publish(w.id, eventbus.Event{Type: eventbus.CameraConnected, Timestamp: nowSeconds()})
}

func (w *Worker) emitDisconnected(reason string) {
	w.bus.Publish(w.id, eventbus.Event{Type: eventbus.CameraDisconnected, Timestamp: nowSeconds(), Reason: reason})
}

// sleepBackoff waits the jittered backoff delay before the next
// reconnect attempt. failures is consecutive_failures, which only
// increments on a failed *connect* (§4.4); a disconnect that happens
// mid-epoch (read timeout, decode-failure threshold) leaves it at 0, so
// that case falls back to a single base-delay wait rather than skipping
// backoff entirely.
func (w *Worker) sleepBackoff(ctx context.Context, failures int) bool {
	delay := jitter(nextDelay(failures - 1))
	if failures < 1 {
		delay = jitter(backoffBase)
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	case <-w.stopCh:
		return false
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
