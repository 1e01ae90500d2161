// Package registry is the sole owner of every Camera record, its ring
// buffer, and (for rtsp cameras) its worker goroutine. All mutations
// (register/deregister) serialize through a single coordinating mutex;
// reads of independent cameras proceed concurrently once past the brief
// lookup under that lock.
//
// Grounded on the teacher's FrameManager (a map of per-camera caches
// plus a shared client), generalized from a static startup-time camera
// map into a dynamic registry that spawns and tears down RTSP workers
// at runtime.
package registry

import (
	"context"
	"image"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/apierr"
	"github.com/MaximushkaBed/camera-ingest-module/internal/camera"
	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
	"github.com/MaximushkaBed/camera-ingest-module/internal/motion"
	"github.com/MaximushkaBed/camera-ingest-module/internal/ring"
	"github.com/MaximushkaBed/camera-ingest-module/internal/rtsp"
)

// entry is the Registry's internal bookkeeping for one camera.
type entry struct {
	cam    *camera.Camera
	ring   *ring.Buffer
	worker *rtsp.Worker // nil for http_push cameras
	cancel context.CancelFunc
	seq    uint64 // atomic; next seq to assign for http_push pushes
}

// Registry is the authoritative camera table described in §4.6.
type Registry struct {
	defaultBufferSize int
	factory            rtsp.SessionFactory
	bus                *eventbus.Bus
	motion             *motion.Stage
	metrics            *metrics.Metrics
	logger             *zap.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	cameras map[string]*entry
}

// New builds a Registry. defaultBufferSize is used when a Register call
// omits buffer_size.
func New(
	defaultBufferSize int,
	factory rtsp.SessionFactory,
	bus *eventbus.Bus,
	motionStage *motion.Stage,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	if defaultBufferSize < 1 {
		defaultBufferSize = 1
	}
	return &Registry{
		defaultBufferSize: defaultBufferSize,
		factory:            factory,
		bus:                bus,
		motion:             motionStage,
		metrics:            m,
		logger:             logger,
		baseCtx:            ctx,
		baseCancel:         cancel,
		cameras:            make(map[string]*entry),
	}
}

// Register validates spec, creates the Camera record and Ring Buffer,
// and (for rtsp cameras) spawns a worker, returning promptly without
// waiting for the worker to reach connected.
func (r *Registry) Register(spec camera.Spec) (string, error) {
	if err := validateSpec(spec); err != nil {
		return "", err
	}

	bufSize := spec.BufferSize
	if bufSize <= 0 {
		bufSize = r.defaultBufferSize
	}

	r.mu.Lock()
	if _, exists := r.cameras[spec.ID]; exists {
		r.mu.Unlock()
		return "", apierr.New(apierr.Conflict, "camera already registered: "+spec.ID)
	}

	cam := camera.New(spec)
	buf := ring.New(bufSize)
	ctx, cancel := context.WithCancel(r.baseCtx)
	e := &entry{cam: cam, ring: buf, cancel: cancel}

	if spec.SourceType == camera.SourceRTSP {
		w := rtsp.NewWorker(cam, buf, r.factory, r.bus, r.motion, r.metrics, r.logger)
		e.worker = w
		go w.Run(ctx)
	}

	r.cameras[spec.ID] = e
	r.mu.Unlock()

	r.metrics.CameraState.WithLabelValues(spec.ID).Set(metrics.StateValue(string(cam.State())))
	r.logger.Info("camera registered", zap.String("camera_id", spec.ID), zap.String("source_type", string(spec.SourceType)))

	return cam.ID, nil
}

// Deregister stops the camera's worker (if any), drains its motion and
// publish queues with a bounded wait, and removes its record.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	e, ok := r.cameras[id]
	if !ok {
		r.mu.Unlock()
		return apierr.New(apierr.NotFound, "unknown camera: "+id)
	}
	delete(r.cameras, id)
	r.mu.Unlock()

	e.cancel()
	if e.worker != nil {
		e.worker.Stop()
		select {
		case <-e.worker.Done():
		case <-time.After(2 * time.Second):
		}
	}
	r.motion.StopCamera(id)
	r.bus.StopCamera(id)
	r.metrics.CameraState.DeleteLabelValues(id)
	r.metrics.RingBufferFill.DeleteLabelValues(id)

	r.logger.Info("camera deregistered", zap.String("camera_id", id))
	return nil
}

// List returns a point-in-time summary of every registered camera.
func (r *Registry) List() []camera.Summary {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.cameras))
	for _, e := range r.cameras {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]camera.Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.cam.Summary(e.ring.Fill()))
	}
	return out
}

// GetLatestFrame returns the most recent frame ingested for id, or a
// not_found / no_frame_yet error.
func (r *Registry) GetLatestFrame(id string) (model.Frame, error) {
	e, ok := r.lookup(id)
	if !ok {
		return model.Frame{}, apierr.New(apierr.NotFound, "unknown camera: "+id)
	}
	f, ok := e.ring.Latest()
	if !ok {
		return model.Frame{}, apierr.New(apierr.NoFrameYet, "camera has not ingested a frame yet")
	}
	return f, nil
}

// ValidatePushTarget checks that cameraID is a registered http_push
// camera, without decoding or ingesting anything. Callers (pushsink)
// must run this before spending any work decoding an untrusted blob, so
// existence and source_type are rejected (404 / 409) ahead of a
// bad_frame decode error, per §4.5's existence -> source_type -> decode
// ordering.
func (r *Registry) ValidatePushTarget(cameraID string) error {
	e, ok := r.lookup(cameraID)
	if !ok {
		return apierr.New(apierr.NotFound, "unknown camera: "+cameraID)
	}
	if e.cam.SourceType != camera.SourceHTTPPush {
		return apierr.New(apierr.WrongSourceType, "camera is not an http_push camera")
	}
	return nil
}

// IngestPush implements pushsink.Registry: validates cameraID is a
// registered http_push camera, assigns the next seq, and fans the
// decoded frame out to the ring buffer, motion stage, and event bus.
func (r *Registry) IngestPush(cameraID string, img image.Image, timestamp *float64) (uint64, error) {
	e, ok := r.lookup(cameraID)
	if !ok {
		return 0, apierr.New(apierr.NotFound, "unknown camera: "+cameraID)
	}
	if e.cam.SourceType != camera.SourceHTTPPush {
		return 0, apierr.New(apierr.WrongSourceType, "camera is not an http_push camera")
	}

	ts := serverNow()
	if timestamp != nil {
		ts = *timestamp
	}

	seq := atomic.AddUint64(&e.seq, 1) - 1
	frame := model.Frame{Image: img, Timestamp: ts, Source: model.SourceHTTPPush, Seq: seq}

	e.ring.Append(frame)
	r.metrics.FramesIngestedTotal.WithLabelValues(cameraID, string(model.SourceHTTPPush)).Inc()
	r.metrics.RingBufferFill.WithLabelValues(cameraID).Set(float64(e.ring.Fill()))
	r.metrics.FrameIngestLatencySecs.Observe(time.Since(secondsToTime(ts)).Seconds())
	e.cam.RecordFrame(ts)

	r.motion.Submit(cameraID, frame)

	seqCopy := seq
	r.bus.Publish(cameraID, eventbus.Event{
		Type:      eventbus.FrameIngested,
		Timestamp: ts,
		Source:    string(model.SourceHTTPPush),
		Seq:       &seqCopy,
	})

	return seq, nil
}

// Close cancels every camera's worker context, for use during process
// shutdown. It returns without waiting for the workers to exit and
// leaves the camera records in place.
func (r *Registry) Close() {
	r.baseCancel()
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cameras[id]
	return e, ok
}

func validateSpec(spec camera.Spec) error {
	if strings.TrimSpace(spec.ID) == "" {
		return apierr.New(apierr.Validation, "id must not be empty")
	}
	switch spec.SourceType {
	case camera.SourceRTSP:
		if spec.SourceURL == "" {
			return apierr.New(apierr.Validation, "source_url is required for rtsp cameras")
		}
		u, err := url.Parse(spec.SourceURL)
		if err != nil || u.Scheme != "rtsp" || u.Host == "" {
			return apierr.New(apierr.Validation, "source_url must be a valid rtsp:// URL")
		}
	case camera.SourceHTTPPush:
		// source_url is not used for http_push cameras.
	default:
		return apierr.New(apierr.Validation, `source_type must be "rtsp" or "http_push"`)
	}
	if spec.BufferSize < 0 {
		return apierr.New(apierr.Validation, "buffer_size must not be negative")
	}
	return nil
}

func serverNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func secondsToTime(ts float64) time.Time {
	return time.Unix(0, int64(ts*1e9))
}
