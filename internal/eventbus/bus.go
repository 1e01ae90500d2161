// Package eventbus fans out lifecycle and frame events to an external
// pub/sub transport, one bounded queue and worker goroutine per camera,
// so a slow or unreachable transport can never stall ingestion.
//
// Grounded on SudharshanMutalik46-ts-vms-v1.0's internal/live/service.go
// (a *redis.Client held on a long-lived Service, context-scoped calls).
package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
)

// EventType is one of the four event kinds the bus carries.
type EventType string

const (
	CameraConnected    EventType = "camera.connected"
	CameraDisconnected EventType = "camera.disconnected"
	FrameIngested      EventType = "frame.ingested"
	MotionDetected     EventType = "motion.detected"
)

// Event is the wire payload published on channel camera:{camera_id}.
// Fields unused by a given Type are omitted from the JSON encoding.
type Event struct {
	Type      EventType `json:"-"`
	CameraID  string    `json:"camera_id"`
	Timestamp float64   `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"`
	Seq       *uint64   `json:"seq,omitempty"`
	Area      *int      `json:"area,omitempty"`
}

// Transport publishes a raw payload to a named channel. Implementations
// must not block indefinitely; ctx carries the per-publish deadline.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type pending struct {
	ev      Event
	channel string
}

type cameraQueue struct {
	ch     chan pending
	mu     sync.Mutex // guards the drop-oldest enqueue sequence
	done   chan struct{}
	cancel context.CancelFunc
}

// Bus serializes Events per camera onto a bounded queue and publishes
// them through Transport on a dedicated goroutine per camera.
type Bus struct {
	transport Transport
	queueSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration

	mu     sync.Mutex
	queues map[string]*cameraQueue
}

// New builds a Bus publishing through transport. queueSize is the
// per-camera bounded queue capacity (Q in the concurrency model,
// default 64).
func New(transport Transport, queueSize int, m *metrics.Metrics, logger *zap.Logger) *Bus {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Bus{
		transport: transport,
		queueSize: queueSize,
		metrics:   m,
		logger:    logger,
		timeout:   3 * time.Second,
		queues:    make(map[string]*cameraQueue),
	}
}

// Publish enqueues ev for camera cameraID and returns immediately. If
// the camera's queue is full, the oldest pending event is dropped and
// events_dropped_total is incremented; publish itself never blocks.
func (b *Bus) Publish(cameraID string, ev Event) {
	ev.CameraID = cameraID
	q := b.queueFor(cameraID)

	item := pending{ev: ev, channel: "camera:" + cameraID}

	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.ch <- item:
		return
	default:
	}

	// Queue full: drop the oldest pending event to make room.
	select {
	case dropped := <-q.ch:
		b.metrics.EventsDroppedTotal.WithLabelValues(cameraID, string(dropped.ev.Type)).Inc()
	default:
	}

	select {
	case q.ch <- item:
	default:
		// Lost the race against the worker draining concurrently; count
		// this event as dropped too rather than block.
		b.metrics.EventsDroppedTotal.WithLabelValues(cameraID, string(ev.Type)).Inc()
	}
}

// queueFor returns the camera's queue, creating it (and its worker
// goroutine) on first use.
func (b *Bus) queueFor(cameraID string) *cameraQueue {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q, ok := b.queues[cameraID]; ok {
		return q
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &cameraQueue{
		ch:     make(chan pending, b.queueSize),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	b.queues[cameraID] = q
	go b.run(ctx, cameraID, q)
	return q
}

func (b *Bus) run(ctx context.Context, cameraID string, q *cameraQueue) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			// Best-effort drain of events still queued, bounded by the
			// same 2s wait StopCamera gives the worker.
			dctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				select {
				case item := <-q.ch:
					b.publishOne(dctx, cameraID, item)
				default:
					return
				}
			}
		case item := <-q.ch:
			b.publishOne(ctx, cameraID, item)
		}
	}
}

func (b *Bus) publishOne(ctx context.Context, cameraID string, item pending) {
	payload, err := json.Marshal(item.ev)
	if err != nil {
		b.logger.Warn("event marshal failed", zap.String("camera_id", cameraID), zap.Error(err))
		return
	}

	pctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.transport.Publish(pctx, item.channel, payload); err != nil {
		b.logger.Warn("event publish failed",
			zap.String("camera_id", cameraID),
			zap.String("channel", item.channel),
			zap.Error(err))
		// Transport errors are logged and counted (§4.2): a failed
		// publish still counts against events_dropped_total so
		// events_published_total + events_dropped_total == events
		// submitted holds even when the transport itself is flaky.
		b.metrics.EventsDroppedTotal.WithLabelValues(cameraID, string(item.ev.Type)).Inc()
		return
	}
	b.metrics.EventsPublishedTotal.WithLabelValues(cameraID, string(item.ev.Type)).Inc()
}

// StopCamera cancels and drains the named camera's publish worker,
// waiting up to 2s for it to acknowledge before returning, and removes
// the queue so a later re-registration starts clean.
func (b *Bus) StopCamera(cameraID string) {
	b.mu.Lock()
	q, ok := b.queues[cameraID]
	if ok {
		delete(b.queues, cameraID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	q.cancel()
	select {
	case <-q.done:
	case <-time.After(2 * time.Second):
	}
}
