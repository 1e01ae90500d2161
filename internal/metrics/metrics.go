// Package metrics builds the process's Prometheus instrumentation.
//
// Grounded on warpcomdev-asicamera2/internal/driver/jpeg/pool.go, which
// registers CounterVec/HistogramVec series with promauto. Here the
// series are fields on a Metrics value constructed once at startup and
// passed explicitly to every collaborator, rather than package-level
// globals, per the "no ambient singletons" design note.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every series named in the metrics registry design.
type Metrics struct {
	Registry *prometheus.Registry

	FramesIngestedTotal    *prometheus.CounterVec
	DecodeErrorsTotal      *prometheus.CounterVec
	MotionEventsTotal      *prometheus.CounterVec
	EventsPublishedTotal   *prometheus.CounterVec
	EventsDroppedTotal     *prometheus.CounterVec
	RTSPReconnectsTotal    *prometheus.CounterVec
	CameraState            *prometheus.GaugeVec
	RingBufferFill         *prometheus.GaugeVec
	FrameIngestLatencySecs prometheus.Histogram
}

// New builds a Metrics bound to a fresh, private prometheus.Registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		FramesIngestedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_ingested_total",
			Help: "Frames appended to a camera's ring buffer.",
		}, []string{"camera_id", "source"}),

		DecodeErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decode_errors_total",
			Help: "Frame decode failures.",
		}, []string{"camera_id"}),

		MotionEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motion_events_total",
			Help: "motion.detected events emitted.",
		}, []string{"camera_id"}),

		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events successfully handed to the bus transport.",
		}, []string{"camera_id", "type"}),

		EventsDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events dropped from a full publish queue or lost to a failed transport publish.",
		}, []string{"camera_id", "type"}),

		RTSPReconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtsp_reconnects_total",
			Help: "RTSP reconnect attempts.",
		}, []string{"camera_id"}),

		CameraState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "camera_state",
			Help: "Current camera lifecycle state, encoded as an integer.",
		}, []string{"camera_id"}),

		RingBufferFill: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ring_buffer_fill",
			Help: "Number of frames currently held in a camera's ring buffer.",
		}, []string{"camera_id"}),

		FrameIngestLatencySecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "frame_ingest_latency_seconds",
			Help:    "Latency from frame capture timestamp to ring buffer append.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// StateValue encodes a camera lifecycle state as the integer the
// camera_state gauge reports, in lifecycle order.
func StateValue(state string) float64 {
	switch state {
	case "registering":
		return 0
	case "connecting":
		return 1
	case "connected":
		return 2
	case "disconnected":
		return 3
	case "stopped":
		return 4
	default:
		return -1
	}
}
