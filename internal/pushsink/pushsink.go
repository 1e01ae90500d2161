// Package pushsink implements the decode path for http_push cameras:
// POST /api/ingest/push/{id} hands raw bytes here, and a decoded frame
// comes out (or a bad_frame error).
//
// Grounded on the teacher's FetchFrame/IsValidJPEG path, generalized
// from a magic-byte validity check to a real image.Decode, since the
// spec requires an actual decoded pixel matrix, not just a validity
// bit (§3's Frame.image).
package pushsink

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/MaximushkaBed/camera-ingest-module/internal/apierr"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
)

// Registry is the subset of *registry.Registry the sink needs: locate
// the camera, validate its source type, assign a seq, and fan the
// decoded frame out to the ring buffer, motion stage, and event bus.
type Registry interface {
	ValidatePushTarget(cameraID string) error
	IngestPush(cameraID string, img image.Image, timestamp *float64) (seq uint64, err error)
}

// Sink decodes externally pushed frames and hands them to the registry.
type Sink struct {
	registry Registry
	metrics  *metrics.Metrics
}

// New builds a Sink backed by registry.
func New(registry Registry, m *metrics.Metrics) *Sink {
	return &Sink{registry: registry, metrics: m}
}

// Push decodes data (JPEG or PNG) and ingests it for cameraID.
// timestamp is nil when the caller omitted it; Registry.IngestPush
// defaults it to server_now(). cameraID is validated (exists, is
// http_push) before data is sniffed or decoded at all, per §4.5's
// existence -> source_type -> decode ordering: an unknown or
// wrong-source-type camera must never cause decode work, and must never
// contribute a decode_errors_total sample under an arbitrary label.
func (s *Sink) Push(cameraID string, data []byte, timestamp *float64) (uint64, error) {
	if err := s.registry.ValidatePushTarget(cameraID); err != nil {
		return 0, err
	}

	if !looksLikeImage(data) {
		s.metrics.DecodeErrorsTotal.WithLabelValues(cameraID).Inc()
		return 0, apierr.New(apierr.BadFrame, "unrecognized image format")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.metrics.DecodeErrorsTotal.WithLabelValues(cameraID).Inc()
		return 0, apierr.New(apierr.BadFrame, "image decode failed: "+err.Error())
	}

	return s.registry.IngestPush(cameraID, img, timestamp)
}
