package pushsink

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/MaximushkaBed/camera-ingest-module/internal/apierr"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
)

type fakeRegistry struct {
	lastImg     image.Image
	lastTS      *float64
	seq         uint64
	err         error
	validateErr error
}

func (r *fakeRegistry) ValidatePushTarget(cameraID string) error {
	return r.validateErr
}

func (r *fakeRegistry) IngestPush(cameraID string, img image.Image, timestamp *float64) (uint64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.lastImg = img
	r.lastTS = timestamp
	return r.seq, nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestPushValidJPEGDelegatesToRegistry(t *testing.T) {
	reg := &fakeRegistry{seq: 7}
	sink := New(reg, metrics.New())

	seq, err := sink.Push("cam1", jpegBytes(t, 8, 8), nil)
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if seq != 7 {
		t.Fatalf("seq = %d, want 7", seq)
	}
	if reg.lastImg == nil {
		t.Fatal("expected decoded image to reach the registry")
	}
}

func TestPushCorruptBlobReturnsBadFrame(t *testing.T) {
	reg := &fakeRegistry{}
	sink := New(reg, metrics.New())

	_, err := sink.Push("cam1", []byte("not an image, just garbage bytes"), nil)
	if err == nil {
		t.Fatal("expected an error for a corrupt blob")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.BadFrame {
		t.Fatalf("err = %v, want *apierr.Error{Kind: bad_frame}", err)
	}
}

func TestPushUnknownCameraRejectsBeforeDecoding(t *testing.T) {
	reg := &fakeRegistry{validateErr: apierr.New(apierr.NotFound, "unknown camera: cam1")}
	sink := New(reg, metrics.New())

	// A corrupt blob against an unknown camera must surface not_found,
	// never bad_frame: existence is checked before decode is attempted.
	_, err := sink.Push("cam1", []byte("garbage"), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.NotFound {
		t.Fatalf("err = %v, want *apierr.Error{Kind: not_found}", err)
	}
}

func TestPushWrongSourceTypeRejectsBeforeDecoding(t *testing.T) {
	reg := &fakeRegistry{validateErr: apierr.New(apierr.WrongSourceType, "camera is not an http_push camera")}
	sink := New(reg, metrics.New())

	_, err := sink.Push("cam1", jpegBytes(t, 4, 4), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.WrongSourceType {
		t.Fatalf("err = %v, want *apierr.Error{Kind: wrong_source_type}", err)
	}
}

func TestPushPassesThroughExplicitTimestamp(t *testing.T) {
	reg := &fakeRegistry{}
	sink := New(reg, metrics.New())
	ts := 1700000000.0

	if _, err := sink.Push("cam1", jpegBytes(t, 4, 4), &ts); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if reg.lastTS == nil || *reg.lastTS != ts {
		t.Fatalf("timestamp not passed through: got %v, want %v", reg.lastTS, ts)
	}
}
