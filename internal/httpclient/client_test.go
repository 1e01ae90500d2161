package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbeSnapshotReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	c := New()
	body, err := c.ProbeSnapshot(srv.URL)
	if err != nil {
		t.Fatalf("ProbeSnapshot failed: %v", err)
	}
	if string(body) != "fake-jpeg-bytes" {
		t.Fatalf("body = %q, want %q", body, "fake-jpeg-bytes")
	}
}

func TestProbeSnapshotNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	if _, err := c.ProbeSnapshot(srv.URL); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
