// Package httpapi is the HTTP control plane: register/list/deregister
// cameras, read the latest frame, accept pushed frames, and expose
// Prometheus metrics. Promoted from an "external collaborator" in the
// distilled spec to a concrete component here, grounded on
// BayoHabib-surveillance-system/internal/api/handlers.go's shape (a
// Handler struct holding its collaborators, one method per route,
// errors mapped to HTTP status by kind).
package httpapi

import (
	"encoding/json"
	"image/jpeg"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/MaximushkaBed/camera-ingest-module/internal/apierr"
	"github.com/MaximushkaBed/camera-ingest-module/internal/camera"
	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
)

// maxPushBodyBytes bounds the multipart form the push endpoint will
// parse into memory.
const maxPushBodyBytes = 32 << 20 // 32MiB

// Registry is the subset of *registry.Registry the control plane needs.
type Registry interface {
	Register(spec camera.Spec) (string, error)
	Deregister(id string) error
	List() []camera.Summary
	GetLatestFrame(id string) (model.Frame, error)
}

// Pusher is the subset of *pushsink.Sink the control plane needs.
type Pusher interface {
	Push(cameraID string, data []byte, timestamp *float64) (uint64, error)
}

// Handler implements every route named in §6.
type Handler struct {
	registry Registry
	pusher   Pusher
	logger   *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(registry Registry, pusher Pusher, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, pusher: pusher, logger: logger}
}

type registerRequest struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url,omitempty"`
	BufferSize int    `json:"buffer_size,omitempty"`
}

type registerResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type pushResponse struct {
	Seq uint64 `json:"seq"`
}

// RegisterCamera handles POST /api/cameras.
func (h *Handler) RegisterCamera(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.New(apierr.Validation, "invalid JSON body: "+err.Error()))
		return
	}

	spec := camera.Spec{
		ID:         req.ID,
		SourceType: camera.SourceType(req.SourceType),
		SourceURL:  req.SourceURL,
		BufferSize: req.BufferSize,
	}

	id, err := h.registry.Register(spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: id})
}

// ListCameras handles GET /api/cameras.
func (h *Handler) ListCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// DeregisterCamera handles DELETE /api/cameras/{id}.
func (h *Handler) DeregisterCamera(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Deregister(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLatestFrame handles GET /api/cameras/{id}/frame/latest.
func (h *Handler) GetLatestFrame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	frame, err := h.registry.GetLatestFrame(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if err := jpeg.Encode(w, frame.Image, nil); err != nil {
		h.logger.Warn("jpeg encode failed", zap.String("camera_id", id), zap.Error(err))
	}
}

// PushFrame handles POST /api/ingest/push/{id}.
func (h *Handler) PushFrame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxPushBodyBytes); err != nil {
		writeError(w, apierr.New(apierr.BadFrame, "invalid multipart form: "+err.Error()))
		return
	}

	file, _, err := r.FormFile("frame_file")
	if err != nil {
		writeError(w, apierr.New(apierr.BadFrame, "frame_file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apierr.New(apierr.BadFrame, "failed to read frame_file"))
		return
	}

	var ts *float64
	if raw := r.FormValue("timestamp"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, apierr.New(apierr.Validation, "timestamp must be a float"))
			return
		}
		ts = &parsed
	}

	seq, err := h.pusher.Push(id, data, ts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pushResponse{Seq: seq})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: err.Error()})
		return
	}
	writeJSON(w, apierr.Status(apiErr.Kind), errorResponse{Error: string(apiErr.Kind), Message: apiErr.Message})
}
