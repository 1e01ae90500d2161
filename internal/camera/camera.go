// Package camera defines the Camera record and its lifecycle states.
// A *Camera is the single mutable handle the Registry, the ingestion
// workers, and the HTTP control plane all read and write through; its
// own mutex keeps per-camera state changes independent of the Registry's
// coordinating lock.
package camera

import "sync"

// SourceType is the ingestion path a camera is registered with.
type SourceType string

const (
	SourceRTSP     SourceType = "rtsp"
	SourceHTTPPush SourceType = "http_push"
)

// State is a position in the camera lifecycle state machine.
type State string

const (
	StateRegistering  State = "registering"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateStopped      State = "stopped"
)

// Spec is the input to Registry.Register.
type Spec struct {
	ID         string
	SourceType SourceType
	SourceURL  string
	BufferSize int
}

// Summary is the control-plane representation of a camera returned by
// GET /api/cameras.
type Summary struct {
	ID          string   `json:"id"`
	SourceType  string   `json:"source_type"`
	State       string   `json:"state"`
	LastFrameAt *float64 `json:"last_frame_at,omitempty"`
	Fill        int      `json:"fill"`
}

// Camera is the authoritative record for one registered camera.
// Identity fields are immutable after New; state and counters are
// guarded by mu.
type Camera struct {
	ID         string
	SourceType SourceType
	SourceURL  string

	mu                  sync.RWMutex
	state               State
	lastFrameAt         float64
	hasLastFrame        bool
	consecutiveFailures int
}

// New creates a Camera record from spec. http_push cameras start
// connected (invariant 3(b) of the data model); rtsp cameras start
// registering and move to connecting once their worker starts.
func New(spec Spec) *Camera {
	initial := StateRegistering
	if spec.SourceType == SourceHTTPPush {
		initial = StateConnected
	}
	return &Camera{
		ID:         spec.ID,
		SourceType: spec.SourceType,
		SourceURL:  spec.SourceURL,
		state:      initial,
	}
}

// State returns the current lifecycle state.
func (c *Camera) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetState transitions the camera to s.
func (c *Camera) SetState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// RecordFrame updates last_frame_at to ts. It does not touch the
// consecutive failure counter; that is reset by ResetFailures on a
// connected transition.
func (c *Camera) RecordFrame(ts float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFrameAt = ts
	c.hasLastFrame = true
}

// LastFrameAt returns the timestamp of the most recently ingested frame,
// if any has been ingested yet.
func (c *Camera) LastFrameAt() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFrameAt, c.hasLastFrame
}

// IncFailures increments and returns the consecutive connect-failure
// counter.
func (c *Camera) IncFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++
	return c.consecutiveFailures
}

// ResetFailures zeroes the consecutive connect-failure counter, called
// on a successful connected transition.
func (c *Camera) ResetFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
}

// Failures returns the current consecutive connect-failure count.
func (c *Camera) Failures() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consecutiveFailures
}

// Summary renders the control-plane view of the camera given its ring
// buffer's current fill level.
func (c *Camera) Summary(fill int) Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Summary{
		ID:         c.ID,
		SourceType: string(c.SourceType),
		State:      string(c.state),
		Fill:       fill,
	}
	if c.hasLastFrame {
		ts := c.lastFrameAt
		s.LastFrameAt = &ts
	}
	return s
}
