// Package ring implements the fixed-capacity, single-producer,
// multi-consumer frame buffer each camera owns.
//
// Grounded on the teacher's internal/frame CameraCache (a write-index
// circular array behind a sync.RWMutex), generalized from a single
// read-cursor consumer to the Latest/Snapshot API the motion stage and
// HTTP readers both need.
package ring

import (
	"sync"

	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
)

// Buffer retains the last N frames appended to it. All operations are
// total: Latest and Snapshot on an empty buffer return the zero value
// and false/nil rather than erroring.
type Buffer struct {
	mu       sync.RWMutex
	frames   []model.Frame
	capacity int
	writeIdx int
	count    int
	appended uint64
}

// New creates a Buffer holding at most capacity frames. capacity is
// clamped to a minimum of 1.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		frames:   make([]model.Frame, capacity),
		capacity: capacity,
	}
}

// Append adds f, evicting the oldest frame if the buffer is full.
// Append holds the write lock only for the copy of one Frame value. It
// waits for readers already holding the read lock, each of which holds
// it only while copying Frame values out.
func (b *Buffer) Append(f model.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[b.writeIdx] = f
	b.writeIdx = (b.writeIdx + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
	b.appended++
}

// Latest returns the most recently appended frame, or the zero value
// and false if nothing has been appended yet.
func (b *Buffer) Latest() (model.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return model.Frame{}, false
	}
	idx := (b.writeIdx - 1 + b.capacity) % b.capacity
	return b.frames[idx], true
}

// Snapshot returns the last k frames (k clamped to the current fill
// level) in append order, oldest first.
func (b *Buffer) Snapshot(k int) []model.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if k > b.count {
		k = b.count
	}
	if k <= 0 {
		return nil
	}
	out := make([]model.Frame, k)
	start := (b.writeIdx - k + b.capacity) % b.capacity
	for i := 0; i < k; i++ {
		out[i] = b.frames[(start+i)%b.capacity]
	}
	return out
}

// Fill returns the number of frames currently held, 0 <= Fill() <= Capacity().
func (b *Buffer) Fill() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Capacity returns the fixed capacity N the buffer was created with.
func (b *Buffer) Capacity() int {
	return b.capacity
}
