// Package model holds the value objects shared across the ingestion
// pipeline.
package model

import "image"

// Source identifies which ingestion path produced a Frame.
type Source string

const (
	SourceRTSP     Source = "rtsp"
	SourceHTTPPush Source = "http_push"
)

// Frame is an immutable snapshot of one decoded camera image.
//
// Readers receive Frame by value; Image is never mutated after it is
// stored in a Frame, so sharing the same image.Image across readers is
// safe without copying pixels.
type Frame struct {
	Image     image.Image
	Timestamp float64 // seconds, monotonic source preferred
	Source    Source
	Seq       uint64
}

// Dimensions returns the frame's width and height in pixels.
func (f Frame) Dimensions() (width, height int) {
	if f.Image == nil {
		return 0, 0
	}
	b := f.Image.Bounds()
	return b.Dx(), b.Dy()
}
