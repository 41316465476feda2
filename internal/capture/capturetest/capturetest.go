// Package capturetest provides fake cameras and encoders for tests.
package capturetest

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-keeper/internal/capture"
)

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// Camera serves frames from memory. After FailAfter successful frames
// (when > 0) every Frame call returns Err.
type Camera struct {
	Frames    []image.Image
	Err       error
	FailAfter int

	mu      sync.Mutex
	served  int
	closes  atomic.Int32
	holders atomic.Int32
	peak    atomic.Int32
}

func (c *Camera) acquire() {
	n := c.holders.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Frame returns the next frame, cycling through Frames.
func (c *Camera) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil && (c.FailAfter == 0 || c.served >= c.FailAfter) {
		return nil, c.Err
	}
	if len(c.Frames) == 0 {
		return Solid(64, 48, color.Gray{Y: 128}), nil
	}
	img := c.Frames[c.served%len(c.Frames)]
	c.served++
	return img, nil
}

// Close records the release.
func (c *Camera) Close() error {
	c.closes.Add(1)
	c.holders.Add(-1)
	return nil
}

// PeakHolders returns the largest number of opens that were not yet closed
// at the same time.
func (c *Camera) PeakHolders() int {
	return int(c.peak.Load())
}

// Closed reports whether Close was called at least once.
func (c *Camera) Closed() bool {
	return c.closes.Load() > 0
}

// Served returns the number of frames handed out.
func (c *Camera) Served() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

// Opener hands out Cam, or fails with Err.
type Opener struct {
	Cam *Camera
	Err error

	opens atomic.Int32
}

// Open implements capture.Opener.
func (o *Opener) Open(ctx context.Context) (capture.Camera, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	o.opens.Add(1)
	if o.Cam != nil {
		o.Cam.acquire()
	}
	return o.Cam, nil
}

// Opens returns the number of successful opens.
func (o *Opener) Opens() int {
	return int(o.opens.Load())
}

// Encoder returns Detections for every image, or Err.
type Encoder struct {
	Detections []capture.Detection
	Err        error

	calls atomic.Int32
}

// DetectAndEncode implements capture.Encoder.
func (e *Encoder) DetectAndEncode(img image.Image) ([]capture.Detection, error) {
	e.calls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]capture.Detection, len(e.Detections))
	copy(out, e.Detections)
	return out, nil
}

// Calls returns the number of DetectAndEncode calls.
func (e *Encoder) Calls() int {
	return int(e.calls.Load())
}
