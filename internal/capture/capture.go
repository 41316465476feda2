// Package capture adapts cameras and face encoders to the rest of the
// program. A Camera yields decoded frames; an Encoder finds faces in a frame
// and returns one embedding per face.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrCameraUnavailable is returned when the camera cannot be opened or read.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrNoFaceDetected is returned when a frame contains no face.
	ErrNoFaceDetected = errors.New("no face detected")
)

// Camera yields frames from a capture device. Close releases the device and
// must be safe to call more than once.
type Camera interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener acquires a camera. Each successful call must be paired with Close.
type Opener func(ctx context.Context) (Camera, error)

// Detection is one face found in a frame.
type Detection struct {
	Box       image.Rectangle
	Embedding []float64
}

// Encoder detects faces and computes their embeddings.
type Encoder interface {
	DetectAndEncode(img image.Image) ([]Detection, error)
}

// Unavailable marks err as a camera failure so callers can match
// ErrCameraUnavailable while keeping the cause.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrCameraUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
}

// Largest returns the detection with the biggest box.
func Largest(detections []Detection) (Detection, bool) {
	if len(detections) == 0 {
		return Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if area(d.Box) > area(best.Box) {
			best = d
		}
	}
	return best, true
}

func area(r image.Rectangle) int {
	s := r.Canon().Size()
	return s.X * s.Y
}

// CaptureFace opens the camera, grabs one frame and encodes the most
// prominent face in it. The camera is closed before returning.
func CaptureFace(ctx context.Context, open Opener, enc Encoder) (Detection, image.Image, error) {
	cam, err := open(ctx)
	if err != nil {
		return Detection{}, nil, Unavailable(err)
	}
	defer cam.Close()

	frame, err := cam.Frame(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Detection{}, nil, ctxErr
		}
		return Detection{}, nil, Unavailable(err)
	}

	detections, err := enc.DetectAndEncode(frame)
	if err != nil {
		return Detection{}, frame, errors.Wrap(err, "encoding faces")
	}
	d, ok := Largest(detections)
	if !ok {
		return Detection{}, frame, ErrNoFaceDetected
	}
	return d, frame, nil
}
