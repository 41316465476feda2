// Package dlib implements capture.Encoder with the dlib models through
// github.com/Kagami/go-face.
package dlib

import (
	"image"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/pkg/errors"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/constants"
)

// Encoder detects faces and computes 128-dimensional descriptors.
// The underlying recognizer is not safe for concurrent use, so calls are
// serialized.
type Encoder struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// ErrClosed is returned by DetectAndEncode after Close.
var ErrClosed = errors.New("face encoder is closed")

// New loads the models (shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat, mmod_human_face_detector.dat)
// from modelsDir.
func New(modelsDir string) (*Encoder, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "loading face models from %s", modelsDir)
	}
	return &Encoder{rec: rec}, nil
}

// DetectAndEncode returns one detection per face found in img.
func (e *Encoder) DetectAndEncode(img image.Image) ([]capture.Detection, error) {
	data, err := capture.EncodeJPEG(img, constants.JPEGQuality)
	if err != nil {
		return nil, err
	}

	// go-face reports boxes relative to the encoded image, which starts at 0,0.
	origin := img.Bounds().Min

	e.mu.Lock()
	if e.rec == nil {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	faces, err := e.rec.Recognize(data)
	e.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "recognizing faces")
	}

	detections := make([]capture.Detection, len(faces))
	for i, f := range faces {
		detections[i] = capture.Detection{
			Box:       f.Rectangle.Add(origin),
			Embedding: descriptorToEmbedding(f.Descriptor),
		}
	}
	return detections, nil
}

// Close frees the recognizer.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}

func descriptorToEmbedding(d face.Descriptor) []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}
