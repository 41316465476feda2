package faces

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/recognition"
)

// Kind classifies a failed operation.
type Kind string

const (
	KindNone              Kind = ""
	KindCameraUnavailable Kind = "CameraUnavailable"
	KindCameraBusy        Kind = "CameraBusy"
	KindNoFaceDetected    Kind = "NoFaceDetected"
	KindDuplicateFace     Kind = "DuplicateFace"
	KindNotFound          Kind = "NotFound"
	KindInvalidEmbedding  Kind = "InvalidEmbedding"
	KindPersistenceError  Kind = "PersistenceError"
	KindCanceled          Kind = "Canceled"
	KindInternal          Kind = "Internal"
)

// Result is the outcome of a presentation-level operation. Failures are
// reported here instead of as Go errors.
type Result struct {
	OK      bool   `json:"ok"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Count   int    `json:"count"`
}

// KindOf maps an error from the store, capture or recognition packages to
// its Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCameraBusy), errors.Is(err, recognition.ErrAlreadyRunning):
		return KindCameraBusy
	case errors.Is(err, capture.ErrCameraUnavailable):
		return KindCameraUnavailable
	case errors.Is(err, capture.ErrNoFaceDetected):
		return KindNoFaceDetected
	case errors.Is(err, facestore.ErrDuplicateFace):
		return KindDuplicateFace
	case errors.Is(err, facestore.ErrNotFound), errors.Is(err, recognition.ErrNotRunning):
		return KindNotFound
	case errors.Is(err, facestore.ErrInvalidEmbedding):
		return KindInvalidEmbedding
	case errors.Is(err, facestore.ErrPersistence):
		return KindPersistenceError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// addFailure builds the message shown when adding a face fails.
func addFailure(err error) string {
	switch KindOf(err) {
	case KindCameraBusy:
		return "Please stop the camera before adding a new face."
	case KindCameraUnavailable:
		return "Unable to access camera"
	case KindNoFaceDetected:
		return "No face detected. Please ensure your face is clearly visible"
	case KindDuplicateFace:
		return "This face is already in the database!"
	case KindInvalidEmbedding:
		return fmt.Sprintf("Invalid face data: %v", err)
	case KindPersistenceError:
		return fmt.Sprintf("Failed to save face data: %v", err)
	default:
		return fmt.Sprintf("Error adding face: %v", err)
	}
}

func deleteFailure(name string, err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return fmt.Sprintf("'%s' is not in the face database", name)
	case KindPersistenceError:
		return fmt.Sprintf("Error saving after deletion: %v", err)
	default:
		return fmt.Sprintf("Error deleting face: %v", err)
	}
}
