// Package faces implements the user-facing face operations: add, delete,
// list and count, plus starting and stopping live recognition. Every
// operation reports a Result instead of an error.
package faces

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/recognition"
)

// ErrCameraBusy is returned when the camera is needed while live
// recognition holds it.
var ErrCameraBusy = errors.New("camera is in use by recognition")

const (
	runningMessage = "Camera is running... Detecting faces..."
	stoppedMessage = "Camera stopped."
)

// Options configures a Service.
type Options struct {
	StatusDisplay time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// Service exposes the face database to the CLI and the HTTP API.
type Service struct {
	store   *facestore.Store
	open    capture.Opener
	enc     capture.Encoder
	session *recognition.Session
	status  *statusBoard
	logger  *slog.Logger

	// camMu serializes camera ownership between Add and StartRecognition.
	camMu sync.Mutex
}

// NewService wires the store to a camera and encoder. open, enc and
// session may be nil when only explicit embeddings are used.
func NewService(store *facestore.Store, open capture.Opener, enc capture.Encoder,
	session *recognition.Session, opts Options) *Service {
	if opts.StatusDisplay <= 0 {
		opts.StatusDisplay = constants.DefaultStatusDisplay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		open:    open,
		enc:     enc,
		session: session,
		status:  &statusBoard{ttl: opts.StatusDisplay, now: opts.Now},
		logger:  opts.Logger,
	}
}

// Store returns the underlying face store.
func (s *Service) Store() *facestore.Store {
	return s.store
}

// Session returns the recognition session, or nil.
func (s *Service) Session() *recognition.Session {
	return s.session
}

// Add captures one frame from the camera and stores the most prominent
// face under name. A blank name is replaced with an automatic one.
func (s *Service) Add(ctx context.Context, name string) Result {
	s.camMu.Lock()
	defer s.camMu.Unlock()

	if s.session != nil && s.session.Running() {
		return s.failAdd(ErrCameraBusy)
	}
	if s.open == nil || s.enc == nil {
		return s.failAdd(capture.Unavailable(errors.New("no camera configured")))
	}

	d, _, err := capture.CaptureFace(ctx, s.open, s.enc)
	if err != nil {
		return s.failAdd(err)
	}
	return s.AddEmbedding(ctx, d.Embedding, name)
}

// AddImage stores the most prominent face found in img.
func (s *Service) AddImage(ctx context.Context, img image.Image, name string) Result {
	if s.enc == nil {
		return s.failAdd(errors.New("no face encoder configured"))
	}
	detections, err := s.enc.DetectAndEncode(img)
	if err != nil {
		return s.failAdd(err)
	}
	d, ok := capture.Largest(detections)
	if !ok {
		return s.failAdd(capture.ErrNoFaceDetected)
	}
	return s.AddEmbedding(ctx, d.Embedding, name)
}

// AddEmbedding stores an already computed embedding.
func (s *Service) AddEmbedding(ctx context.Context, embedding []float64, name string) Result {
	rec, err := s.store.Add(ctx, embedding, name)
	if err != nil {
		return s.failAdd(err)
	}
	return s.report(Result{
		OK:      true,
		Message: fmt.Sprintf("Face added successfully as '%s'", rec.Name),
		Name:    rec.Name,
		Count:   s.store.Count(),
	})
}

func (s *Service) failAdd(err error) Result {
	s.logger.Warn("adding face failed", "error", err)
	return s.report(Result{Kind: KindOf(err), Message: addFailure(err), Count: s.store.Count()})
}

// Delete removes the first face stored under name, ignoring surrounding
// whitespace like Add does.
func (s *Service) Delete(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.report(Result{Kind: KindNotFound, Message: "You must enter a name.", Count: s.store.Count()})
	}
	rec, err := s.store.Delete(ctx, name)
	if err != nil {
		s.logger.Warn("deleting face failed", "name", name, "error", err)
		return s.report(Result{Kind: KindOf(err), Message: deleteFailure(name, err), Name: name, Count: s.store.Count()})
	}
	return s.report(Result{
		OK:      true,
		Message: fmt.Sprintf("Deleted face '%s' successfully", rec.Name),
		Name:    rec.Name,
		Count:   s.store.Count(),
	})
}

// List returns the names of all known faces in storage order.
func (s *Service) List() []string {
	return s.store.List()
}

// Count returns the number of known faces.
func (s *Service) Count() int {
	return s.store.Count()
}

// StartRecognition starts the live loop. The loop outlives ctx only if
// ctx is long-lived; request handlers pass the server context.
func (s *Service) StartRecognition(ctx context.Context) Result {
	if s.session == nil {
		return s.report(Result{Kind: KindCameraUnavailable, Message: "Unable to access camera", Count: s.store.Count()})
	}
	s.camMu.Lock()
	defer s.camMu.Unlock()
	if err := s.session.Start(ctx); err != nil {
		return s.report(Result{Kind: KindOf(err), Message: "Recognition is already running.", Count: s.store.Count()})
	}
	return s.report(Result{OK: true, Message: runningMessage, Count: s.store.Count()})
}

// StopRecognition stops the live loop and waits for the camera release.
func (s *Service) StopRecognition() Result {
	if s.session == nil {
		return s.report(Result{Kind: KindNotFound, Message: "Recognition is not running.", Count: s.store.Count()})
	}
	err := s.session.Stop()
	switch {
	case errors.Is(err, recognition.ErrNotRunning):
		return s.report(Result{Kind: KindNotFound, Message: "Recognition is not running.", Count: s.store.Count()})
	case err != nil:
		return s.report(Result{Kind: KindOf(err), Message: fmt.Sprintf("Camera stopped with error: %v", err), Count: s.store.Count()})
	}
	return s.report(Result{OK: true, Message: stoppedMessage, Count: s.store.Count()})
}

// Status returns the message to display: the last result while it is
// fresh, the running notice during recognition, otherwise the idle prompt.
func (s *Service) Status() string {
	if msg := s.status.current(); msg != "" {
		return msg
	}
	if s.session != nil && s.session.Running() {
		return runningMessage
	}
	return constants.IdleMessage
}

func (s *Service) report(r Result) Result {
	s.status.show(r.Message)
	return r
}
