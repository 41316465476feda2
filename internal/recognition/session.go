package recognition

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-keeper/internal/capture"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("recognition is already running")

	// ErrNotRunning is returned by Stop when no session is active.
	ErrNotRunning = errors.New("recognition is not running")
)

// Session owns at most one running Loop at a time and keeps the latest
// annotated frame and the event stream across runs.
type Session struct {
	open    capture.Opener
	enc     capture.Encoder
	faces   Classifier
	opts    Options
	Events  *EventBroadcaster
	latest  atomic.Pointer[Frame]
	logger  *slog.Logger
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewSession creates an idle session.
func NewSession(open capture.Opener, enc capture.Encoder, faces Classifier, opts Options) *Session {
	opts.setDefaults()
	return &Session{
		open:   open,
		enc:    enc,
		faces:  faces,
		opts:   opts,
		Events: &EventBroadcaster{},
		logger: opts.Logger,
	}
}

// Start launches the loop in its own goroutine. The loop lives until Stop
// is called, parent is canceled or the camera fails.
func (s *Session) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.lastErr = nil

	loop := NewLoop(s.open, s.enc, s.faces, s.opts, s.Events, &s.latest)
	go func() {
		defer close(done)
		defer cancel()

		s.logger.Info("recognition started")
		s.Events.SendEvent(Event{Type: EventStarted, Message: "Recognition started"})

		err := loop.Run(ctx)

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("recognition stopped", "error", err)
			s.Events.SendEvent(Event{Type: EventError, Message: err.Error()})
		} else {
			s.logger.Info("recognition stopped")
		}
		s.Events.SendEvent(Event{Type: EventStopped, Message: "Recognition stopped"})
	}()
	return nil
}

// Stop cancels the running loop and waits until it has released the camera.
// It returns the error the loop ended with, if any.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.runningLocked() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return s.Err()
}

// Wait blocks until the current run, if any, has ended.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Session) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Err returns the error the last run ended with.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Latest returns the most recent annotated frame, or nil.
func (s *Session) Latest() *Frame {
	return s.latest.Load()
}
