// Package recognition runs the live recognition loop: it reads frames from
// a camera, classifies every detected face against the face store and
// publishes annotated frames.
package recognition

import (
	"context"
	"image"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facematch"
	"github.com/kozaktomas/face-keeper/internal/facestore"
)

// Classifier labels an embedding without modifying the database.
type Classifier interface {
	Classify(embedding []float64) facestore.Match
}

// Options tunes the loop. Zero values select the defaults, except
// FrameInterval where zero means no pause between frames.
type Options struct {
	ProcessEveryN int
	DetectScale   float64
	FrameInterval time.Duration
	Width         int
	Height        int
	Logger        *slog.Logger
}

func (o *Options) setDefaults() {
	if o.ProcessEveryN <= 0 {
		o.ProcessEveryN = constants.DefaultProcessEveryN
	}
	if o.DetectScale <= 0 || o.DetectScale > 1 {
		o.DetectScale = constants.DefaultDetectScale
	}
	if o.FrameInterval < 0 {
		o.FrameInterval = 0
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = constants.DisplayWidth, constants.DisplayHeight
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Frame is an annotated output frame.
type Frame struct {
	Seq   uint64
	At    time.Time
	JPEG  []byte
	Faces []Label
}

// Loop is a single-use recognition run. Create one per session.
type Loop struct {
	open   capture.Opener
	enc    capture.Encoder
	faces  Classifier
	opts   Options
	events *EventBroadcaster
	latest *atomic.Pointer[Frame]
}

// NewLoop creates a loop. latest receives every annotated frame and events
// receives face changes; both may be shared across loops.
func NewLoop(open capture.Opener, enc capture.Encoder, faces Classifier, opts Options,
	events *EventBroadcaster, latest *atomic.Pointer[Frame]) *Loop {
	opts.setDefaults()
	if events == nil {
		events = &EventBroadcaster{}
	}
	if latest == nil {
		latest = &atomic.Pointer[Frame]{}
	}
	return &Loop{open: open, enc: enc, faces: faces, opts: opts, events: events, latest: latest}
}

// Run captures until ctx is canceled or the camera fails. Cancellation is
// a normal stop and returns nil. The camera is closed before Run returns on
// every path.
func (l *Loop) Run(ctx context.Context) error {
	cam, err := l.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return capture.Unavailable(err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			l.opts.Logger.Warn("closing camera", "error", err)
		}
	}()

	var (
		labels []Label
		seq    uint64
	)
	for n := 0; ; n++ {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := cam.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return capture.Unavailable(err)
		}

		if n%l.opts.ProcessEveryN == 0 {
			next, err := l.detect(frame)
			if err != nil {
				l.opts.Logger.Warn("face detection failed", "error", err)
			} else {
				if !sameFaces(labels, next) {
					l.events.SendEvent(Event{Type: EventFaces, Data: next})
				}
				labels = next
			}
		}

		if err := l.publish(frame, labels, &seq); err != nil {
			l.opts.Logger.Warn("publishing frame failed", "error", err)
		}

		if l.opts.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.opts.FrameInterval):
			}
		}
	}
}

// detect finds faces on a downscaled copy of frame and classifies them.
// Boxes are returned in frame coordinates.
func (l *Loop) detect(frame image.Image) ([]Label, error) {
	small := capture.Scale(frame, l.opts.DetectScale)
	detections, err := l.enc.DetectAndEncode(small)
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 0, len(detections))
	for _, d := range detections {
		m := l.faces.Classify(d.Embedding)
		box := facematch.ScaleRect(d.Box.Sub(small.Bounds().Min), 1/l.opts.DetectScale).Add(frame.Bounds().Min)
		labels = append(labels, Label{Box: box, Name: m.Name, Known: m.Known, Distance: m.Distance})
	}
	return labels, nil
}

func (l *Loop) publish(frame image.Image, labels []Label, seq *uint64) error {
	out := Annotate(frame, labels, l.opts.Width, l.opts.Height)
	data, err := capture.EncodeJPEG(out, constants.JPEGQuality)
	if err != nil {
		return err
	}
	*seq++
	l.latest.Store(&Frame{Seq: *seq, At: time.Now(), JPEG: data, Faces: slices.Clone(labels)})
	return nil
}

func sameFaces(a, b []Label) bool {
	return slices.EqualFunc(a, b, func(x, y Label) bool {
		return x.Name == y.Name && x.Known == y.Known
	})
}
