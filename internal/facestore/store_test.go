package facestore_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/kozaktomas/face-keeper/internal/facematch"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/facestore/mock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, backend facestore.Backend, opts facestore.Options) *facestore.Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s, err := facestore.New(backend, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Load(context.Background())
	return s
}

// emb returns a 4-dimensional embedding along one axis, scaled by v.
func emb(axis int, v float64) []float64 {
	e := make([]float64, 4)
	e[axis] = v
	return e
}

func TestNew_UnknownMetric(t *testing.T) {
	_, err := facestore.New(mock.NewMockBackend(), facestore.Options{Metric: "manhattan"})
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestStore_Defaults(t *testing.T) {
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})
	if s.Tolerance() != 0.5 {
		t.Errorf("Tolerance() = %v, want 0.5", s.Tolerance())
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestLoad_States(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		s, _ := facestore.New(mock.NewMockBackend(), facestore.Options{Logger: quietLogger()})
		report := s.Load(ctx)
		if report.State != facestore.LoadMissing || report.Err != nil {
			t.Errorf("report = %+v, want missing without error", report)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		backend := mock.NewMockBackend()
		backend.LoadError = fmt.Errorf("%w: unexpected EOF", facestore.ErrCorrupt)
		s, _ := facestore.New(backend, facestore.Options{Logger: quietLogger()})
		report := s.Load(ctx)
		if report.State != facestore.LoadCorrupt || report.Err == nil {
			t.Errorf("report = %+v, want corrupt with error", report)
		}
		if s.Count() != 0 {
			t.Errorf("Count() = %d, want 0", s.Count())
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		backend := mock.NewMockBackend()
		backend.LoadError = errors.New("dial tcp: connection refused")
		s, _ := facestore.New(backend, facestore.Options{Logger: quietLogger()})
		report := s.Load(ctx)
		if report.State != facestore.LoadUnavailable || report.Err == nil {
			t.Errorf("report = %+v, want unavailable with error", report)
		}
	})

	t.Run("mixed dimensions are corrupt", func(t *testing.T) {
		backend := mock.NewMockBackend()
		backend.Seed(
			facestore.Record{ID: "a", Name: "Alice", Embedding: emb(0, 1)},
			facestore.Record{ID: "b", Name: "Bob", Embedding: []float64{1, 2}},
		)
		s, _ := facestore.New(backend, facestore.Options{Logger: quietLogger()})
		if report := s.Load(ctx); report.State != facestore.LoadCorrupt {
			t.Errorf("State = %v, want corrupt", report.State)
		}
	})

	t.Run("ok", func(t *testing.T) {
		backend := mock.NewMockBackend()
		backend.Seed(
			facestore.Record{ID: "a", Name: "Alice", Embedding: emb(0, 1)},
			facestore.Record{ID: "b", Name: "Bob", Embedding: emb(1, 1)},
		)
		s, _ := facestore.New(backend, facestore.Options{Logger: quietLogger()})
		report := s.Load(ctx)
		if report.State != facestore.LoadOK || report.Count != 2 {
			t.Errorf("report = %+v, want ok with 2 faces", report)
		}
		if got := s.List(); !slices.Equal(got, []string{"Alice", "Bob"}) {
			t.Errorf("List() = %v", got)
		}
	})
}

func TestIsDuplicate(t *testing.T) {
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})
	if s.IsDuplicate(emb(0, 1)) {
		t.Error("empty database reported a duplicate")
	}

	if _, err := s.Add(context.Background(), emb(0, 1), "Alice"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name      string
		candidate []float64
		want      bool
	}{
		{"identical", emb(0, 1), true},
		{"inside tolerance", emb(0, 1.3), true},
		{"on tolerance", emb(0, 1.5), true},
		{"outside tolerance", emb(0, 1.6), false},
		{"other axis", emb(1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsDuplicate(tt.candidate); got != tt.want {
				t.Errorf("IsDuplicate(%v) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, backend, facestore.Options{Now: func() time.Time { return now }})

	rec, err := s.Add(ctx, emb(0, 1), "  Alice ")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if rec.Name != "Alice" || rec.ID == "" || !rec.CreatedAt.Equal(now) {
		t.Errorf("record = %+v", rec)
	}
	if got := s.List(); !slices.Equal(got, []string{"Alice"}) {
		t.Errorf("List() = %v", got)
	}
	if backend.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", backend.Saves())
	}
	if persisted := backend.Persisted(); len(persisted) != 1 || persisted[0].ID != rec.ID {
		t.Errorf("persisted = %+v", persisted)
	}

	rec.Embedding[0] = 99
	if got := s.Records()[0].Embedding[0]; got != 1 {
		t.Errorf("returned record shares embedding with store, got %v", got)
	}
}

func TestAdd_AutoName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})

	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}
	rec, err := s.Add(ctx, emb(1, 1), "")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Person_2" {
		t.Errorf("Name = %q, want Person_2", rec.Name)
	}
	rec, err = s.Add(ctx, emb(2, 1), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Person_3" {
		t.Errorf("Name = %q, want Person_3", rec.Name)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	s := newStore(t, backend, facestore.Options{})

	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Add(ctx, emb(0, 1.2), "Alice again")
	if !errors.Is(err, facestore.ErrDuplicateFace) {
		t.Fatalf("error = %v, want ErrDuplicateFace", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
	if backend.Saves() != 1 {
		t.Errorf("duplicate add persisted, Saves() = %d", backend.Saves())
	}
}

func TestAdd_InvalidEmbedding(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})

	if _, err := s.Add(ctx, nil, "Nobody"); !errors.Is(err, facestore.ErrInvalidEmbedding) {
		t.Errorf("empty embedding error = %v", err)
	}
	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, []float64{5, 5}, "Short"); !errors.Is(err, facestore.ErrInvalidEmbedding) {
		t.Errorf("dimension mismatch error = %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestAdd_PersistenceFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	s := newStore(t, backend, facestore.Options{})

	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}

	backend.SaveError = errors.New("disk full")
	_, err := s.Add(ctx, emb(1, 1), "Bob")
	if !errors.Is(err, facestore.ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
	if got := s.List(); !slices.Equal(got, []string{"Alice"}) {
		t.Errorf("List() = %v", got)
	}

	// Bob was rolled back, so adding him again is not a duplicate.
	backend.SaveError = nil
	if _, err := s.Add(ctx, emb(1, 1), "Bob"); err != nil {
		t.Errorf("Add() after rollback error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	s := newStore(t, backend, facestore.Options{})

	for i, name := range []string{"Alice", "Bob", "Alice"} {
		if _, err := s.Add(ctx, emb(i, 1), name); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Delete(ctx, "Alice")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed.Embedding[0] != 1 {
		t.Errorf("removed %+v, want the first Alice", removed)
	}
	if got := s.List(); !slices.Equal(got, []string{"Bob", "Alice"}) {
		t.Errorf("List() = %v", got)
	}
	if got := len(backend.Persisted()); got != 2 {
		t.Errorf("persisted %d records, want 2", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})
	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"Bob", "alice", "Alice "} {
		if _, err := s.Delete(ctx, name); !errors.Is(err, facestore.ErrNotFound) {
			t.Errorf("Delete(%q) error = %v, want ErrNotFound", name, err)
		}
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestDelete_PersistenceFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	s := newStore(t, backend, facestore.Options{})

	for i, name := range []string{"Alice", "Bob", "Carol"} {
		if _, err := s.Add(ctx, emb(i, 1), name); err != nil {
			t.Fatal(err)
		}
	}

	backend.SaveError = errors.New("read-only file system")
	if _, err := s.Delete(ctx, "Bob"); !errors.Is(err, facestore.ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	if got := s.List(); !slices.Equal(got, []string{"Alice", "Bob", "Carol"}) {
		t.Errorf("List() = %v, want original order", got)
	}
	if m := s.Classify(emb(1, 1)); m.Name != "Bob" {
		t.Errorf("Classify() = %+v, want Bob", m)
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	for _, useIndex := range []bool{false, true} {
		t.Run(map[bool]string{false: "linear", true: "hnsw"}[useIndex], func(t *testing.T) {
			s := newStore(t, mock.NewMockBackend(), facestore.Options{UseIndex: useIndex})

			if m := s.Classify(emb(0, 1)); m.Known || m.Name != "Unknown" || !math.IsInf(m.Distance, 1) {
				t.Errorf("empty database Classify() = %+v", m)
			}

			// Enough records to exercise the index path.
			names := []string{"Alice", "Bob", "Carol", "Dave"}
			for i, name := range names {
				for j := range 3 {
					e := emb(i, float64(2*j+1))
					if _, err := s.Add(ctx, e, name); err != nil {
						t.Fatalf("Add(%s) error = %v", name, err)
					}
				}
			}

			m := s.Classify(emb(2, 3))
			if !m.Known || m.Name != "Carol" || m.Distance != 0 || m.ID == "" {
				t.Errorf("identical Classify() = %+v, want Carol at 0", m)
			}

			far := []float64{20, 20, 20, 20}
			if m := s.Classify(far); m.Known || m.Name != "Unknown" || m.ID != "" {
				t.Errorf("far Classify() = %+v, want Unknown", m)
			}

			if _, err := s.Delete(ctx, "Carol"); err != nil {
				t.Fatal(err)
			}
			if m := s.Classify(emb(2, 1)); m.Known {
				t.Errorf("deleted face still classified: %+v", m)
			}
		})
	}
}

func TestClassify_StrictlyBelowTolerance(t *testing.T) {
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})
	if _, err := s.Add(context.Background(), emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}
	if m := s.Classify(emb(0, 1.5)); m.Known {
		t.Errorf("distance equal to tolerance classified as %+v", m)
	}
	if m := s.Classify(emb(0, 1.4)); !m.Known {
		t.Errorf("distance below tolerance classified as %+v", m)
	}
}

func TestClassify_Cosine(t *testing.T) {
	s := newStore(t, mock.NewMockBackend(), facestore.Options{Metric: facematch.MetricCosine, Tolerance: 0.1})
	if _, err := s.Add(context.Background(), []float64{1, 0, 0, 0}, "Alice"); err != nil {
		t.Fatal(err)
	}
	if m := s.Classify([]float64{5, 0.1, 0, 0}); m.Name != "Alice" {
		t.Errorf("scaled embedding Classify() = %+v, want Alice", m)
	}
}

func TestRecordsAreCopies(t *testing.T) {
	s := newStore(t, mock.NewMockBackend(), facestore.Options{})
	if _, err := s.Add(context.Background(), emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}
	records := s.Records()
	records[0].Name = "Mallory"
	records[0].Embedding[0] = 42
	names := s.List()
	names[0] = "Eve"

	if got := s.Records()[0]; got.Name != "Alice" || got.Embedding[0] != 1 {
		t.Errorf("store mutated through copies: %+v", got)
	}
}

func TestFlushAndReload(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	s := newStore(t, backend, facestore.Options{})
	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatal(err)
	}

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if backend.Saves() != 2 {
		t.Errorf("Saves() = %d, want 2", backend.Saves())
	}

	backend.Seed(facestore.Record{ID: "x", Name: "Zed", Embedding: emb(3, 1)})
	if report := s.Reload(ctx); report.State != facestore.LoadOK {
		t.Fatalf("Reload() = %+v", report)
	}
	if got := s.List(); !slices.Equal(got, []string{"Zed"}) {
		t.Errorf("List() after reload = %v", got)
	}

	backend.SaveError = errors.New("boom")
	if err := s.Flush(ctx); !errors.Is(err, facestore.ErrPersistence) {
		t.Errorf("Flush() error = %v, want ErrPersistence", err)
	}
}

func TestSaveTimeout(t *testing.T) {
	backend := &slowBackend{delay: time.Second}
	s := newStore(t, backend, facestore.Options{SaveTimeout: 10 * time.Millisecond})

	_, err := s.Add(context.Background(), emb(0, 1), "Alice")
	if !errors.Is(err, facestore.ErrPersistence) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want persistence deadline error", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

type slowBackend struct {
	delay time.Duration
}

func (b *slowBackend) Load(context.Context) ([]facestore.Record, error) {
	return nil, facestore.ErrNoData
}

func (b *slowBackend) Save(ctx context.Context, _ []facestore.Record) error {
	select {
	case <-time.After(b.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestLoad_UnavailableRefusesSaves(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewMockBackend()
	backend.LoadError = errors.New("dial tcp: connection refused")
	s, _ := facestore.New(backend, facestore.Options{Logger: quietLogger()})
	s.Load(ctx)

	_, err := s.Add(ctx, emb(0, 1), "Alice")
	if !errors.Is(err, facestore.ErrPersistence) || !errors.Is(err, facestore.ErrNotLoaded) {
		t.Fatalf("Add() error = %v, want ErrNotLoaded", err)
	}
	if err := s.Flush(ctx); !errors.Is(err, facestore.ErrNotLoaded) {
		t.Errorf("Flush() error = %v, want ErrNotLoaded", err)
	}
	if backend.Saves() != 0 || s.Count() != 0 {
		t.Errorf("saves = %d, count = %d, want nothing written", backend.Saves(), s.Count())
	}

	backend.LoadError = nil
	backend.Seed(facestore.Record{ID: "b", Name: "Bob", Embedding: emb(1, 1)})
	if report := s.Reload(ctx); report.State != facestore.LoadOK {
		t.Fatalf("Reload() = %+v", report)
	}
	if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
		t.Fatalf("Add() after reload error = %v", err)
	}
	if got := s.List(); !slices.Equal(got, []string{"Bob", "Alice"}) {
		t.Errorf("List() = %v", got)
	}
}

func TestReload_FailureKeepsFaces(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		loadError error
		wantState facestore.LoadState
	}{
		{"unavailable", errors.New("connection reset by peer"), facestore.LoadUnavailable},
		{"canceled", context.Canceled, facestore.LoadUnavailable},
		{"corrupt", fmt.Errorf("%w: bad bytes", facestore.ErrCorrupt), facestore.LoadCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := mock.NewMockBackend()
			s := newStore(t, backend, facestore.Options{})
			if _, err := s.Add(ctx, emb(0, 1), "Alice"); err != nil {
				t.Fatal(err)
			}

			backend.LoadError = tt.loadError
			report := s.Reload(ctx)
			if report.State != tt.wantState || report.Err == nil || report.Count != 1 {
				t.Errorf("Reload() = %+v, want %v keeping 1 face", report, tt.wantState)
			}
			if got := s.List(); !slices.Equal(got, []string{"Alice"}) {
				t.Errorf("List() = %v after failed reload", got)
			}

			if err := s.Flush(ctx); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			if got := backend.Persisted(); len(got) != 1 || got[0].Name != "Alice" {
				t.Errorf("persisted %+v, want Alice kept", got)
			}
		})
	}
}
