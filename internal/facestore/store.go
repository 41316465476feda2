package facestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facematch"
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Tolerance   float64
	Metric      facematch.Metric
	SaveTimeout time.Duration
	UseIndex    bool // narrow Classify candidates with an HNSW graph
	Logger      *slog.Logger
	Now         func() time.Time
}

// Store is the in-memory face database backed by a Backend.
//
// All methods are safe for concurrent use. Reads (IsDuplicate, Classify,
// List, Count, Records) share a read lock; mutations hold the write lock
// until the backend has persisted the new state.
type Store struct {
	mu       sync.RWMutex
	backend  Backend
	records  []Record
	index    *Index
	distance facematch.DistanceFunc

	// loaded is set once the records reflect the backend. keepBackend marks
	// an unreadable backend that has not been overwritten yet.
	loaded      bool
	keepBackend bool

	tolerance   float64
	saveTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an empty store. Call Load to read persisted records.
func New(backend Backend, opts Options) (*Store, error) {
	distance, err := facematch.ParseMetric(string(opts.Metric))
	if err != nil {
		return nil, err
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = constants.DefaultTolerance
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = constants.DefaultSaveTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		backend:     backend,
		distance:    distance,
		tolerance:   opts.Tolerance,
		saveTimeout: opts.SaveTimeout,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if opts.UseIndex {
		s.index = NewIndex(opts.Metric)
	}
	return s, nil
}

// Tolerance returns the match threshold in use.
func (s *Store) Tolerance() float64 {
	return s.tolerance
}

// Load reads the backend at startup. It never fails: missing data yields an
// empty database with LoadMissing, undecodable data an empty database with
// LoadCorrupt. An unreachable backend (LoadUnavailable) leaves the store
// unloaded and every save fails with ErrNotLoaded until a later load works.
func (s *Store) Load(ctx context.Context) LoadReport {
	return s.load(ctx, false)
}

// Reload re-reads the backend. Unlike Load it keeps the current records
// when the backend cannot be read, so a failed reload never empties the
// database.
func (s *Store) Reload(ctx context.Context) LoadReport {
	return s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, keepOnFailure bool) LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.Load(ctx)
	if err == nil {
		if verr := validateRecords(records); verr != nil {
			err = fmt.Errorf("%w: %w", ErrCorrupt, verr)
		}
	}

	switch {
	case err == nil:
		s.replaceLocked(records, false)
		s.logger.Info("face database loaded", "faces", len(records))
		return LoadReport{State: LoadOK, Count: len(records)}

	case errors.Is(err, ErrNoData):
		s.replaceLocked(nil, false)
		s.logger.Info("no face database found, starting empty")
		return LoadReport{State: LoadMissing}

	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrUnsupportedVersion):
		if keepOnFailure {
			s.logger.Error("face database unreadable, keeping current faces", "faces", len(s.records), "error", err)
			return LoadReport{State: LoadCorrupt, Count: len(s.records), Err: err}
		}
		// The unreadable data stays on disk until the first successful mutation.
		s.replaceLocked(nil, true)
		s.logger.Error("face database unreadable, starting empty", "error", err)
		return LoadReport{State: LoadCorrupt, Err: err}

	default:
		s.logger.Error("face database unavailable", "faces", len(s.records), "error", err)
		return LoadReport{State: LoadUnavailable, Count: len(s.records), Err: err}
	}
}

func (s *Store) replaceLocked(records []Record, keepBackend bool) {
	s.records = records
	s.loaded = true
	s.keepBackend = keepBackend
	if s.index != nil {
		s.index.Build(s.records)
	}
}

// IsDuplicate reports whether candidate is within tolerance of any stored
// embedding. An empty database has no duplicates.
func (s *Store) IsDuplicate(candidate []float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, _, dup := s.nearestLocked(candidate)
	return dup
}

// nearestLocked scans every record. It returns the index of the closest
// record (-1 when empty), its distance and whether it is a duplicate.
func (s *Store) nearestLocked(candidate []float64) (int, float64, bool) {
	idx, dist := facematch.Nearest(s.embeddingsLocked(), candidate, s.distance)
	if idx < 0 {
		return -1, dist, false
	}
	s.logger.Debug("nearest face", "name", s.records[idx].Name, "distance", dist)
	return idx, dist, dist <= s.tolerance
}

func (s *Store) embeddingsLocked() [][]float64 {
	known := make([][]float64, len(s.records))
	for i, r := range s.records {
		known[i] = r.Embedding
	}
	return known
}

// Add appends a new record and persists the database.
//
// A blank name is replaced with "Person_<count+1>". If the embedding is within
// tolerance of a stored one, ErrDuplicateFace is returned and nothing changes.
// If persisting fails the record is removed again and the error wraps
// ErrPersistence.
func (s *Store) Add(ctx context.Context, embedding []float64, name string) (Record, error) {
	if len(embedding) == 0 {
		return Record{}, fmt.Errorf("%w: empty embedding", ErrInvalidEmbedding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) > 0 && len(s.records[0].Embedding) != len(embedding) {
		return Record{}, fmt.Errorf("%w: got %d values, database uses %d",
			ErrInvalidEmbedding, len(embedding), len(s.records[0].Embedding))
	}
	if idx, dist, dup := s.nearestLocked(embedding); dup {
		return Record{}, fmt.Errorf("%w: matches %q at distance %.3f", ErrDuplicateFace, s.records[idx].Name, dist)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s%d", constants.AutoNamePrefix, len(s.records)+1)
	}
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Embedding: slices.Clone(embedding),
		CreatedAt: s.now().UTC(),
	}

	prev := s.records
	s.records = append(slices.Clip(prev), rec)
	if err := s.saveLocked(ctx); err != nil {
		s.records = prev
		s.logger.Error("adding face failed, rolled back", "name", name, "error", err)
		return Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.index != nil {
		s.index.Add(rec)
	}
	s.logger.Info("face added", "name", name, "id", rec.ID, "faces", len(s.records))
	return rec.clone(), nil
}

// Delete removes the first record whose name equals name exactly. Names are
// not unique, so later records with the same name are kept. If persisting
// fails the record is restored at its position and the error wraps
// ErrPersistence.
func (s *Store) Delete(ctx context.Context, name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.records, func(r Record) bool { return r.Name == name })
	if idx < 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	removed := s.records[idx]

	prev := s.records
	s.records = slices.Delete(slices.Clone(prev), idx, idx+1)
	if err := s.saveLocked(ctx); err != nil {
		s.records = prev
		s.logger.Error("deleting face failed, rolled back", "name", name, "error", err)
		return Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.index != nil {
		s.index.Build(s.records)
	}
	s.logger.Info("face deleted", "name", name, "id", removed.ID, "faces", len(s.records))
	return removed.clone(), nil
}

// Flush persists the current state. After a corrupt load with no changes
// since, the unreadable data is left in place.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keepBackend {
		s.logger.Warn("face database unreadable and unchanged, not overwriting it")
		return nil
	}
	if err := s.saveLocked(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Store) saveLocked(ctx context.Context) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	ctx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()
	if err := s.backend.Save(ctx, s.records); err != nil {
		return err
	}
	s.keepBackend = false
	return nil
}

// Classify labels embedding with the nearest record's name when the distance
// is below tolerance, otherwise with "Unknown". It never mutates the store.
func (s *Store) Classify(embedding []float64) Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index != nil && s.index.Len() > constants.HNSWSearchCandidates {
		return s.classifyIndexedLocked(embedding)
	}

	idx, dist := facematch.Nearest(s.embeddingsLocked(), embedding, s.distance)
	return s.matchFor(idx, dist, func(i int) Record { return s.records[i] })
}

func (s *Store) classifyIndexedLocked(embedding []float64) Match {
	candidates := s.index.Candidates(embedding, constants.HNSWSearchCandidates)
	known := make([][]float64, len(candidates))
	for i, r := range candidates {
		known[i] = r.Embedding
	}
	idx, dist := facematch.Nearest(known, embedding, s.distance)
	return s.matchFor(idx, dist, func(i int) Record { return candidates[i] })
}

func (s *Store) matchFor(idx int, dist float64, record func(int) Record) Match {
	if idx < 0 || dist >= s.tolerance {
		return Match{Name: constants.UnknownLabel, Distance: dist}
	}
	r := record(idx)
	return Match{Known: true, Name: r.Name, ID: r.ID, Distance: dist}
}

// List returns the record names in storage order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.records))
	for i, r := range s.records {
		names[i] = r.Name
	}
	return names
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns deep copies of all records in storage order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}
