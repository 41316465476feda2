package facestore

import "errors"

var (
	// ErrDuplicateFace is returned when a candidate embedding is within
	// tolerance of a stored one. The database is left unchanged.
	ErrDuplicateFace = errors.New("face is already in the database")

	// ErrNotFound is returned by Delete when no record has the given name.
	ErrNotFound = errors.New("face not found")

	// ErrInvalidEmbedding is returned for empty embeddings or embeddings
	// whose dimension differs from the stored ones.
	ErrInvalidEmbedding = errors.New("invalid face embedding")

	// ErrPersistence wraps backend failures. A mutation that fails to
	// persist is rolled back before this error is returned.
	ErrPersistence = errors.New("failed to persist face database")

	// ErrNoData is returned by a Backend that has nothing persisted yet.
	ErrNoData = errors.New("no face database persisted")

	// ErrCorrupt is wrapped by backends when persisted data exists but
	// cannot be decoded.
	ErrCorrupt = errors.New("face database is corrupt")

	// ErrNotLoaded is returned when a save would replace persisted data the
	// store has never read.
	ErrNotLoaded = errors.New("face database not loaded")

	// ErrUnsupportedVersion is returned when persisted data has an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported face database version")
)
