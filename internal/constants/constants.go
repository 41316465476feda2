// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultTolerance is the canonical maximum embedding distance for two
	// embeddings to be treated as the same identity (euclidean metric).
	// Lower values = stricter matching
	DefaultTolerance = 0.5

	// UnknownLabel is the label used for detected faces that match no record
	UnknownLabel = "Unknown"

	// AutoNamePrefix is used to synthesize names for faces added without one
	AutoNamePrefix = "Person_"
)

// Storage constants
const (
	// DefaultStorePath is the default location of the face database file
	DefaultStorePath = "known_faces.gob"

	// DefaultSaveTimeout bounds a single persistence round trip
	DefaultSaveTimeout = 5 * time.Second

	// StoreFormatVersion is the version written into the face database file
	StoreFormatVersion = 1
)

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWSearchCandidates is the number of candidates re-ranked with the exact metric.
	HNSWSearchCandidates = 8
)

// Recognition loop constants
const (
	// DefaultProcessEveryN runs detection on every Nth frame, reusing labels in between
	DefaultProcessEveryN = 2

	// DefaultDetectScale is the factor frames are scaled by before detection
	DefaultDetectScale = 0.25

	// DefaultFrameInterval is the pause between two processed frames
	DefaultFrameInterval = 100 * time.Millisecond

	// DisplayWidth and DisplayHeight are the dimensions of annotated output frames
	DisplayWidth  = 640
	DisplayHeight = 360

	// JPEGQuality is used when encoding annotated frames and enrollment images
	JPEGQuality = 85

	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1920
)

// Presentation constants
const (
	// IdleMessage is shown when no operation result is being displayed
	IdleMessage = "Click a button to begin."

	// DefaultStatusDisplay is how long an operation result stays visible
	DefaultStatusDisplay = 3 * time.Second
)
