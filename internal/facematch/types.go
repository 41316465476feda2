// Package facematch provides face matching utilities shared between the face
// store, the recognition loop and the CLI: embedding distances, nearest
// neighbour lookup, name normalisation and bounding box geometry.
package facematch

// Metric names a distance function over face embeddings.
type Metric string

const (
	MetricEuclidean Metric = "euclidean" // dlib/face_recognition distance, tolerance ~0.4-0.6
	MetricCosine    Metric = "cosine"    // 1 - cosine similarity, range [0, 2]
)

// DistanceFunc returns the distance between two embeddings; lower is more similar.
type DistanceFunc func(a, b []float64) float64
