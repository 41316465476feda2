package facematch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Euclidean computes the L2 distance between two embeddings.
// Embeddings of different (or zero) length are infinitely far apart.
func Euclidean(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// Cosine computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := floats.Dot(a, b) / (normA * normB)
	// Clamp to [-1, 1] to handle floating point errors
	similarity = max(-1, min(1, similarity))

	return 1 - similarity
}

// ParseMetric resolves a metric name to its distance function.
func ParseMetric(name string) (DistanceFunc, error) {
	switch Metric(name) {
	case MetricEuclidean, "":
		return Euclidean, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q", name)
	}
}

// Nearest finds the known embedding closest to the candidate.
// Returns its index and distance, or -1 and +Inf when known is empty.
// Ties resolve to the lowest index.
func Nearest(known [][]float64, candidate []float64, distance DistanceFunc) (int, float64) {
	best := -1
	bestDistance := math.Inf(1)
	for i, emb := range known {
		if d := distance(emb, candidate); d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	return best, bestDistance
}
