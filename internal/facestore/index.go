package facestore

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facematch"
)

// Index wraps an HNSW graph over the stored embeddings. It only narrows the
// candidate set; callers re-rank the candidates with the exact metric.
type Index struct {
	graph    *hnsw.Graph[string]
	distance hnsw.DistanceFunc
	idToFace map[string]Record // Maps graph node key to record
	mu       sync.RWMutex
}

// NewIndex creates an empty index using the graph distance matching metric.
func NewIndex(metric facematch.Metric) *Index {
	distance := hnsw.EuclideanDistance
	if metric == facematch.MetricCosine {
		distance = hnsw.CosineDistance
	}
	return &Index{
		distance: distance,
		idToFace: make(map[string]Record),
	}
}

func (x *Index) newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = x.distance
	return g
}

// Build replaces the index contents with records.
func (x *Index) Build(records []Record) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.idToFace = make(map[string]Record, len(records))
	if len(records) == 0 {
		x.graph = nil
		return
	}

	g := x.newGraph()
	for _, r := range records {
		g.Add(hnsw.MakeNode(r.ID, toFloat32(r.Embedding)))
		x.idToFace[r.ID] = r
	}
	x.graph = g
}

// Add inserts a single record.
func (x *Index) Add(r Record) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = x.newGraph()
	}
	x.graph.Add(hnsw.MakeNode(r.ID, toFloat32(r.Embedding)))
	x.idToFace[r.ID] = r
}

// Candidates returns up to k records near query, in no particular order.
// Keys no longer present in the record map are skipped.
func (x *Index) Candidates(query []float64, k int) []Record {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Len() == 0 {
		return nil
	}

	neighbors := x.graph.Search(toFloat32(query), k)
	out := make([]Record, 0, len(neighbors))
	for _, n := range neighbors {
		if r, ok := x.idToFace[n.Key]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToFace)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
