// Package facestore owns the database of known faces: an ordered collection
// of (embedding, name) records persisted through a Backend.
package facestore

import (
	"fmt"
	"slices"
	"time"
)

// Record pairs one face embedding with its display name.
type Record struct {
	ID        string
	Name      string
	Embedding []float64
	CreatedAt time.Time
}

func (r Record) clone() Record {
	r.Embedding = slices.Clone(r.Embedding)
	return r
}

// Match is the result of classifying an embedding against the database.
type Match struct {
	Known    bool    // true when a record is within tolerance
	Name     string  // record name, or "Unknown"
	ID       string  // record ID, empty when unknown
	Distance float64 // distance to the nearest record, +Inf for an empty database
}

// LoadState tells how a Load ended.
type LoadState int

const (
	LoadOK      LoadState = iota // records read from the backend
	LoadMissing                  // nothing persisted yet, empty database
	LoadCorrupt                  // backend data undecodable
	LoadUnavailable              // backend not reachable, state unchanged
)

func (s LoadState) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadMissing:
		return "missing"
	case LoadCorrupt:
		return "corrupt"
	case LoadUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// LoadReport describes the outcome of Load or Reload. Err is set for
// LoadCorrupt and LoadUnavailable.
type LoadReport struct {
	State LoadState
	Count int
	Err   error
}

// validateRecords checks the invariants every loaded database must satisfy.
func validateRecords(records []Record) error {
	dim := 0
	for i, r := range records {
		if r.Name == "" {
			return fmt.Errorf("record %d has no name", i)
		}
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %d (%s) has no embedding", i, r.Name)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return fmt.Errorf("record %d (%s) has %d values, expected %d", i, r.Name, len(r.Embedding), dim)
		}
	}
	return nil
}
