package facestore

import "context"

// Backend persists the whole face database as one unit.
//
// Load returns ErrNoData when nothing has been persisted yet. Save must
// replace the persisted state atomically: after a failed Save the previously
// persisted data is still intact. Save must not retain the slice.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}
