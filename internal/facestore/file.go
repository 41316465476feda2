package facestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-keeper/internal/constants"
)

// fileEnvelope is the on-disk layout. The slices are index-aligned: entry i
// of every slice describes record i.
type fileEnvelope struct {
	Version    int
	SavedAt    time.Time
	IDs        []string
	Names      []string
	Embeddings [][]float64
	CreatedAt  []time.Time
}

// FileBackend persists the database as a single gob file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend storing the database at path.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = constants.DefaultStorePath
	}
	return &FileBackend{path: path}
}

// Path returns the database file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads and decodes the database file.
func (b *FileBackend) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}

	var env fileEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCorrupt, b.path, err)
	}
	return env.records()
}

// Save encodes records and atomically replaces the database file.
func (b *FileBackend) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := newEnvelope(records, time.Now())
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
		return fmt.Errorf("encoding face database: %w", err)
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := renameio.WriteFile(b.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", b.path, err)
	}
	return nil
}

func newEnvelope(records []Record, now time.Time) fileEnvelope {
	env := fileEnvelope{
		Version:    constants.StoreFormatVersion,
		SavedAt:    now.UTC(),
		IDs:        make([]string, len(records)),
		Names:      make([]string, len(records)),
		Embeddings: make([][]float64, len(records)),
		CreatedAt:  make([]time.Time, len(records)),
	}
	for i, r := range records {
		env.IDs[i] = r.ID
		env.Names[i] = r.Name
		env.Embeddings[i] = r.Embedding
		env.CreatedAt[i] = r.CreatedAt
	}
	return env
}

func (env fileEnvelope) records() ([]Record, error) {
	if env.Version != constants.StoreFormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	n := len(env.Names)
	if len(env.IDs) != n || len(env.Embeddings) != n || len(env.CreatedAt) != n {
		return nil, fmt.Errorf("%w: misaligned face database: %d ids, %d names, %d embeddings, %d timestamps",
			ErrCorrupt, len(env.IDs), n, len(env.Embeddings), len(env.CreatedAt))
	}

	records := make([]Record, n)
	for i := range n {
		records[i] = Record{
			ID:        env.IDs[i],
			Name:      env.Names[i],
			Embedding: env.Embeddings[i],
			CreatedAt: env.CreatedAt[i],
		}
	}
	return records, nil
}
