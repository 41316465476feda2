package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facestore"
)

// FaceBackend implements facestore.Backend on the faces table.
// Embeddings are stored as pgvector values (float32 precision).
type FaceBackend struct {
	pool *Pool
}

// NewFaceBackend creates a backend using pool.
func NewFaceBackend(pool *Pool) *FaceBackend {
	return &FaceBackend{pool: pool}
}

// Load reads all faces in position order. Returns facestore.ErrNoData when
// the database has never been saved.
func (b *FaceBackend) Load(ctx context.Context) ([]facestore.Record, error) {
	var version string
	err := b.pool.db.QueryRowContext(ctx, `SELECT value FROM face_store_meta WHERE key = 'version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, facestore.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("reading face store version: %w", err)
	}
	if v, err := strconv.Atoi(version); err != nil || v != constants.StoreFormatVersion {
		return nil, fmt.Errorf("%w: %q", facestore.ErrUnsupportedVersion, version)
	}

	rows, err := b.pool.db.QueryContext(ctx, `
		SELECT id, name, embedding, created_at
		FROM faces
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying faces: %w", err)
	}
	defer rows.Close()

	var records []facestore.Record
	for rows.Next() {
		var (
			r   facestore.Record
			vec pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &r.Name, &vec, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning face: %w", err)
		}
		r.Embedding = toFloat64(vec.Slice())
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating faces: %w", err)
	}
	return records, nil
}

// Save replaces every row in one transaction.
func (b *FaceBackend) Save(ctx context.Context, records []facestore.Record) error {
	tx, err := b.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM faces`); err != nil {
		return fmt.Errorf("clearing faces: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faces (position, id, name, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		vec := pgvector.NewVector(toFloat32(r.Embedding))
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Name, vec, r.CreatedAt); err != nil {
			return fmt.Errorf("inserting face %s: %w", r.Name, err)
		}
	}

	meta := map[string]string{
		"version":  strconv.Itoa(constants.StoreFormatVersion),
		"saved_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO face_store_meta (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`, key, value); err != nil {
			return fmt.Errorf("writing face store %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing faces: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
