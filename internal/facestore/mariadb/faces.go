package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/face-keeper/internal/constants"
	"github.com/kozaktomas/face-keeper/internal/facestore"
)

// FaceBackend implements facestore.Backend on the faces table.
// Embeddings are stored as JSON arrays, keeping full float64 precision.
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
	err := b.pool.db.QueryRowContext(ctx,
		`SELECT meta_value FROM face_store_meta WHERE meta_key = 'version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, facestore.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("reading face store version: %w", err)
	}
	if v, err := strconv.Atoi(version); err != nil || v != constants.StoreFormatVersion {
		return nil, fmt.Errorf("%w: %q", facestore.ErrUnsupportedVersion, version)
	}

	rows, err := b.pool.db.QueryContext(ctx,
		`SELECT id, name, embedding, created_at FROM faces ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying faces: %w", err)
	}
	defer rows.Close()

	var records []facestore.Record
	for rows.Next() {
		var (
			r    facestore.Record
			data []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning face: %w", err)
		}
		if r.Embedding, err = decodeEmbedding(data); err != nil {
			return nil, fmt.Errorf("%w: face %s: %w", facestore.ErrCorrupt, r.ID, err)
		}
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

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO faces (position, id, name, embedding, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		data, err := json.Marshal(r.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Name, data, r.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("inserting face %s: %w", r.Name, err)
		}
	}

	meta := map[string]string{
		"version":  strconv.Itoa(constants.StoreFormatVersion),
		"saved_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO face_store_meta (meta_key, meta_value) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)
		`, key, value); err != nil {
			return fmt.Errorf("writing face store %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing faces: %w", err)
	}
	return nil
}

func decodeEmbedding(data []byte) ([]float64, error) {
	var embedding []float64
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	if len(embedding) == 0 {
		return nil, errors.New("empty embedding")
	}
	return embedding, nil
}
