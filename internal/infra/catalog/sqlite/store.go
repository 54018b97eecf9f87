// Package sqlite stores catalog documents as JSON bucket payloads in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store keeps one row per (catalog name, bucket).
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and ensures the catalog table.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "fitcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS catalog (
		name TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (name, bucket)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveBuckets replaces every bucket stored under name.
func (s *Store) SaveBuckets(ctx context.Context, name string, buckets map[string][]byte) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog WHERE name = ?`, name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	keys := make([]string, 0, len(buckets))
	for bucket := range buckets {
		keys = append(keys, bucket)
	}
	sort.Strings(keys)
	for _, bucket := range keys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog(name, bucket, payload) VALUES(?, ?, ?)`, name, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("insert %s/%s: %w", name, bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadBuckets returns the buckets stored under name. An unknown name yields
// an empty map.
func (s *Store) LoadBuckets(ctx context.Context, name string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM catalog WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return out, nil
}

// Names lists stored catalog names in order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM catalog ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select names: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
