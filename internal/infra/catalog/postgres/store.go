// Package postgres stores catalog documents as JSONB bucket payloads in
// Postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/fitcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps one row per (catalog name, bucket).
type Store struct {
	db *sql.DB
}

// Open connects using dsn (falling back to a local default) and ensures the
// catalog table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureCatalogTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func ensureCatalogTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS catalog (
		name TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (name, bucket)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure catalog table: %w", err)
	}
	return nil
}

// SaveBuckets replaces every bucket stored under name in one transaction.
func (s *Store) SaveBuckets(ctx context.Context, name string, buckets map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog WHERE name = $1`, name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	keys := make([]string, 0, len(buckets))
	for bucket := range buckets {
		keys = append(keys, bucket)
	}
	sort.Strings(keys)
	for _, bucket := range keys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog(name,bucket,payload) VALUES($1,$2,$3) ON CONFLICT(name,bucket) DO UPDATE SET payload=EXCLUDED.payload`, name, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", name, bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// LoadBuckets returns the buckets stored under name. An unknown name yields
// an empty map.
func (s *Store) LoadBuckets(ctx context.Context, name string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM catalog WHERE name = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
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
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
