// Package cache persists a linked executable keyed by its source's
// content hash, so a module that hasn't changed since the last compile
// skips lexing, parsing, resolution, inference, and lowering entirely.
// Grounded on the DB-store shape
// _examples/playbymail-ottomap/internal/stores/sqlite/store.go and
// _examples/playbymail-ottomap/stores/sqlite/sqlite.go use for their own
// SQLite-backed stores: `sql.Open("sqlite", path)` against
// `modernc.org/sqlite`'s pure-Go driver, an embedded schema applied once
// up front, and a thin wrapper type around *sql.DB.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/gob"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sodigy-lang/sodigy/internal/link"
)

//go:embed schema.sql
var schemaDDL string

// Store is a SQLite-backed cache of linked executables keyed by the hash
// of the source that produced them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a cache database at path. path may
// be ":memory:" for a process-local, non-persistent cache, which tests
// use instead of an on-disk file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %q: %w", path, err)
	}
	// A second connection to an unshared ":memory:" database (or to a
	// file under heavy concurrent writers) sees an empty/locked
	// database; one connection keeps every caller on the same SQLite
	// connection regardless of path.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Hash returns the cache key for a module's source bytes.
func Hash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Get returns the executable cached for hash, if one exists.
func (s *Store) Get(ctx context.Context, hash string) (*link.Executable, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT executable FROM ir_cache WHERE source_hash = ?`, hash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", hash, err)
	}

	var exe link.Executable
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&exe); err != nil {
		return nil, false, fmt.Errorf("cache: decode %q: %w", hash, err)
	}
	return &exe, true, nil
}

// Put stores exe under hash, replacing any executable previously cached
// for that hash.
func (s *Store) Put(ctx context.Context, hash string, exe *link.Executable) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(exe); err != nil {
		return fmt.Errorf("cache: encode %q: %w", hash, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ir_cache (source_hash, executable) VALUES (?, ?)
		 ON CONFLICT (source_hash) DO UPDATE SET executable = excluded.executable`,
		hash, buf.Bytes())
	if err != nil {
		return fmt.Errorf("cache: put %q: %w", hash, err)
	}
	return nil
}
