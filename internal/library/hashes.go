package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HashSighting is one ledger entry: a content hash observed at a path.
type HashSighting struct {
	Hash   string
	Path   string
	Size   int64
	Slug   string
	SeenAt int64
}

// RecordHash registers a content hash sighting. The path may be a bucket
// path for files that were discarded before reaching the vault.
func (c *Catalog) RecordHash(hash, path string, size int64, slug string) error {
	return recordHash(c.db, hash, path, size, slug, time.Now().Unix())
}

// SeenHash returns the most recent sighting of a content hash, or nil when
// the hash has never been through intake.
func (c *Catalog) SeenHash(hash string) (*HashSighting, error) {
	row := c.db.QueryRow(`
		SELECT hash, path, size, slug, seen_at FROM file_hashes
		WHERE hash = ?
		ORDER BY seen_at DESC, path
		LIMIT 1`, hash)

	var s HashSighting
	err := row.Scan(&s.Hash, &s.Path, &s.Size, &s.Slug, &s.SeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func recordHash(e execer, hash, path string, size int64, slug string, seenAt int64) error {
	_, err := e.Exec(`
		INSERT OR REPLACE INTO file_hashes (hash, path, size, slug, seen_at)
		VALUES (?, ?, ?, ?, ?)`, hash, path, size, slug, seenAt)
	if err != nil {
		return fmt.Errorf("record file hash: %w", err)
	}
	return nil
}
