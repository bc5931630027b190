// Package library is the vault's book catalog, a SQLite database under
// the state directory.
//
// The catalog is derived state: every row can be rebuilt from the landing
// pages and original files on disk, so a schema change just deletes the
// database and reindexes. It exists to make lookups cheap. list and show
// read it instead of walking the vault, and intake consults the hash
// ledger to recognize files whose content has been through before, even
// when the copy itself was discarded.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"marginalia/internal/paths"
)

const dbFileName = "library.db"

// CurrentVersion is the catalog schema version.
const CurrentVersion = 1

var (
	// ErrBookNotFound indicates the requested slug is not in the catalog.
	ErrBookNotFound = errors.New("book not found in catalog")
	// ErrCatalogLocked indicates another process is rebuilding the catalog.
	ErrCatalogLocked = errors.New("catalog is locked for rebuild")
)

// Catalog is the SQLite catalog handle.
type Catalog struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for advanced queries.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Open opens or creates the catalog for a vault.
func Open(vaultPath string) (*Catalog, error) {
	dir := filepath.Join(vaultPath, paths.StateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// OpenWithRebuild opens the catalog, deleting and recreating it when the
// on-disk schema is incompatible. Returns (catalog, wasRebuilt, error).
func OpenWithRebuild(vaultPath string) (*Catalog, bool, error) {
	dir := filepath.Join(vaultPath, paths.StateDirName)
	dbPath := filepath.Join(dir, dbFileName)

	lock, err := acquireCatalogLock(dir)
	if err != nil {
		return nil, false, err
	}
	defer lock.Release()

	if _, err := os.Stat(dbPath); err == nil {
		db, err := sql.Open("sqlite", dbPath)
		if err == nil {
			if !isSchemaCompatible(db) {
				db.Close()
				if err := removeDatabaseFiles(dbPath); err != nil {
					return nil, false, err
				}
				fresh, err := Open(vaultPath)
				return fresh, true, err
			}
			db.Close()
		}
	}

	c, err := Open(vaultPath)
	return c, false, err
}

// OpenInMemory opens an in-memory catalog (for testing).
func OpenInMemory() (*Catalog, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	c := &Catalog{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the catalog.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type catalogLock struct {
	file *os.File
}

func acquireCatalogLock(dir string) (*catalogLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	lockFile, err := os.OpenFile(filepath.Join(dir, "library.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open catalog lock: %w", err)
	}

	if err := lockFileExclusiveNonBlocking(lockFile); err != nil {
		lockFile.Close()
		if isWouldBlockError(err) {
			return nil, ErrCatalogLocked
		}
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	return &catalogLock{file: lockFile}, nil
}

func (l *catalogLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

func removeDatabaseFiles(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// isSchemaCompatible checks that the books table carries the current
// column set and the hash ledger exists.
func isSchemaCompatible(db *sql.DB) bool {
	rows, err := db.Query("PRAGMA table_info(books)")
	if err != nil {
		return false
	}
	defer rows.Close()

	hasHash := false
	hasProgress := false
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false
		}
		switch name {
		case "file_hash":
			hasHash = true
		case "reading_progress":
			hasProgress = true
		}
	}
	if !hasHash || !hasProgress {
		return false
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='file_hashes'").Scan(&name)
	return err == nil
}

func (c *Catalog) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS books (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			published TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,        -- resolved publication year
			series TEXT NOT NULL DEFAULT '',
			rating TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',        -- JSON array
			format TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',          -- vault-relative original file
			landing_path TEXT NOT NULL DEFAULT '',  -- vault-relative landing page
			status TEXT NOT NULL DEFAULT '',
			reading_progress INTEGER NOT NULL DEFAULT 0,
			last_opened TEXT NOT NULL DEFAULT '',
			last_annotated TEXT NOT NULL DEFAULT '',
			file_hash TEXT NOT NULL DEFAULT '',
			file_size INTEGER NOT NULL DEFAULT 0,
			file_mtime INTEGER NOT NULL DEFAULT 0,
			indexed_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
		CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
		CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
		CREATE INDEX IF NOT EXISTS idx_books_hash ON books(file_hash) WHERE file_hash != '';

		-- Every content hash that has been through intake, including copies
		-- that were discarded as duplicates or superseded editions.
		CREATE TABLE IF NOT EXISTS file_hashes (
			hash TEXT NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			slug TEXT NOT NULL DEFAULT '',
			seen_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (hash, path)
		);

		CREATE INDEX IF NOT EXISTS idx_file_hashes_slug ON file_hashes(slug);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize catalog schema: %w", err)
	}

	_, err := c.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", CurrentVersion))
	if err != nil {
		return fmt.Errorf("set catalog version: %w", err)
	}
	return nil
}
