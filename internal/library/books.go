package library

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marginalia/internal/metadata"
	"marginalia/internal/slugs"
	"marginalia/internal/sqlutil"
)

const bookColumns = `slug, title, author, publisher, published, year, series, rating,
	language, tags, format, path, landing_path, status, reading_progress,
	last_opened, last_annotated, file_hash, file_size, file_mtime, indexed_at`

// Record is one catalog row: a book plus the file identity intake resolved
// for it.
type Record struct {
	Slug string
	Book *metadata.Book

	// Year is the resolved publication year, 0 when unknown. The raw year
	// string stays in the landing page front matter.
	Year int

	LandingPath string
	FileHash    string
	FileSize    int64
	FileMtime   int64
	IndexedAt   int64
}

// NewRecord builds a catalog record for a book, deriving the slug and the
// resolved publication year from the book's metadata.
func NewRecord(b *metadata.Book) *Record {
	return &Record{
		Slug: slugs.BookSlug(b.Title),
		Book: b,
		Year: b.PublicationYear(),
	}
}

// Upsert inserts or replaces a record, and registers its content hash in
// the ledger when one is set. IndexedAt is stamped when unset.
func (c *Catalog) Upsert(r *Record) error {
	if r.Slug == "" {
		return fmt.Errorf("upsert book %q: empty slug", r.Book.Title)
	}
	if r.IndexedAt == 0 {
		r.IndexedAt = time.Now().Unix()
	}

	tagsJSON, err := json.Marshal(tagsOrEmpty(r.Book.Tags))
	if err != nil {
		return fmt.Errorf("encode tags for %s: %w", r.Slug, err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Slug, r.Book.Title, r.Book.Author, r.Book.Publisher, r.Book.Published,
		r.Year, r.Book.Series, r.Book.Rating, r.Book.Language, string(tagsJSON),
		r.Book.Format, r.Book.Path, r.LandingPath, r.Book.Status,
		r.Book.ReadingProgress, r.Book.LastOpened, r.Book.LastAnnotated,
		r.FileHash, r.FileSize, r.FileMtime, r.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", r.Slug, err)
	}

	if r.FileHash != "" {
		if err := recordHash(tx, r.FileHash, r.Book.Path, r.FileSize, r.Slug, r.IndexedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns the record for a slug.
func (c *Catalog) Get(slug string) (*Record, error) {
	row := c.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE slug = ?`, slug)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return r, err
}

// FindByPath returns the record whose original file lives at the given
// vault-relative path.
func (c *Catalog) FindByPath(path string) (*Record, error) {
	row := c.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE path = ?`, path)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return r, err
}

// FindByHash returns the record whose original file has the given content
// hash.
func (c *Catalog) FindByHash(hash string) (*Record, error) {
	row := c.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE file_hash = ? ORDER BY slug LIMIT 1`, hash)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return r, err
}

// All returns every record, ordered by title.
func (c *Catalog) All() ([]*Record, error) {
	rows, err := c.db.Query(`SELECT ` + bookColumns + ` FROM books ORDER BY title COLLATE NOCASE, slug`)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (*Record, error) {
		return scanRecord(rows)
	})
}

// ByStatus returns records whose status matches any of the given values,
// ordered by title.
func (c *Catalog) ByStatus(statuses ...string) ([]*Record, error) {
	placeholders, args := sqlutil.InClauseArgs(statuses)
	rows, err := c.db.Query(`
		SELECT `+bookColumns+` FROM books
		WHERE status IN (`+placeholders+`)
		ORDER BY title COLLATE NOCASE, slug`, args...)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (*Record, error) {
		return scanRecord(rows)
	})
}

// Delete removes a record. The hash ledger keeps its entries so content
// that has been through intake stays recognizable.
func (c *Catalog) Delete(slug string) error {
	res, err := c.db.Exec(`DELETE FROM books WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete book %s: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Stats summarizes the catalog.
type Stats struct {
	Books   int
	Authors int
	Hashes  int
}

// Stats returns catalog counts.
func (c *Catalog) Stats() (Stats, error) {
	var s Stats
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&s.Books); err != nil {
		return s, err
	}
	if err := c.db.QueryRow(`SELECT COUNT(DISTINCT author) FROM books WHERE author != ''`).Scan(&s.Authors); err != nil {
		return s, err
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM file_hashes`).Scan(&s.Hashes); err != nil {
		return s, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var b metadata.Book
	var tagsJSON string

	err := row.Scan(&r.Slug, &b.Title, &b.Author, &b.Publisher, &b.Published,
		&r.Year, &b.Series, &b.Rating, &b.Language, &tagsJSON,
		&b.Format, &b.Path, &r.LandingPath, &b.Status, &b.ReadingProgress,
		&b.LastOpened, &b.LastAnnotated, &r.FileHash, &r.FileSize, &r.FileMtime, &r.IndexedAt)
	if err != nil {
		return nil, err
	}

	if tagsJSON != "" && tagsJSON != "[]" {
		if err := json.Unmarshal([]byte(tagsJSON), &b.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", r.Slug, err)
		}
	}
	r.Book = &b
	return &r, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
