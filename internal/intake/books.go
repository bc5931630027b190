package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"marginalia/internal/library"
	"marginalia/internal/metadata"
	"marginalia/internal/slugs"
	"marginalia/internal/vault"
)

// BookAction is the outcome of processing one resident original.
type BookAction int

const (
	// BookCreated made a new landing page.
	BookCreated BookAction = iota
	// BookUpdated refreshed an existing landing page.
	BookUpdated
	// BookLinked attached the file to another book's landing page as an
	// extra copy instead of giving it a page of its own.
	BookLinked
	// BookFailed could not be processed; Err explains.
	BookFailed
)

func (a BookAction) String() string {
	switch a {
	case BookCreated:
		return "created"
	case BookUpdated:
		return "updated"
	case BookLinked:
		return "linked"
	case BookFailed:
		return "failed"
	}
	return "unknown"
}

// BookResult is one original's processing outcome.
type BookResult struct {
	Path    string // vault-relative original
	Action  BookAction
	Slug    string
	Book    *metadata.Book
	Landing string // absolute landing page path

	// Of and Score identify the canonical book a linked copy was folded
	// into and how strongly it matched.
	Of    string
	Score float64

	Err      error
	Warnings []string
}

// BookReport sums one processing pass.
type BookReport struct {
	Results []BookResult

	Created int
	Updated int
	Linked  int
	Failed  int
}

func (r *BookReport) add(res BookResult) {
	r.Results = append(r.Results, res)
	switch res.Action {
	case BookCreated:
		r.Created++
	case BookUpdated:
		r.Updated++
	case BookLinked:
		r.Linked++
	case BookFailed:
		r.Failed++
	}
}

// ProcessBooks brings documents and catalog in step with every file in the
// originals directory: recall or extract identity, fold new arrivals that
// are the same work as an existing page into that page, then write the
// landing page, annotation stub, and catalog row. admissions carry hashes
// and renamed-edition titles from the admission pass.
func (p *Processor) ProcessBooks(ctx context.Context, admissions []Admission) (*BookReport, error) {
	files, err := vault.Ebooks(p.Layout.Originals())
	if err != nil {
		return nil, fmt.Errorf("scan originals: %w", err)
	}

	admitted := make(map[string]Admission, len(admissions))
	for _, adm := range admissions {
		if adm.Action == ActionAdmitted {
			admitted[adm.Dest] = adm
		}
	}

	if !p.DryRun {
		for _, dir := range []string{p.Layout.Books(), p.Layout.Annotations()} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}

	pool, err := p.landingPool()
	if err != nil {
		return nil, err
	}

	report := &BookReport{}
	for _, file := range files {
		res := p.processBook(ctx, file, admitted, pool)
		report.add(res)
		if res.Action == BookCreated {
			pool.add(res.Book)
		}
	}
	return report, nil
}

func (p *Processor) processBook(ctx context.Context, file string, admitted map[string]Admission, pool *landingPool) BookResult {
	rel := p.Layout.Rel(file)
	res := BookResult{Path: rel}

	st, err := os.Stat(file)
	if err != nil {
		res.Action = BookFailed
		res.Err = err
		return res
	}
	size, mtime := st.Size(), st.ModTime().Unix()

	rec := p.recordFor(rel)
	adm, isNew := admitted[rel]

	var book *metadata.Book
	var hash string
	switch {
	case isNew && adm.Book != nil:
		book = adm.Book
		hash = adm.Hash
	case isNew:
		book = p.extractBook(ctx, file, &res.Warnings)
		if adm.Title != "" {
			book.Title = adm.Title
		}
		hash = adm.Hash
	case rec != nil && rec.FileSize == size && rec.FileMtime == mtime && rec.FileHash != "":
		// Unchanged since last run; the catalog row is the identity. This
		// also keeps renamed-edition titles stable without re-extraction.
		book = rec.Book.Clone()
		hash = rec.FileHash
	default:
		book = p.extractBook(ctx, file, &res.Warnings)
		h, _, err := fileIdentity(file)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("hash %s: %v", filepath.Base(file), err))
		}
		hash = h
	}
	book.Path = rel
	res.Book = book

	// A new arrival that is the same work as an existing page becomes an
	// extra copy on that page, not a second page.
	if rec == nil {
		candidates := pool.candidatesExcluding(slugs.SafeFileName(book.Title))
		if canonical, score, ok := p.Resolver.FindDuplicate(book, candidates); ok {
			return p.linkCopy(res, book, canonical, score, hash, size)
		}
	}

	return p.writeBook(res, rec, book, hash, size, mtime)
}

// linkCopy records the file as an extra copy of the canonical book: a
// version link on the canonical page and a ledger entry, no page of its own.
func (p *Processor) linkCopy(res BookResult, book, canonical *metadata.Book, score float64, hash string, size int64) BookResult {
	res.Action = BookLinked
	res.Of = slugs.BookSlug(canonical.Title)
	res.Score = score
	if p.DryRun {
		return res
	}

	label := "Original Copy"
	if book.Format != "" {
		label = fmt.Sprintf("Original (%s)", book.Format)
	}
	page := p.Layout.LandingPage(slugs.SafeFileName(canonical.Title))
	if _, err := p.Writer.AddVersionLink(page, p.Layout.Abs(res.Path), label); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("link copy: %v", err))
	}
	if p.Catalog != nil && hash != "" {
		if err := p.Catalog.RecordHash(hash, res.Path, size, res.Of); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("record hash: %v", err))
		}
	}
	return res
}

// writeBook refreshes the book's documents and catalog row.
func (p *Processor) writeBook(res BookResult, prior *library.Record, book *metadata.Book, hash string, size, mtime int64) BookResult {
	safe := slugs.SafeFileName(book.Title)
	res.Slug = slugs.BookSlug(book.Title)
	res.Landing = p.Layout.LandingPage(safe)

	if p.DryRun {
		res.Action = BookUpdated
		if !fileExists(res.Landing) {
			res.Action = BookCreated
		}
		return res
	}

	lr, err := p.Writer.WriteLandingPage(book)
	if err != nil {
		res.Action = BookFailed
		res.Err = err
		return res
	}
	if lr.Warning != "" {
		res.Warnings = append(res.Warnings, lr.Warning)
	}
	res.Landing = lr.Path
	res.Action = BookUpdated
	if lr.Created {
		res.Action = BookCreated
	}

	// Reader-edited fields on the page win over fresh extraction; the
	// catalog row follows the merged view.
	merged := lr.Book
	res.Book = merged

	if _, err := p.Writer.WriteAnnotationDoc(merged); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("annotation document: %v", err))
	}

	if p.Catalog != nil {
		rec := library.NewRecord(merged)
		rec.LandingPath = p.Layout.Rel(lr.Path)
		rec.FileHash = hash
		rec.FileSize = size
		rec.FileMtime = mtime
		if prior != nil && prior.Slug != rec.Slug {
			// The file's identity changed; retire the old row so one path
			// never owns two.
			if err := p.Catalog.Delete(prior.Slug); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("retire %s: %v", prior.Slug, err))
			}
		}
		if err := p.Catalog.Upsert(rec); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("catalog: %v", err))
		}
		res.Slug = rec.Slug
	}
	return res
}

func (p *Processor) recordFor(rel string) *library.Record {
	if p.Catalog == nil {
		return nil
	}
	rec, err := p.Catalog.FindByPath(rel)
	if err != nil {
		return nil
	}
	return rec
}

// landingPool is the in-memory duplicate-detection pool: one book per
// landing page on disk, plus pages created during the current run.
type landingPool struct {
	books []*metadata.Book
}

func (p *Processor) landingPool() (*landingPool, error) {
	pages, err := vault.Pages(p.Layout)
	if err != nil {
		return nil, fmt.Errorf("scan landing pages: %w", err)
	}
	pool := &landingPool{}
	for _, pg := range pages {
		b, _, err := vault.LoadBook(pg.Path)
		if err != nil || b == nil || b.Title == "" {
			continue
		}
		pool.books = append(pool.books, b)
	}
	return pool, nil
}

// candidatesExcluding leaves out books whose landing page is the one keyed
// by safeTitle, so a book never matches its own page.
func (pl *landingPool) candidatesExcluding(safeTitle string) []*metadata.Book {
	out := make([]*metadata.Book, 0, len(pl.books))
	for _, b := range pl.books {
		if slugs.SafeFileName(b.Title) == safeTitle {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (pl *landingPool) add(b *metadata.Book) {
	pl.books = append(pl.books, b)
}
