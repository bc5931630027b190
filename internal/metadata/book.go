// Package metadata defines the book record and its extraction from e-book
// files via calibre's ebook-meta tool.
package metadata

import (
	"strconv"
	"strings"

	"marginalia/internal/dates"
	"marginalia/internal/parser"
)

// Book is one book's metadata, as extracted from an e-book file or parsed
// back out of a landing page's front matter.
type Book struct {
	Title     string
	Author    string
	Publisher string
	Published string
	Year      string
	Series    string
	Rating    string
	Language  string
	Tags      []string

	Format string
	Path   string // vault-relative original file, e.g. Books/Originals/x.pdf

	Status          string
	ReadingProgress int
	LastOpened      string
	LastAnnotated   string

	// Extra carries front-matter fields this tool does not interpret
	// (jdnumber and friends). They survive regeneration untouched.
	Extra map[string]string
}

// FromFrontmatter rebuilds a Book from a parsed front-matter block.
func FromFrontmatter(fm *parser.Frontmatter) *Book {
	b := &Book{Tags: fm.Tags}
	for key, value := range fm.Fields {
		switch key {
		case "title":
			b.Title = value
		case "author":
			b.Author = value
		case "publisher":
			b.Publisher = value
		case "published":
			b.Published = value
		case "year":
			b.Year = value
		case "series":
			b.Series = value
		case "rating":
			b.Rating = value
		case "language":
			b.Language = value
		case "format":
			b.Format = value
		case "path":
			b.Path = value
		case "status":
			b.Status = value
		case "reading_progress":
			b.ReadingProgress = parseProgress(value)
		case "last_opened":
			b.LastOpened = value
		case "last_annotated":
			b.LastAnnotated = value
		default:
			if b.Extra == nil {
				b.Extra = make(map[string]string)
			}
			b.Extra[key] = value
		}
	}
	return b
}

// PublicationYear resolves the book's publication year, 0 when unknown.
func (b *Book) PublicationYear() int {
	return dates.PublicationYear(b.Year, b.Published, b.Publisher)
}

// DisplayName is the "Title - Author" form used in index links.
func (b *Book) DisplayName() string {
	if b.Author == "" {
		return b.Title
	}
	return b.Title + " - " + b.Author
}

// Clone returns a deep copy.
func (b *Book) Clone() *Book {
	out := *b
	out.Tags = append([]string(nil), b.Tags...)
	if b.Extra != nil {
		out.Extra = make(map[string]string, len(b.Extra))
		for k, v := range b.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

func parseProgress(s string) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
