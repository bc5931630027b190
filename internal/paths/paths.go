// Package paths centralizes the vault directory layout:
//
//	Books/                    landing pages
//	Books/Annotations/        annotation documents
//	Books/Markdowns/          externally converted markdown renderings
//	Books/Annotated/          markdown renderings with anchored highlights
//	Books/Originals/          original e-book files
//	Books/Book Index.md       master index
//	Bucket/                   intake drop directory
//	Kindle_highlights/        clippings exports
//	.marginalia/              derived state (catalog db, audit log)
//
// Links written into documents are vault-relative with forward slashes;
// every conversion between absolute and link form goes through here so
// intake, matching, rendering, and checking stay consistent.
package paths

import (
	"path/filepath"
	"strings"
)

// StateDirName is the derived-state directory at the vault root.
const StateDirName = ".marginalia"

// AnnotationsSuffix is appended to a book title to name its annotation
// document.
const AnnotationsSuffix = " - Annotations"

// Names holds the configurable directory and file names, all relative to
// the vault root.
type Names struct {
	Books       string `toml:"books"`
	Annotations string `toml:"annotations"`
	Markdowns   string `toml:"markdowns"`
	Annotated   string `toml:"annotated"`
	Originals   string `toml:"originals"`
	Bucket      string `toml:"bucket"`
	Clippings   string `toml:"clippings"`
	IndexFile   string `toml:"index_file"`
}

// DefaultNames returns the stock vault layout.
func DefaultNames() Names {
	return Names{
		Books:       "Books",
		Annotations: "Books/Annotations",
		Markdowns:   "Books/Markdowns",
		Annotated:   "Books/Annotated",
		Originals:   "Books/Originals",
		Bucket:      "Bucket",
		Clippings:   "Kindle_highlights",
		IndexFile:   "Books/Book Index.md",
	}
}

// Layout resolves vault paths for one vault root.
type Layout struct {
	Root  string
	Names Names
}

// NewLayout builds a Layout, filling any empty name with its default.
func NewLayout(root string, names Names) Layout {
	def := DefaultNames()
	if names.Books == "" {
		names.Books = def.Books
	}
	if names.Annotations == "" {
		names.Annotations = def.Annotations
	}
	if names.Markdowns == "" {
		names.Markdowns = def.Markdowns
	}
	if names.Annotated == "" {
		names.Annotated = def.Annotated
	}
	if names.Originals == "" {
		names.Originals = def.Originals
	}
	if names.Bucket == "" {
		names.Bucket = def.Bucket
	}
	if names.Clippings == "" {
		names.Clippings = def.Clippings
	}
	if names.IndexFile == "" {
		names.IndexFile = def.IndexFile
	}
	return Layout{Root: root, Names: names}
}

// DefaultLayout is NewLayout with the stock names.
func DefaultLayout(root string) Layout {
	return NewLayout(root, DefaultNames())
}

func (l Layout) abs(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// Books returns the absolute landing-page directory.
func (l Layout) Books() string { return l.abs(l.Names.Books) }

// Annotations returns the absolute annotation-document directory.
func (l Layout) Annotations() string { return l.abs(l.Names.Annotations) }

// Markdowns returns the absolute markdown-rendering directory.
func (l Layout) Markdowns() string { return l.abs(l.Names.Markdowns) }

// Annotated returns the absolute anchored-rendering directory.
func (l Layout) Annotated() string { return l.abs(l.Names.Annotated) }

// Originals returns the absolute originals directory.
func (l Layout) Originals() string { return l.abs(l.Names.Originals) }

// Bucket returns the absolute intake directory.
func (l Layout) Bucket() string { return l.abs(l.Names.Bucket) }

// Clippings returns the absolute clippings directory.
func (l Layout) Clippings() string { return l.abs(l.Names.Clippings) }

// IndexFile returns the absolute master index path.
func (l Layout) IndexFile() string { return l.abs(l.Names.IndexFile) }

// StateDir returns the absolute derived-state directory.
func (l Layout) StateDir() string { return l.abs(StateDirName) }

// AllDirs returns every directory init must create, absolute, in creation
// order.
func (l Layout) AllDirs() []string {
	return []string{
		l.Books(),
		l.Annotations(),
		l.Markdowns(),
		l.Annotated(),
		l.Originals(),
		l.Bucket(),
		l.Clippings(),
		l.StateDir(),
	}
}

// LandingPage returns the absolute landing-page path for a sanitized title.
func (l Layout) LandingPage(safeTitle string) string {
	return filepath.Join(l.Books(), safeTitle+".md")
}

// AnnotationDoc returns the absolute annotation-document path for a
// sanitized title.
func (l Layout) AnnotationDoc(safeTitle string) string {
	return filepath.Join(l.Annotations(), safeTitle+AnnotationsSuffix+".md")
}

// MarkdownDoc returns the absolute markdown-rendering path for a sanitized
// title.
func (l Layout) MarkdownDoc(safeTitle string) string {
	return filepath.Join(l.Markdowns(), safeTitle+".md")
}

// AnnotatedDoc returns the absolute anchored-rendering path for a
// sanitized title.
func (l Layout) AnnotatedDoc(safeTitle string) string {
	return filepath.Join(l.Annotated(), safeTitle+".md")
}

// Original returns the absolute originals path for a file name.
func (l Layout) Original(fileName string) string {
	return filepath.Join(l.Originals(), fileName)
}

// Rel converts an absolute path inside the vault to the vault-relative,
// slash-separated form used in links. Paths outside the vault come back
// unchanged apart from slash normalization.
func (l Layout) Rel(abs string) string {
	rel, err := filepath.Rel(l.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Abs converts a vault-relative link path back to an absolute path.
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
}
