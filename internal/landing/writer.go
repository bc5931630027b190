package landing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"marginalia/internal/atomicfile"
	"marginalia/internal/metadata"
	"marginalia/internal/paths"
	"marginalia/internal/slugs"
)

// Writer renders vault documents to disk, merging with what is already
// there.
type Writer struct {
	Layout paths.Layout
}

// LandingResult reports one landing-page write.
type LandingResult struct {
	Path    string
	Created bool
	// Book is the merged metadata the page was rendered from; reader
	// fields edited on an existing page win over fresh extraction.
	Book *metadata.Book
	// Warning is set when the existing page could not be merged and was
	// regenerated from scratch.
	Warning string
}

// WriteLandingPage creates or regenerates the landing page for a book.
func (w Writer) WriteLandingPage(b *metadata.Book) (LandingResult, error) {
	safe := slugs.SafeFileName(b.Title)
	if safe == "" {
		return LandingResult{}, fmt.Errorf("landing page: empty title")
	}
	path := w.Layout.LandingPage(safe)
	res := LandingResult{Path: path}

	book := b
	var existing string
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		existing = string(raw)
		merged, mergeErr := Merge(b, existing)
		if mergeErr != nil {
			res.Warning = fmt.Sprintf("regenerating %s: %v", filepath.Base(path), mergeErr)
			existing = ""
		}
		book = merged
	case errors.Is(err, fs.ErrNotExist):
		res.Created = true
	default:
		return res, fmt.Errorf("read landing page: %w", err)
	}

	res.Book = book
	content := Render(book, w.versions(book, safe))
	if existing != "" {
		content = mergeBody(content, existing)
	}
	if err := atomicfile.WriteDoc(path, []byte(content)); err != nil {
		return res, fmt.Errorf("write landing page: %w", err)
	}
	return res, nil
}

// WriteAnnotationDoc creates or refreshes the annotation stub for a book,
// preserving the body of an existing document. Returns the document's
// absolute path.
func (w Writer) WriteAnnotationDoc(b *metadata.Book) (string, error) {
	safe := slugs.SafeFileName(b.Title)
	if safe == "" {
		return "", fmt.Errorf("annotation document: empty title")
	}
	path := w.Layout.AnnotationDoc(safe)

	var existing string
	if raw, err := os.ReadFile(path); err == nil {
		existing = string(raw)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read annotation document: %w", err)
	}

	landingRel := w.Layout.Rel(w.Layout.LandingPage(safe))
	content := RenderAnnotationDoc(b, landingRel, existing)
	if err := atomicfile.WriteDoc(path, []byte(content)); err != nil {
		return "", fmt.Errorf("write annotation document: %w", err)
	}
	return path, nil
}

// WriteIndex regenerates the master index from the given books.
func (w Writer) WriteIndex(books []*metadata.Book) error {
	content := RenderIndex(books, w.Layout.Names.Books)
	if err := atomicfile.WriteDoc(w.Layout.IndexFile(), []byte(content)); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// AddHighlightLinks records links to anchored highlights on a landing
// page. markdownPath is the rendering the block IDs live in. Returns how
// many links were new.
func (w Writer) AddHighlightLinks(landingPath, markdownPath string, links []HighlightLink) (int, error) {
	raw, err := os.ReadFile(landingPath)
	if err != nil {
		return 0, fmt.Errorf("read landing page: %w", err)
	}
	merged, added := MergeHighlightLinks(string(raw), w.Layout.Rel(markdownPath), links)
	if added == 0 {
		return 0, nil
	}
	if err := atomicfile.WriteDoc(landingPath, []byte(merged)); err != nil {
		return 0, fmt.Errorf("write landing page: %w", err)
	}
	return added, nil
}

// AddVersionLink appends a link to the Document Versions section of a
// landing page. Reports whether the page changed.
func (w Writer) AddVersionLink(landingPath, targetPath, label string) (bool, error) {
	raw, err := os.ReadFile(landingPath)
	if err != nil {
		return false, fmt.Errorf("read landing page: %w", err)
	}
	updated, changed := AppendVersionLink(string(raw), w.Layout.Rel(targetPath), label)
	if !changed {
		return false, nil
	}
	if err := atomicfile.WriteDoc(landingPath, []byte(updated)); err != nil {
		return false, fmt.Errorf("write landing page: %w", err)
	}
	return true, nil
}

func (w Writer) versions(b *metadata.Book, safe string) Versions {
	v := Versions{
		Original:      b.Path,
		AnnotationDoc: w.Layout.Rel(w.Layout.AnnotationDoc(safe)),
	}
	if fileExists(w.Layout.MarkdownDoc(safe)) {
		v.Markdown = w.Layout.Rel(w.Layout.MarkdownDoc(safe))
	}
	if fileExists(w.Layout.AnnotatedDoc(safe)) {
		v.Annotated = w.Layout.Rel(w.Layout.AnnotatedDoc(safe))
	}
	return v
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
