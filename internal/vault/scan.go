// Package vault scans the vault tree for the artifacts marginalia manages:
// original e-book files, landing pages, markdown renderings, and files that
// never went through intake.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"marginalia/internal/metadata"
	"marginalia/internal/parser"
	"marginalia/internal/paths"
)

var bookExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
	".mobi": true,
}

// Formats the pipeline cannot convert; intake lists them for manual
// handling instead of moving them.
var manualExtensions = map[string]bool{
	".txt":  true,
	".doc":  true,
	".docx": true,
	".rtf":  true,
}

// IsBookFile reports whether the file name carries a processable e-book
// extension.
func IsBookFile(name string) bool {
	return bookExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsManualFile reports whether the file name carries a format that needs
// manual conversion.
func IsManualFile(name string) bool {
	return manualExtensions[strings.ToLower(filepath.Ext(name))]
}

// Ebooks lists the e-book files directly inside dir, sorted by name. A
// missing directory is an empty listing.
func Ebooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsBookFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Page is one landing page on disk.
type Page struct {
	Path   string // absolute
	Stem   string // file name without .md
	Title  string // front-matter title, empty when missing or unparsable
	Author string // front-matter author, same caveat
}

// Pages lists the landing pages in the Books directory, sorted by file
// name, skipping the master index and subdirectories.
func Pages(layout paths.Layout) ([]Page, error) {
	dir := layout.Books()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	indexName := filepath.Base(layout.IndexFile())
	var pages []Page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == indexName {
			continue
		}
		p := Page{
			Path: filepath.Join(dir, name),
			Stem: strings.TrimSuffix(name, ".md"),
		}
		if raw, err := os.ReadFile(p.Path); err == nil {
			if fm, err := parser.Parse(string(raw)); err == nil {
				p.Title = fm.Get("title")
				p.Author = fm.Get("author")
			}
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// LoadBook reads a landing page back into a Book. Read failures return an
// error; a missing or corrupt front-matter block degrades to a stem-titled
// book with a warning, so a damaged page still shows up in listings.
func LoadBook(path string) (*metadata.Book, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read landing page: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), ".md")

	fm, err := parser.Parse(string(raw))
	if err != nil {
		warn := fmt.Sprintf("%s: %v", filepath.Base(path), err)
		return &metadata.Book{Title: stem}, warn, nil
	}
	if fm == nil {
		return &metadata.Book{Title: stem}, "", nil
	}

	b := metadata.FromFrontmatter(fm)
	if b.Title == "" {
		b.Title = stem
	}
	return b, "", nil
}

// Rendering is a markdown rendering candidate: a flat file in the
// Markdowns directory, or a subdirectory of chapter files identified by
// its directory name.
type Rendering struct {
	Name string // matching candidate: file stem or directory name
	Path string // representative markdown file, absolute
}

// Renderings lists rendering candidates under the Markdowns directory. A
// directory candidate resolves to its first markdown file.
func Renderings(layout paths.Layout) ([]Rendering, error) {
	dir := layout.Markdowns()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var out []Rendering
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			inner, err := os.ReadDir(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			for _, f := range inner {
				if !f.IsDir() && strings.HasSuffix(f.Name(), ".md") {
					out = append(out, Rendering{
						Name: name,
						Path: filepath.Join(dir, name, f.Name()),
					})
					break
				}
			}
			continue
		}
		if strings.HasSuffix(name, ".md") {
			out = append(out, Rendering{
				Name: strings.TrimSuffix(name, ".md"),
				Path: filepath.Join(dir, name),
			})
		}
	}
	return out, nil
}

// StrayReport lists files found outside the managed directories.
type StrayReport struct {
	Ebooks []string // e-book files to route through intake, absolute
	Manual []string // formats needing manual conversion, absolute
}

// Strays walks the vault for book files that never went through intake:
// anything outside the managed Books subdirectories, the bucket, the
// clippings directory, and state directories.
func Strays(layout paths.Layout) (*StrayReport, error) {
	skip := map[string]bool{
		filepath.Clean(layout.Annotations()): true,
		filepath.Clean(layout.Markdowns()):   true,
		filepath.Clean(layout.Annotated()):   true,
		filepath.Clean(layout.Originals()):   true,
		filepath.Clean(layout.Bucket()):      true,
		filepath.Clean(layout.Clippings()):   true,
		filepath.Clean(layout.StateDir()):    true,
	}

	report := &StrayReport{}
	root := layout.Root
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Best-effort: keep scanning past unreadable entries.
			return nil
		}
		if d.IsDir() {
			if skip[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case IsBookFile(d.Name()):
			report.Ebooks = append(report.Ebooks, path)
		case IsManualFile(d.Name()):
			report.Manual = append(report.Manual, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	return report, nil
}
