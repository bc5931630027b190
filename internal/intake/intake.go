// Package intake moves dropped e-book files into the vault and keeps the
// vault's documents in step with what is resident. Admission works on
// content first: a file whose bytes have already been through intake is
// discarded no matter what it is called, and only then do sanitized names
// and publication years decide collisions. Processing then gives every
// resident original a landing page, an annotation stub, and a catalog row,
// folding fuzzy-matched duplicates into their canonical page instead of
// creating a second one.
package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"marginalia/internal/dedupe"
	"marginalia/internal/landing"
	"marginalia/internal/library"
	"marginalia/internal/match"
	"marginalia/internal/metadata"
	"marginalia/internal/paths"
	"marginalia/internal/slugs"
)

// Extractor produces book metadata for a file. metadata.Extractor is the
// real implementation; tests substitute canned results.
type Extractor interface {
	Extract(ctx context.Context, path string) (*metadata.Book, error)
}

// Processor runs the intake pipeline for one vault.
type Processor struct {
	Layout   paths.Layout
	Extract  Extractor
	Catalog  *library.Catalog // nil disables hash memory and the identity cache
	Resolver *dedupe.Resolver
	Matcher  *match.Matcher
	Writer   landing.Writer

	// DryRun computes every decision without touching the file system.
	DryRun bool

	seen map[string]string // content hash to vault-relative path, this run
}

// New returns a Processor with default resolver and matcher thresholds.
func New(layout paths.Layout, ext Extractor, catalog *library.Catalog) *Processor {
	return &Processor{
		Layout:   layout,
		Extract:  ext,
		Catalog:  catalog,
		Resolver: dedupe.New(),
		Matcher:  match.New(),
		Writer:   landing.Writer{Layout: layout},
		seen:     make(map[string]string),
	}
}

// extractBook extracts metadata with filename fallback; a broken calibre
// install must not block intake.
func (p *Processor) extractBook(ctx context.Context, path string, warnings *[]string) *metadata.Book {
	if p.Extract == nil {
		return metadata.FromFilename(path)
	}
	book, err := p.Extract.Extract(ctx, path)
	if err != nil {
		*warnings = append(*warnings,
			fmt.Sprintf("metadata extraction failed for %s, using filename: %v", filepath.Base(path), err))
		return metadata.FromFilename(path)
	}
	return book
}

func (p *Processor) markSeen(hash, rel string) {
	if p.seen == nil {
		p.seen = make(map[string]string)
	}
	p.seen[hash] = rel
}

// CleanFileName sanitizes a dropped file's name. The extension is
// lowercased so collision checks stay case-stable across file systems.
func CleanFileName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	clean := slugs.SafeFileName(stem)
	if clean == "" {
		clean = "untitled"
	}
	return clean + strings.ToLower(ext)
}

// fileIdentity returns the content hash and size of a file.
func fileIdentity(path string) (string, int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	hash, err := dedupe.FileHash(path)
	if err != nil {
		return "", 0, err
	}
	return hash, st.Size(), nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// moveFile renames src to dest, copying when the rename crosses file
// systems.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	return os.Remove(src)
}
