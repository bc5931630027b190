package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"marginalia/internal/dedupe"
	"marginalia/internal/metadata"
	"marginalia/internal/slugs"
	"marginalia/internal/vault"
)

// supersededDirName is where older editions are parked instead of being
// deleted, under the bucket.
const supersededDirName = "superseded"

// Action is the fate of one file offered to intake.
type Action int

const (
	// ActionAdmitted is a file moved into the originals directory.
	ActionAdmitted Action = iota
	// ActionResident is a file whose name and bytes already live there.
	ActionResident
	// ActionDuplicate is a file whose bytes match content that has been
	// through intake before; the offered copy is removed.
	ActionDuplicate
	// ActionSuperseded is an older edition of a resident original, parked
	// aside rather than admitted.
	ActionSuperseded
	// ActionManual is a format the pipeline cannot convert.
	ActionManual
	// ActionIgnored is a file type intake does not handle.
	ActionIgnored
	// ActionFailed is a file intake could not process; Err explains.
	ActionFailed
)

func (a Action) String() string {
	switch a {
	case ActionAdmitted:
		return "admitted"
	case ActionResident:
		return "resident"
	case ActionDuplicate:
		return "duplicate"
	case ActionSuperseded:
		return "superseded"
	case ActionManual:
		return "manual"
	case ActionIgnored:
		return "ignored"
	case ActionFailed:
		return "failed"
	}
	return "unknown"
}

// Admission reports what intake decided for one offered file.
type Admission struct {
	Source string // path offered, absolute
	Action Action
	Dest   string // vault-relative destination for admitted and resident files

	// Title overrides extracted metadata when a collision renamed the
	// edition; Book carries metadata already extracted while resolving it.
	Title string
	Book  *metadata.Book

	Hash string
	Size int64

	// Of is the vault-relative path of the copy this file duplicates or
	// yields to.
	Of string

	Err      error
	Warnings []string
}

// AdmitBucket offers every file in the bucket to intake, in name order. A
// missing bucket is an empty run.
func (p *Processor) AdmitBucket(ctx context.Context) ([]Admission, error) {
	entries, err := os.ReadDir(p.Layout.Bucket())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan bucket: %w", err)
	}

	var admissions []Admission
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		admissions = append(admissions, p.AdmitFile(ctx, filepath.Join(p.Layout.Bucket(), e.Name())))
	}
	return admissions, nil
}

// AdmitStrays routes book files found loose in the vault through the same
// admission path as bucket drops. Manual formats are reported, not moved.
func (p *Processor) AdmitStrays(ctx context.Context) ([]Admission, error) {
	strays, err := vault.Strays(p.Layout)
	if err != nil {
		return nil, err
	}

	var admissions []Admission
	for _, path := range strays.Ebooks {
		admissions = append(admissions, p.AdmitFile(ctx, path))
	}
	for _, path := range strays.Manual {
		admissions = append(admissions, Admission{Source: path, Action: ActionManual})
	}
	return admissions, nil
}

// AdmitFile decides one file's fate: byte identity first, then edition
// resolution on a sanitized-name collision, then a plain move into the
// originals directory.
func (p *Processor) AdmitFile(ctx context.Context, src string) Admission {
	adm := Admission{Source: src}
	base := filepath.Base(src)

	switch {
	case vault.IsBookFile(base):
	case vault.IsManualFile(base):
		adm.Action = ActionManual
		return adm
	default:
		adm.Action = ActionIgnored
		return adm
	}

	hash, size, err := fileIdentity(src)
	if err != nil {
		adm.Action = ActionFailed
		adm.Err = err
		return adm
	}
	adm.Hash, adm.Size = hash, size

	// Identical bytes beat every name comparison.
	if of, known := p.knownContent(hash); known {
		adm.Action = ActionDuplicate
		adm.Of = of
		p.removeSource(&adm, src)
		return adm
	}

	dest := p.Layout.Original(CleanFileName(base))
	if fileExists(dest) {
		return p.resolveCollision(ctx, adm, src, dest)
	}

	p.place(&adm, src, dest)
	return adm
}

// knownContent reports whether hash belongs to a resident original: seen
// earlier this run, or recorded in the catalog with its file still on disk.
func (p *Processor) knownContent(hash string) (string, bool) {
	if rel, ok := p.seen[hash]; ok {
		return rel, true
	}
	if p.Catalog == nil {
		return "", false
	}

	if rec, err := p.Catalog.FindByHash(hash); err == nil {
		if fileExists(p.Layout.Abs(rec.Book.Path)) {
			return rec.Book.Path, true
		}
		return "", false
	}

	// The hash ledger remembers copies that never got their own catalog
	// row; follow its slug back to the canonical book.
	sighting, err := p.Catalog.SeenHash(hash)
	if err != nil || sighting == nil || sighting.Slug == "" {
		return "", false
	}
	rec, err := p.Catalog.Get(sighting.Slug)
	if err != nil {
		return "", false
	}
	if fileExists(p.Layout.Abs(rec.Book.Path)) {
		return rec.Book.Path, true
	}
	return "", false
}

// resolveCollision handles a sanitized-name collision against a resident
// original. Equal bytes mean the file is already resident; otherwise
// publication years order the editions.
func (p *Processor) resolveCollision(ctx context.Context, adm Admission, src, dest string) Admission {
	destHash, err := dedupe.FileHash(dest)
	if err != nil {
		adm.Action = ActionFailed
		adm.Err = fmt.Errorf("hash resident copy: %w", err)
		return adm
	}
	if destHash == adm.Hash {
		adm.Action = ActionResident
		adm.Dest = p.Layout.Rel(dest)
		p.removeSource(&adm, src)
		return adm
	}

	incoming := p.extractBook(ctx, src, &adm.Warnings)
	existingYear := p.yearOf(ctx, dest, &adm.Warnings)
	col := dedupe.ResolveEdition(incoming.Title, existingYear, incoming.PublicationYear(), adm.Hash)

	if col.Kind == dedupe.CollisionSuperseded {
		adm.Action = ActionSuperseded
		adm.Of = p.Layout.Rel(dest)
		p.park(&adm, src)
		return adm
	}

	ext := strings.ToLower(filepath.Ext(dest))
	adjusted := col.Title
	renamed := p.Layout.Original(slugs.SafeFileName(adjusted) + ext)
	if fileExists(renamed) {
		// The year-distinguished name is taken too, so this is a third
		// variant; hash-distinguished names cannot collide.
		adjusted = dedupe.ResolveEdition(incoming.Title, 0, 0, adm.Hash).Title
		renamed = p.Layout.Original(slugs.SafeFileName(adjusted) + ext)
	}
	incoming.Title = adjusted
	adm.Title = adjusted
	adm.Book = incoming
	p.place(&adm, src, renamed)
	return adm
}

// yearOf resolves the publication year of a resident original, preferring
// the catalog over re-extraction.
func (p *Processor) yearOf(ctx context.Context, abs string, warnings *[]string) int {
	if p.Catalog != nil {
		if rec, err := p.Catalog.FindByPath(p.Layout.Rel(abs)); err == nil {
			return rec.Year
		}
	}
	return p.extractBook(ctx, abs, warnings).PublicationYear()
}

// place moves a file into the originals directory.
func (p *Processor) place(adm *Admission, src, dest string) {
	adm.Action = ActionAdmitted
	adm.Dest = p.Layout.Rel(dest)
	p.markSeen(adm.Hash, adm.Dest)
	if p.DryRun {
		return
	}
	if err := moveFile(src, dest); err != nil {
		adm.Action = ActionFailed
		adm.Err = err
	}
}

// park moves a superseded edition aside instead of deleting it.
func (p *Processor) park(adm *Admission, src string) {
	if p.DryRun {
		return
	}
	dest := filepath.Join(p.Layout.Bucket(), supersededDirName, filepath.Base(src))
	if err := moveFile(src, dest); err != nil {
		adm.Action = ActionFailed
		adm.Err = err
		return
	}
	p.recordSighting(adm, p.slugFor(adm.Of))
}

// removeSource discards a redundant copy once its bytes are known to be
// resident, and remembers the sighting.
func (p *Processor) removeSource(adm *Admission, src string) {
	if p.DryRun {
		return
	}
	if err := os.Remove(src); err != nil {
		adm.Warnings = append(adm.Warnings, fmt.Sprintf("remove %s: %v", filepath.Base(src), err))
	}
	p.recordSighting(adm, p.slugFor(adm.Of))
}

// recordSighting writes the admission's hash to the catalog ledger so the
// same bytes are recognized on every future run.
func (p *Processor) recordSighting(adm *Admission, slug string) {
	if p.Catalog == nil {
		return
	}
	if err := p.Catalog.RecordHash(adm.Hash, p.Layout.Rel(adm.Source), adm.Size, slug); err != nil {
		adm.Warnings = append(adm.Warnings, fmt.Sprintf("record hash: %v", err))
	}
}

// slugFor finds the catalog slug owning a vault-relative path, if any.
func (p *Processor) slugFor(rel string) string {
	if p.Catalog == nil || rel == "" {
		return ""
	}
	if rec, err := p.Catalog.FindByPath(rel); err == nil {
		return rec.Slug
	}
	return ""
}
