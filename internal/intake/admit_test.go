package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marginalia/internal/dedupe"
	"marginalia/internal/library"
	"marginalia/internal/metadata"
	"marginalia/internal/paths"
)

// fakeExtractor serves canned metadata by base file name, applying the same
// filename fallbacks the real extractor does.
type fakeExtractor struct {
	books map[string]*metadata.Book
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*metadata.Book, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.books[filepath.Base(path)]
	if !ok {
		return metadata.FromFilename(path), nil
	}
	out := b.Clone()
	if out.Format == "" {
		if ext := filepath.Ext(path); ext != "" {
			out.Format = strings.ToUpper(ext[1:])
		}
	}
	if out.Status == "" {
		out.Status = "new"
	}
	return out, nil
}

func newTestProcessor(t *testing.T) (*Processor, *fakeExtractor) {
	t.Helper()
	catalog, err := library.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	ext := &fakeExtractor{books: make(map[string]*metadata.Book)}
	layout := paths.DefaultLayout(t.TempDir())
	return New(layout, ext, catalog), ext
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func dropInBucket(t *testing.T, p *Processor, name, content string) string {
	t.Helper()
	path := filepath.Join(p.Layout.Bucket(), name)
	writeTestFile(t, path, content)
	return path
}

func TestAdmitBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("admits a clean drop", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		src := dropInBucket(t, p, "Deep Work.epub", "epub bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		if len(admissions) != 1 {
			t.Fatalf("expected 1 admission, got %d", len(admissions))
		}
		adm := admissions[0]
		if adm.Action != ActionAdmitted {
			t.Errorf("expected admitted, got %s", adm.Action)
		}
		if adm.Dest != "Books/Originals/Deep Work.epub" {
			t.Errorf("unexpected dest %q", adm.Dest)
		}
		if adm.Hash == "" || adm.Size == 0 {
			t.Errorf("expected file identity, got hash %q size %d", adm.Hash, adm.Size)
		}
		if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected source to leave the bucket")
		}
		if _, err := os.Stat(p.Layout.Original("Deep Work.epub")); err != nil {
			t.Errorf("expected file in originals: %v", err)
		}
	})

	t.Run("sanitizes messy names", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		dropInBucket(t, p, "The Staff Engineer's Path [2022].EPUB", "x")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		want := "Books/Originals/The Staff Engineer's Path 2022.epub"
		if admissions[0].Dest != want {
			t.Errorf("expected %q, got %q", want, admissions[0].Dest)
		}
		if _, err := os.Stat(p.Layout.Abs(want)); err != nil {
			t.Errorf("expected sanitized file: %v", err)
		}
	})

	t.Run("discards byte duplicates within a run", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		// Bucket scans are name-ordered, so the capitalized name goes first.
		dropInBucket(t, p, "Antifragile.pdf", "same bytes")
		second := dropInBucket(t, p, "antifragile-scan.pdf", "same bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		if len(admissions) != 2 {
			t.Fatalf("expected 2 admissions, got %d", len(admissions))
		}
		if admissions[0].Action != ActionAdmitted {
			t.Errorf("expected first admitted, got %s", admissions[0].Action)
		}
		dup := admissions[1]
		if dup.Action != ActionDuplicate {
			t.Fatalf("expected duplicate, got %s", dup.Action)
		}
		if dup.Of != "Books/Originals/Antifragile.pdf" {
			t.Errorf("unexpected duplicate target %q", dup.Of)
		}
		if _, err := os.Stat(second); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected duplicate copy to be removed")
		}
		if _, err := os.Stat(p.Layout.Original("antifragile-scan.pdf")); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected duplicate to stay out of originals")
		}

		sighting, err := p.Catalog.SeenHash(dup.Hash)
		if err != nil {
			t.Fatalf("failed to check ledger: %v", err)
		}
		if sighting == nil {
			t.Error("expected the discarded copy in the hash ledger")
		}
	})

	t.Run("recognizes content across runs", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		resident := p.Layout.Original("Antifragile.pdf")
		writeTestFile(t, resident, "resident bytes")
		hash, err := dedupe.FileHash(resident)
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}
		book := &metadata.Book{Title: "Antifragile", Author: "Nassim Nicholas Taleb", Path: "Books/Originals/Antifragile.pdf", Status: "new"}
		rec := library.NewRecord(book)
		rec.FileHash = hash
		if err := p.Catalog.Upsert(rec); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}

		dropInBucket(t, p, "antifragile (another copy).pdf", "resident bytes")
		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		if admissions[0].Action != ActionDuplicate {
			t.Errorf("expected duplicate, got %s", admissions[0].Action)
		}
		if admissions[0].Of != "Books/Originals/Antifragile.pdf" {
			t.Errorf("unexpected duplicate target %q", admissions[0].Of)
		}
	})

	t.Run("same name same bytes is resident", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		writeTestFile(t, p.Layout.Original("Meditations.pdf"), "stoic bytes")
		src := dropInBucket(t, p, "Meditations.pdf", "stoic bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		if admissions[0].Action != ActionResident {
			t.Errorf("expected resident, got %s", admissions[0].Action)
		}
		if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected redundant copy to be removed")
		}
		if _, err := os.Stat(p.Layout.Original("Meditations.pdf")); err != nil {
			t.Errorf("expected resident copy untouched: %v", err)
		}
	})

	t.Run("reports manual and ignored files without moving them", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		manual := dropInBucket(t, p, "lecture notes.docx", "doc")
		ignored := dropInBucket(t, p, "cover.jpg", "jpg")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		got := map[string]Action{}
		for _, adm := range admissions {
			got[filepath.Base(adm.Source)] = adm.Action
		}
		if got["lecture notes.docx"] != ActionManual {
			t.Errorf("expected manual, got %s", got["lecture notes.docx"])
		}
		if got["cover.jpg"] != ActionIgnored {
			t.Errorf("expected ignored, got %s", got["cover.jpg"])
		}
		for _, path := range []string{manual, ignored} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("expected %s to stay in the bucket: %v", filepath.Base(path), err)
			}
		}
	})

	t.Run("dry run decides without touching files", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		p.DryRun = true
		first := dropInBucket(t, p, "Siddhartha.epub", "river bytes")
		second := dropInBucket(t, p, "siddhartha2.epub", "river bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		if admissions[0].Action != ActionAdmitted {
			t.Errorf("expected admitted, got %s", admissions[0].Action)
		}
		if admissions[1].Action != ActionDuplicate {
			t.Errorf("expected duplicate, got %s", admissions[1].Action)
		}
		for _, path := range []string{first, second} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("expected %s untouched: %v", filepath.Base(path), err)
			}
		}
		if _, err := os.Stat(p.Layout.Original("Siddhartha.epub")); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected originals untouched")
		}
	})
}

func TestAdmitCollisions(t *testing.T) {
	ctx := context.Background()

	// seedResident installs an original with a catalog row carrying its
	// publication year.
	seedResident := func(t *testing.T, p *Processor, title, content string, year string) {
		t.Helper()
		name := title + ".pdf"
		writeTestFile(t, p.Layout.Original(name), content)
		book := &metadata.Book{Title: title, Author: "Robert C. Martin", Year: year, Path: "Books/Originals/" + name, Status: "new"}
		if err := p.Catalog.Upsert(library.NewRecord(book)); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}
	}

	t.Run("parks superseded editions", func(t *testing.T) {
		p, ext := newTestProcessor(t)
		seedResident(t, p, "Clean Code", "second edition bytes", "2021")
		ext.books["Clean Code.pdf"] = &metadata.Book{Title: "Clean Code", Author: "Robert C. Martin", Year: "2008"}
		dropInBucket(t, p, "Clean Code.pdf", "first edition bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		adm := admissions[0]
		if adm.Action != ActionSuperseded {
			t.Fatalf("expected superseded, got %s", adm.Action)
		}
		if adm.Of != "Books/Originals/Clean Code.pdf" {
			t.Errorf("unexpected winner %q", adm.Of)
		}
		parked := filepath.Join(p.Layout.Bucket(), "superseded", "Clean Code.pdf")
		if _, err := os.Stat(parked); err != nil {
			t.Errorf("expected parked copy: %v", err)
		}
		raw, err := os.ReadFile(p.Layout.Original("Clean Code.pdf"))
		if err != nil || string(raw) != "second edition bytes" {
			t.Errorf("expected resident copy untouched, got %q, %v", raw, err)
		}
	})

	t.Run("admits newer editions under a distinguished name", func(t *testing.T) {
		p, ext := newTestProcessor(t)
		seedResident(t, p, "Clean Code", "first edition bytes", "2008")
		ext.books["Clean Code.pdf"] = &metadata.Book{Title: "Clean Code", Author: "Robert C. Martin", Year: "2021"}
		dropInBucket(t, p, "Clean Code.pdf", "second edition bytes")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		adm := admissions[0]
		if adm.Action != ActionAdmitted {
			t.Fatalf("expected admitted, got %s: %v", adm.Action, adm.Err)
		}
		if adm.Title != "Clean Code (2021)" {
			t.Errorf("expected distinguished title, got %q", adm.Title)
		}
		if adm.Dest != "Books/Originals/Clean Code 2021.pdf" {
			t.Errorf("unexpected dest %q", adm.Dest)
		}
		if adm.Book == nil || adm.Book.Title != "Clean Code (2021)" {
			t.Errorf("expected carried metadata with the new title, got %+v", adm.Book)
		}
		if _, err := os.Stat(p.Layout.Original("Clean Code 2021.pdf")); err != nil {
			t.Errorf("expected distinguished file: %v", err)
		}
	})

	t.Run("falls back to a hash suffix when years are unknown", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		writeTestFile(t, p.Layout.Original("Mystery.pdf"), "scan one")
		dropInBucket(t, p, "Mystery.pdf", "scan two")

		admissions, err := p.AdmitBucket(ctx)
		if err != nil {
			t.Fatalf("failed to admit bucket: %v", err)
		}
		adm := admissions[0]
		if adm.Action != ActionAdmitted {
			t.Fatalf("expected admitted, got %s: %v", adm.Action, adm.Err)
		}
		if !strings.HasPrefix(adm.Title, "Mystery (") {
			t.Errorf("expected hash-distinguished title, got %q", adm.Title)
		}
		if adm.Dest == "Books/Originals/Mystery.pdf" {
			t.Error("expected a distinguished destination")
		}
	})
}

func TestAdmitStrays(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)

	stray := filepath.Join(p.Layout.Root, "dropped.epub")
	writeTestFile(t, stray, "stray bytes")
	writeTestFile(t, filepath.Join(p.Layout.Root, "essay.docx"), "manual bytes")
	writeTestFile(t, p.Layout.Original("Settled.pdf"), "settled bytes")

	admissions, err := p.AdmitStrays(ctx)
	if err != nil {
		t.Fatalf("failed to admit strays: %v", err)
	}
	if len(admissions) != 2 {
		t.Fatalf("expected 2 admissions, got %d", len(admissions))
	}

	var admitted, manual int
	for _, adm := range admissions {
		switch adm.Action {
		case ActionAdmitted:
			admitted++
			if adm.Dest != "Books/Originals/dropped.epub" {
				t.Errorf("unexpected dest %q", adm.Dest)
			}
		case ActionManual:
			manual++
			if filepath.Base(adm.Source) != "essay.docx" {
				t.Errorf("unexpected manual file %q", adm.Source)
			}
		default:
			t.Errorf("unexpected action %s for %s", adm.Action, adm.Source)
		}
	}
	if admitted != 1 || manual != 1 {
		t.Errorf("expected 1 admitted and 1 manual, got %d and %d", admitted, manual)
	}
	if _, err := os.Stat(stray); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected stray to move into originals")
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases extension", "Deep Work.EPUB", "Deep Work.epub"},
		{"replaces reserved characters", "Atomic Habits: Tiny Changes.pdf", "Atomic Habits- Tiny Changes.pdf"},
		{"drops brackets", "Dune [2021] (reissue).mobi", "Dune 2021 reissue.mobi"},
		{"trims to untitled", "???.pdf", "untitled.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
