package paths

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	l := DefaultLayout("/vault")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"books", l.Books(), filepath.FromSlash("/vault/Books")},
		{"annotations", l.Annotations(), filepath.FromSlash("/vault/Books/Annotations")},
		{"markdowns", l.Markdowns(), filepath.FromSlash("/vault/Books/Markdowns")},
		{"annotated", l.Annotated(), filepath.FromSlash("/vault/Books/Annotated")},
		{"originals", l.Originals(), filepath.FromSlash("/vault/Books/Originals")},
		{"bucket", l.Bucket(), filepath.FromSlash("/vault/Bucket")},
		{"index", l.IndexFile(), filepath.FromSlash("/vault/Books/Book Index.md")},
		{"state", l.StateDir(), filepath.FromSlash("/vault/.marginalia")},
		{"landing page", l.LandingPage("Dune"), filepath.FromSlash("/vault/Books/Dune.md")},
		{"annotation doc", l.AnnotationDoc("Dune"), filepath.FromSlash("/vault/Books/Annotations/Dune - Annotations.md")},
		{"markdown doc", l.MarkdownDoc("Dune"), filepath.FromSlash("/vault/Books/Markdowns/Dune.md")},
		{"annotated doc", l.AnnotatedDoc("Dune"), filepath.FromSlash("/vault/Books/Annotated/Dune.md")},
		{"original", l.Original("Dune.epub"), filepath.FromSlash("/vault/Books/Originals/Dune.epub")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewLayoutFillsDefaults(t *testing.T) {
	l := NewLayout("/vault", Names{Books: "Library"})
	if l.Names.Books != "Library" {
		t.Errorf("Books = %q, want override kept", l.Names.Books)
	}
	if l.Names.Bucket != "Bucket" {
		t.Errorf("Bucket = %q, want default", l.Names.Bucket)
	}
	if l.Names.IndexFile != "Books/Book Index.md" {
		t.Errorf("IndexFile = %q, want default", l.Names.IndexFile)
	}
}

func TestRel(t *testing.T) {
	l := DefaultLayout("/vault")

	tests := []struct {
		name string
		abs  string
		want string
	}{
		{"inside vault", filepath.FromSlash("/vault/Books/Dune.md"), "Books/Dune.md"},
		{"nested", filepath.FromSlash("/vault/Books/Markdowns/Dune/ch01.md"), "Books/Markdowns/Dune/ch01.md"},
		{"outside vault", filepath.FromSlash("/elsewhere/Dune.md"), "/elsewhere/Dune.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Rel(tt.abs); got != tt.want {
				t.Errorf("Rel(%q) = %q, want %q", tt.abs, got, tt.want)
			}
		})
	}
}

func TestAbs(t *testing.T) {
	l := DefaultLayout("/vault")
	if got := l.Abs("Books/Dune.md"); got != filepath.FromSlash("/vault/Books/Dune.md") {
		t.Errorf("Abs = %q", got)
	}
}
