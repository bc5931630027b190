package landing

import (
	"strings"
	"testing"

	"marginalia/internal/metadata"
)

func TestRenderIndex(t *testing.T) {
	books := []*metadata.Book{
		{Title: "Zero to One", Author: "Peter Thiel", Format: "PDF"},
		{Title: "Antifragile", Author: "Nassim Nicholas Taleb", Format: "EPUB"},
		{Title: "The Black Swan", Author: "Nassim Nicholas Taleb", Format: "PDF"},
	}

	want := strings.Join([]string{
		"# Book Library Index",
		"",
		"This is an automatically generated index of all books in the library.",
		"",
		"## Current Reading",
		"",
		"```dataview",
		`TABLE author, format, reading_progress as "Progress", last_opened as "Last Opened"`,
		"FROM #book",
		`WHERE status = "current"`,
		"SORT last_opened DESC",
		"```",
		"",
		"## Next Up",
		"",
		"```dataview",
		"TABLE author, format",
		"FROM #book",
		`WHERE status = "next"`,
		"```",
		"",
		"## Books by Title",
		"",
		"- [[Books/Antifragile.md|Antifragile - Nassim Nicholas Taleb (EPUB)]]",
		"- [[Books/The Black Swan.md|The Black Swan - Nassim Nicholas Taleb (PDF)]]",
		"- [[Books/Zero to One.md|Zero to One - Peter Thiel (PDF)]]",
		"",
		"## Books by Author",
		"",
		"### Nassim Nicholas Taleb",
		"",
		"- [[Books/Antifragile.md|Antifragile (EPUB)]]",
		"- [[Books/The Black Swan.md|The Black Swan (PDF)]]",
		"",
		"### Peter Thiel",
		"",
		"- [[Books/Zero to One.md|Zero to One (PDF)]]",
		"",
	}, "\n")

	got := RenderIndex(books, "Books")
	if got != want {
		t.Errorf("RenderIndex mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderIndexUnknownAuthor(t *testing.T) {
	books := []*metadata.Book{{Title: "Mystery Draft", Format: "PDF"}}

	got := RenderIndex(books, "Books")
	if !strings.Contains(got, "- [[Books/Mystery Draft.md|Mystery Draft - Unknown Author (PDF)]]") {
		t.Errorf("by-title entry missing:\n%s", got)
	}
	if strings.Contains(got, "## Books by Author") {
		t.Errorf("author section rendered with no authors:\n%s", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("index lost its trailing newline")
	}
}

func TestRenderIndexSanitizesLinkTargets(t *testing.T) {
	books := []*metadata.Book{{Title: "Venture: A Memoir", Author: "A. Founder", Format: "PDF"}}

	got := RenderIndex(books, "Books")
	if !strings.Contains(got, "- [[Books/Venture- A Memoir.md|Venture: A Memoir - A. Founder (PDF)]]") {
		t.Errorf("link target not sanitized:\n%s", got)
	}
}
