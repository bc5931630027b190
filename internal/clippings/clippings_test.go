package clippings

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleClippings = `Thinking Fast and Slow (Daniel Kahneman)
- Your Highlight on page 45 | Location 682-684 | Added on Friday, March 15, 2024 10:23:45 PM

the motorcycle made the turn without unseating either of its riders
==========
Thinking Fast and Slow (Daniel Kahneman)
- Your Note on page 46 | Location 690 | Added on Friday, March 15, 2024 10:25:00 PM

Remember this passage
==========
Meditations
- Your Bookmark on page 12 | Location 150 | Added on Saturday, March 16, 2024 08:00:00 AM

==========`

func TestParseKindle(t *testing.T) {
	annotations := ParseKindle(sampleClippings)
	if len(annotations) != 3 {
		t.Fatalf("len = %d, want 3", len(annotations))
	}

	first := annotations[0]
	if first.Source != SourceKindle || first.Kind != KindHighlight {
		t.Errorf("first = %+v", first)
	}
	if first.BookTitle != "Thinking Fast and Slow" || first.Author != "Daniel Kahneman" {
		t.Errorf("BookTitle = %q, Author = %q", first.BookTitle, first.Author)
	}
	if first.Location != "682-684" {
		t.Errorf("Location = %q", first.Location)
	}
	if first.Date != "Friday, March 15, 2024 10:23:45 PM" {
		t.Errorf("Date = %q", first.Date)
	}
	if first.Text != "the motorcycle made the turn without unseating either of its riders" {
		t.Errorf("Text = %q", first.Text)
	}

	if annotations[1].Kind != KindNote || annotations[1].Text != "Remember this passage" {
		t.Errorf("second = %+v", annotations[1])
	}

	third := annotations[2]
	if third.Kind != KindBookmark || third.BookTitle != "Meditations" {
		t.Errorf("third = %+v", third)
	}
	if third.Author != "" {
		t.Errorf("Author = %q, want empty for bare title", third.Author)
	}
	if third.Text != "" {
		t.Errorf("Text = %q, want empty for bookmark", third.Text)
	}
}

func TestParseKindleBOM(t *testing.T) {
	annotations := ParseKindle("\uFEFF" + sampleClippings)
	if len(annotations) != 3 {
		t.Fatalf("len = %d, want 3 with BOM stripped", len(annotations))
	}
	if annotations[0].BookTitle != "Thinking Fast and Slow" {
		t.Errorf("BookTitle = %q", annotations[0].BookTitle)
	}
}

func TestParseKindleTitleParens(t *testing.T) {
	entry := "Gödel, Escher, Bach (20th Anniversary Edition) (Douglas Hofstadter)\n- Your Highlight | Location 10 | Added on Monday\n\nsome text\n"
	annotations := ParseKindle(entry)
	if len(annotations) != 1 {
		t.Fatalf("len = %d, want 1", len(annotations))
	}
	got := annotations[0]
	if got.BookTitle != "Gödel, Escher, Bach (20th Anniversary Edition)" {
		t.Errorf("BookTitle = %q", got.BookTitle)
	}
	if got.Author != "Douglas Hofstadter" {
		t.Errorf("Author = %q", got.Author)
	}
}

func TestParseKindleDegenerate(t *testing.T) {
	if got := ParseKindle(""); len(got) != 0 {
		t.Errorf("empty blob parsed to %d annotations", len(got))
	}
	if got := ParseKindle("just one line"); len(got) != 0 {
		t.Errorf("single line parsed to %d annotations", len(got))
	}
}

func TestParseKindleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "My Clippings.txt")
	if err := os.WriteFile(path, []byte(sampleClippings), 0o644); err != nil {
		t.Fatal(err)
	}
	annotations, err := ParseKindleFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(annotations) != 3 {
		t.Errorf("len = %d, want 3", len(annotations))
	}

	if _, err := ParseKindleFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ParseKindleFile() expected error for missing file")
	}
}

func TestGroupByTitle(t *testing.T) {
	grouped := GroupByTitle(ParseKindle(sampleClippings))
	if len(grouped) != 2 {
		t.Fatalf("groups = %d, want 2", len(grouped))
	}
	if len(grouped["Thinking Fast and Slow"]) != 2 {
		t.Errorf("Thinking Fast and Slow group = %d entries", len(grouped["Thinking Fast and Slow"]))
	}
	if len(grouped["Meditations"]) != 1 {
		t.Errorf("Meditations group = %d entries", len(grouped["Meditations"]))
	}
}
