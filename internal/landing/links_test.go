package landing

import (
	"strings"
	"testing"
)

func TestMergeHighlightLinksScaffold(t *testing.T) {
	content := Render(testBook(), testVersions())
	links := []HighlightLink{
		{BlockID: "a1b2c3", Text: "clarity about what matters"},
		{BlockID: "d4e5f6", Text: "the deep life is a good life"},
	}

	merged, added := MergeHighlightLinks(content, "Books/Markdowns/Deep Work.md", links)
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	want := strings.Join([]string{
		"## Highlights & Annotations",
		"",
		"### Direct Links to Highlights",
		"",
		"- [[Books/Markdowns/Deep Work.md#^a1b2c3|clarity about what matters]]",
		"- [[Books/Markdowns/Deep Work.md#^d4e5f6|the deep life is a good life]]",
		"",
		"## Notes & Highlights",
	}, "\n")
	if !strings.Contains(merged, want) {
		t.Errorf("section not scaffolded before the notes section:\n%s", merged)
	}
}

func TestMergeHighlightLinksSkipsKnownIDs(t *testing.T) {
	content := Render(testBook(), testVersions())
	links := []HighlightLink{{BlockID: "a1b2c3", Text: "clarity"}}

	merged, added := MergeHighlightLinks(content, "Books/Markdowns/Deep Work.md", links)
	if added != 1 {
		t.Fatalf("first merge added = %d, want 1", added)
	}
	again, added := MergeHighlightLinks(merged, "Books/Markdowns/Deep Work.md", links)
	if added != 0 {
		t.Errorf("second merge added = %d, want 0", added)
	}
	if again != merged {
		t.Error("merge with no new links changed the page")
	}
}

func TestMergeHighlightLinksKeepsExisting(t *testing.T) {
	content := Render(testBook(), testVersions())
	merged, _ := MergeHighlightLinks(content, "Books/Markdowns/Deep Work.md",
		[]HighlightLink{{BlockID: "old111", Text: "kept"}})

	merged, added := MergeHighlightLinks(merged, "Books/Markdowns/Deep Work.md",
		[]HighlightLink{{BlockID: "new222", Text: "added"}})
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	oldAt := strings.Index(merged, "^old111")
	newAt := strings.Index(merged, "^new222")
	if oldAt < 0 || newAt < 0 || oldAt > newAt {
		t.Errorf("links out of order or missing:\n%s", merged)
	}
}

func TestMergeHighlightLinksSubheadingOnly(t *testing.T) {
	content := "# Deep Work\n\n## Highlights & Annotations\n\n## Notes & Highlights\n\n### Key Concepts\n- \n"
	merged, added := MergeHighlightLinks(content, "Books/Markdowns/Deep Work.md",
		[]HighlightLink{{BlockID: "a1b2c3", Text: "clarity"}})
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if strings.Count(merged, HighlightsHeading) != 1 {
		t.Errorf("highlights heading duplicated:\n%s", merged)
	}
	if !strings.Contains(merged, DirectLinksHeading+"\n\n- [[") {
		t.Errorf("links subheading not inserted:\n%s", merged)
	}
}

func TestMergeHighlightLinksNoScaffoldTarget(t *testing.T) {
	content := "# Loose page\n\nSome prose.\n"
	merged, added := MergeHighlightLinks(content, "Books/Markdowns/X.md",
		[]HighlightLink{{BlockID: "a1b2c3", Text: "clarity"}})
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if !strings.HasPrefix(merged, "# Loose page\n\nSome prose.\n\n"+HighlightsHeading) {
		t.Errorf("section not appended at the end:\n%s", merged)
	}
	if !strings.HasSuffix(merged, "\n") {
		t.Error("merged page lost its trailing newline")
	}
}

func TestLinkPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "clarity about what matters", "clarity about what matters"},
		{"long", strings.Repeat("x", 55), strings.Repeat("x", 50) + "..."},
		{"multiline", "first line\nsecond   line", "first line second line"},
		{"link breakers", "a | b [c] d", "a  b c d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linkPreview(tt.text); got != tt.want {
				t.Errorf("linkPreview(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
