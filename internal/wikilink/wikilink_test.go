package wikilink

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in          string
		wantTarget  string
		wantAnchor  string
		wantDisplay string
		wantOK      bool
	}{
		{in: "[[Books/Dune.md]]", wantTarget: "Books/Dune.md", wantOK: true},
		{in: " [[Books/Dune.md]] ", wantTarget: "Books/Dune.md", wantOK: true},
		{in: "[[Books/Dune.md|Dune]]", wantTarget: "Books/Dune.md", wantDisplay: "Dune", wantOK: true},
		{
			in:          "[[Books/Markdowns/Dune/ch01.md#^a1b2c3d4e5|the spice must flow...]]",
			wantTarget:  "Books/Markdowns/Dune/ch01.md",
			wantAnchor:  "a1b2c3d4e5",
			wantDisplay: "the spice must flow...",
			wantOK:      true,
		},
		{in: "[[]]", wantOK: false},
		{in: "Books/Dune.md", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			link, ok := Parse(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if link.Target != tt.wantTarget {
				t.Fatalf("target=%q, want %q", link.Target, tt.wantTarget)
			}
			if link.Anchor != tt.wantAnchor {
				t.Fatalf("anchor=%q, want %q", link.Anchor, tt.wantAnchor)
			}
			if link.Display != tt.wantDisplay {
				t.Fatalf("display=%q, want %q", link.Display, tt.wantDisplay)
			}
		})
	}
}

func TestFindAll(t *testing.T) {
	line := `- [[Books/Dune.md|Dune]] and [[Books/Emma.md]] but not [[[array]]]`
	links := FindAll(line)
	if len(links) != 2 {
		t.Fatalf("found %d links, want 2", len(links))
	}
	if links[0].Target != "Books/Dune.md" || links[0].Display != "Dune" {
		t.Errorf("first link = %+v", links[0])
	}
	if links[1].Target != "Books/Emma.md" || links[1].Display != "" {
		t.Errorf("second link = %+v", links[1])
	}
	if got := line[links[0].Start:links[0].End]; got != links[0].Literal {
		t.Errorf("literal offsets wrong: %q vs %q", got, links[0].Literal)
	}
}

func TestFindAllAnchors(t *testing.T) {
	line := `- [[Books/Markdowns/Dune/ch01.md#^abc123|snippet...]]`
	links := FindAll(line)
	if len(links) != 1 {
		t.Fatalf("found %d links, want 1", len(links))
	}
	if links[0].Anchor != "abc123" {
		t.Errorf("anchor = %q, want %q", links[0].Anchor, "abc123")
	}
	if links[0].Target != "Books/Markdowns/Dune/ch01.md" {
		t.Errorf("target = %q", links[0].Target)
	}
}

func TestRender(t *testing.T) {
	if got := Render("Books/Dune.md", ""); got != "[[Books/Dune.md]]" {
		t.Errorf("Render without display = %q", got)
	}
	if got := Render("Books/Dune.md", "Dune"); got != "[[Books/Dune.md|Dune]]" {
		t.Errorf("Render with display = %q", got)
	}
	if got := RenderAnchor("ch01.md", "abc123", "snippet"); got != "[[ch01.md#^abc123|snippet]]" {
		t.Errorf("RenderAnchor = %q", got)
	}
}
