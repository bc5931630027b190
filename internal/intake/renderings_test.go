package intake

import (
	"path/filepath"
	"strings"
	"testing"
)

// writeLandingFixture lays down a minimal landing page with the sections
// version links land in.
func writeLandingFixture(t *testing.T, p *Processor, stem, title, author string) string {
	t.Helper()
	path := filepath.Join(p.Layout.Books(), stem+".md")
	content := strings.Join([]string{
		"---",
		`title: "` + title + `"`,
		`author: "` + author + `"`,
		"---",
		"",
		"# " + title,
		"",
		"## Document Versions",
		"- [[Books/Originals/" + stem + ".pdf|Original (PDF)]]",
		"",
		"## Reading Status",
		"- **Status**: new",
		"",
	}, "\n")
	writeTestFile(t, path, content)
	return path
}

func renderingFixtures(t *testing.T, p *Processor) {
	t.Helper()
	md := p.Layout.Markdowns()
	writeTestFile(t, filepath.Join(md, "Thinking Fast and Slow", "Thinking Fast and Slow.md"), "# Thinking Fast and Slow\n")
	writeTestFile(t, filepath.Join(md, "Cal Newport - Deep Work", "ch01.md"), "# Chapter 1\n")
	writeTestFile(t, filepath.Join(md, "Cal Newport - Deep Work", "ch02.md"), "# Chapter 2\n")
	writeTestFile(t, filepath.Join(md, "Random Notes.md"), "# Random Notes\n")
}

func TestLinkRenderings(t *testing.T) {
	t.Run("links pages to their renderings", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		kahneman := writeLandingFixture(t, p, "Thinking Fast and Slow - Daniel Kahneman", "Thinking Fast and Slow", "Daniel Kahneman")
		newport := writeLandingFixture(t, p, "Deep Work", "Deep Work", "Cal Newport")
		writeLandingFixture(t, p, "Obscure Treatise", "Obscure Treatise", "Unknown Author")
		renderingFixtures(t, p)

		report, err := p.LinkRenderings()
		if err != nil {
			t.Fatalf("failed to link renderings: %v", err)
		}

		if report.Updated != 2 {
			t.Errorf("expected 2 pages updated, got %d", report.Updated)
		}
		if len(report.Links) != 2 {
			t.Fatalf("expected 2 links, got %d", len(report.Links))
		}

		content := readPage(t, newport)
		if !strings.Contains(content, "- [[Books/Markdowns/Cal Newport - Deep Work/ch01.md|Markdown Version]]") {
			t.Error("expected a markdown link on the Deep Work page")
		}
		content = readPage(t, kahneman)
		if !strings.Contains(content, "- [[Books/Markdowns/Thinking Fast and Slow/Thinking Fast and Slow.md|Markdown Version]]") {
			t.Error("expected a markdown link on the Kahneman page")
		}

		if len(report.UnmatchedPages) != 1 || report.UnmatchedPages[0] != "Obscure Treatise" {
			t.Errorf("expected Obscure Treatise unmatched, got %v", report.UnmatchedPages)
		}
		if len(report.UnmatchedRenderings) != 1 || report.UnmatchedRenderings[0] != "Random Notes" {
			t.Errorf("expected Random Notes unmatched, got %v", report.UnmatchedRenderings)
		}
	})

	t.Run("second run adds nothing", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		writeLandingFixture(t, p, "Deep Work", "Deep Work", "Cal Newport")
		renderingFixtures(t, p)

		if _, err := p.LinkRenderings(); err != nil {
			t.Fatalf("failed to link renderings: %v", err)
		}
		report, err := p.LinkRenderings()
		if err != nil {
			t.Fatalf("failed to link renderings again: %v", err)
		}
		if report.Updated != 0 {
			t.Errorf("expected no updates on the second run, got %d", report.Updated)
		}
		if len(report.Links) != 1 {
			t.Errorf("expected the match still reported, got %d", len(report.Links))
		}
	})

	t.Run("dry run records matches only", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		p.DryRun = true
		page := writeLandingFixture(t, p, "Deep Work", "Deep Work", "Cal Newport")
		renderingFixtures(t, p)

		report, err := p.LinkRenderings()
		if err != nil {
			t.Fatalf("failed to link renderings: %v", err)
		}
		if report.Updated != 0 {
			t.Errorf("expected no writes, got %d", report.Updated)
		}
		if len(report.Links) != 1 {
			t.Fatalf("expected 1 match, got %d", len(report.Links))
		}
		if report.Links[0].Rendering != "Cal Newport - Deep Work" {
			t.Errorf("unexpected match %q", report.Links[0].Rendering)
		}
		if strings.Contains(readPage(t, page), "Markdown Version") {
			t.Error("expected the page untouched")
		}
	})

	t.Run("no renderings leaves every page unmatched", func(t *testing.T) {
		p, _ := newTestProcessor(t)
		writeLandingFixture(t, p, "Deep Work", "Deep Work", "Cal Newport")

		report, err := p.LinkRenderings()
		if err != nil {
			t.Fatalf("failed to link renderings: %v", err)
		}
		if len(report.UnmatchedPages) != 1 || report.UnmatchedPages[0] != "Deep Work" {
			t.Errorf("expected Deep Work unmatched, got %v", report.UnmatchedPages)
		}
	})
}
