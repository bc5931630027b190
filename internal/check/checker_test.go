package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marginalia/internal/paths"
)

func newTestChecker(t *testing.T) Checker {
	t.Helper()
	return Checker{Layout: paths.DefaultLayout(t.TempDir())}
}

func writeVaultFile(t *testing.T, layout paths.Layout, rel, content string) {
	t.Helper()
	path := layout.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// landingFixture is a landing page whose Document Versions section links
// the original, the annotation stub, and an extensionless markdown target.
func landingFixture(title string) string {
	return strings.Join([]string{
		"---",
		`title: "` + title + `"`,
		"---",
		"",
		"# " + title,
		"",
		"## Document Versions",
		"- [[Books/Originals/" + title + ".pdf|Original (PDF)]]",
		"- [[Books/Annotations/" + title + " - Annotations.md|Annotations]]",
		"- [[Books/Markdowns/" + title + "|Markdown Version]]",
		"",
		"## Reading Status",
		"- **Status**: new",
		"",
	}, "\n")
}

func TestCheckerCleanVault(t *testing.T) {
	c := newTestChecker(t)
	writeVaultFile(t, c.Layout, "Books/Deep Work.md", landingFixture("Deep Work"))
	writeVaultFile(t, c.Layout, "Books/Originals/Deep Work.pdf", "pdf")
	writeVaultFile(t, c.Layout, "Books/Annotations/Deep Work - Annotations.md", "# Deep Work - Annotations\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Deep Work.md", "# Deep Work\n\nA quote worth keeping. ^abc123\n")

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check vault: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected no issues, got %+v", report.Issues)
	}
}

func TestCheckerEmptyVault(t *testing.T) {
	c := newTestChecker(t)

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check empty vault: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected no issues, got %+v", report.Issues)
	}
}

func TestCheckerBrokenVersionLink(t *testing.T) {
	c := newTestChecker(t)
	writeVaultFile(t, c.Layout, "Books/Deep Work.md", landingFixture("Deep Work"))
	// Annotation stub and markdown exist, the original does not.
	writeVaultFile(t, c.Layout, "Books/Annotations/Deep Work - Annotations.md", "# stub\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Deep Work.md", "# Deep Work\n")

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check vault: %v", err)
	}

	var broken []Issue
	for _, issue := range report.Issues {
		if strings.Contains(issue.Message, "missing file") {
			broken = append(broken, issue)
		}
	}
	if len(broken) != 1 {
		t.Fatalf("expected 1 broken link, got %d: %+v", len(broken), report.Issues)
	}
	issue := broken[0]
	if issue.Level != LevelError {
		t.Errorf("expected an error, got %v", issue.Level)
	}
	if issue.FilePath != "Books/Deep Work.md" {
		t.Errorf("expected issue on the landing page, got %s", issue.FilePath)
	}
	if issue.Line != 8 {
		t.Errorf("expected line 8, got %d", issue.Line)
	}
	if !strings.Contains(issue.Message, "Books/Originals/Deep Work.pdf") {
		t.Errorf("expected the target in the message, got %q", issue.Message)
	}
}

func TestCheckerUnlinkedRenderings(t *testing.T) {
	c := newTestChecker(t)
	page := strings.Join([]string{
		"# Deep Work",
		"",
		"## Document Versions",
		"- [[Books/Markdowns/Deep Work.md|Markdown Version]]",
		"",
		"## Highlights & Annotations",
		"",
		"### Direct Links to Highlights",
		"",
		"- [[Books/Markdowns/Thinking Fast and Slow/ch01.md#^aaa111|quote]]",
		"",
	}, "\n")
	writeVaultFile(t, c.Layout, "Books/Deep Work.md", page)
	writeVaultFile(t, c.Layout, "Books/Markdowns/Deep Work.md", "# Deep Work\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Thinking Fast and Slow/ch01.md", "# Ch 1\n\nquote ^aaa111\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Orphan Notes.md", "# Orphan\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Unlinked Dir/ch01.md", "# Ch 1\n")

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check vault: %v", err)
	}

	if report.Warnings() != 2 {
		t.Fatalf("expected 2 warnings, got %d: %+v", report.Warnings(), report.Issues)
	}
	var got []string
	for _, issue := range report.Issues {
		if issue.Level != LevelWarning {
			t.Errorf("unexpected issue level for %+v", issue)
			continue
		}
		got = append(got, issue.FilePath)
	}
	want := []string{"Books/Markdowns/Orphan Notes.md", "Books/Markdowns/Unlinked Dir/ch01.md"}
	for _, path := range want {
		found := false
		for _, g := range got {
			if g == path {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s reported unlinked, got %v", path, got)
		}
	}
}

func TestCheckerOrphanAnnotationStub(t *testing.T) {
	c := newTestChecker(t)
	writeVaultFile(t, c.Layout, "Books/Deep Work.md", "# Deep Work\n")
	writeVaultFile(t, c.Layout, "Books/Annotations/Deep Work - Annotations.md", "# kept\n")
	writeVaultFile(t, c.Layout, "Books/Annotations/Ghost Book - Annotations.md", "# orphan\n")
	// Files without the annotations suffix are not stubs.
	writeVaultFile(t, c.Layout, "Books/Annotations/notes.md", "# scratch\n")

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check vault: %v", err)
	}

	if report.Errors() != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", report.Errors(), report.Issues)
	}
	issue := report.Issues[0]
	if issue.FilePath != "Books/Annotations/Ghost Book - Annotations.md" {
		t.Errorf("expected the orphan stub flagged, got %s", issue.FilePath)
	}
	if !strings.Contains(issue.Message, `"Ghost Book.md"`) {
		t.Errorf("expected the missing page named, got %q", issue.Message)
	}
}

func TestCheckerDuplicateAnchors(t *testing.T) {
	c := newTestChecker(t)
	rendering := strings.Join([]string{
		"# Dup",
		"",
		"some text ^dup1",
		"more text ^other",
		"repeated ^dup1",
		"```go",
		"fenced ^dup1",
		"```",
		"math x^2",
		"also repeated ^dup1",
		"",
	}, "\n")
	writeVaultFile(t, c.Layout, "Books/Markdowns/Dup.md", rendering)

	report, err := c.Run()
	if err != nil {
		t.Fatalf("failed to check vault: %v", err)
	}

	if report.Errors() != 2 {
		t.Fatalf("expected 2 errors, got %d: %+v", report.Errors(), report.Issues)
	}
	var dups []Issue
	for _, issue := range report.Issues {
		if issue.Level == LevelError {
			dups = append(dups, issue)
		}
	}
	if dups[0].Line != 5 || dups[1].Line != 10 {
		t.Errorf("expected duplicates at lines 5 and 10, got %d and %d", dups[0].Line, dups[1].Line)
	}
	for _, issue := range dups {
		if !strings.Contains(issue.Message, "^dup1") {
			t.Errorf("expected ^dup1 named, got %q", issue.Message)
		}
		if !strings.Contains(issue.Message, "line 3") {
			t.Errorf("expected the first definition at line 3 named, got %q", issue.Message)
		}
	}

	// The unlinked rendering itself is only a warning.
	if report.Warnings() != 1 {
		t.Errorf("expected 1 warning, got %d: %+v", report.Warnings(), report.Issues)
	}
}

func TestIssueLevelString(t *testing.T) {
	tests := []struct {
		level IssueLevel
		want  string
	}{
		{LevelError, "ERROR"},
		{LevelWarning, "WARN"},
		{IssueLevel(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
