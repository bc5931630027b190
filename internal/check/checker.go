// Package check audits a vault for drift between its generated documents:
// landing pages whose Document Versions links point nowhere, markdown
// renderings no landing page links to, annotation stubs whose parent page
// is gone, and duplicate block anchors inside a rendering.
package check

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"marginalia/internal/landing"
	"marginalia/internal/parser"
	"marginalia/internal/paths"
	"marginalia/internal/vault"
	"marginalia/internal/wikilink"
)

// Issue represents one finding from a vault check.
type Issue struct {
	Level    IssueLevel
	FilePath string // vault-relative
	Line     int    // 1-based, 0 when the finding has no specific line
	Message  string
}

// IssueLevel indicates the severity of an issue.
type IssueLevel int

const (
	LevelError IssueLevel = iota
	LevelWarning
)

func (l IssueLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// Report collects the issues from one vault pass.
type Report struct {
	Issues []Issue

	// Pages is how many landing pages the pass covered.
	Pages int
}

// Errors counts the error-level issues.
func (r *Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Level == LevelError {
			n++
		}
	}
	return n
}

// Warnings counts the warning-level issues.
func (r *Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Checker walks the vault's generated documents looking for drift.
type Checker struct {
	Layout paths.Layout
}

// page is a loaded landing page with its content split into lines.
type page struct {
	rel   string
	lines []string
	text  string
}

// Run executes every check and returns the combined report, sorted by file
// path then line.
func (c Checker) Run() (*Report, error) {
	pages, err := c.loadPages()
	if err != nil {
		return nil, err
	}

	report := &Report{Pages: len(pages)}
	c.checkVersionLinks(report, pages)
	if err := c.checkRenderings(report, pages); err != nil {
		return nil, err
	}
	if err := c.checkAnnotationStubs(report); err != nil {
		return nil, err
	}
	if err := c.checkAnchors(report); err != nil {
		return nil, err
	}

	sort.Slice(report.Issues, func(a, b int) bool {
		x, y := report.Issues[a], report.Issues[b]
		if x.FilePath != y.FilePath {
			return x.FilePath < y.FilePath
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		return x.Message < y.Message
	})
	return report, nil
}

func (c Checker) loadPages() ([]page, error) {
	scanned, err := vault.Pages(c.Layout)
	if err != nil {
		return nil, fmt.Errorf("scan landing pages: %w", err)
	}
	var pages []page
	for _, pg := range scanned {
		raw, err := os.ReadFile(pg.Path)
		if err != nil {
			return nil, fmt.Errorf("read landing page: %w", err)
		}
		text := string(raw)
		pages = append(pages, page{
			rel:   c.Layout.Rel(pg.Path),
			lines: strings.Split(text, "\n"),
			text:  text,
		})
	}
	return pages, nil
}

// checkVersionLinks verifies that every link in a landing page's Document
// Versions section resolves to a file in the vault.
func (c Checker) checkVersionLinks(report *Report, pages []page) {
	for _, pg := range pages {
		start, end, ok := parser.SectionSpan(pg.text, landing.VersionsHeading)
		if !ok {
			continue
		}
		for i := start + 1; i < end; i++ {
			for _, link := range wikilink.FindAll(pg.lines[i]) {
				if c.targetExists(link.Target) {
					continue
				}
				report.Issues = append(report.Issues, Issue{
					Level:    LevelError,
					FilePath: pg.rel,
					Line:     i + 1,
					Message:  fmt.Sprintf("version link [[%s]] points at a missing file", link.Target),
				})
			}
		}
	}
}

// targetExists resolves a wiki-link target against the vault root. A bare
// target without an extension also matches its .md document, the way
// Obsidian resolves it.
func (c Checker) targetExists(target string) bool {
	abs := c.Layout.Abs(target)
	if st, err := os.Stat(abs); err == nil && !st.IsDir() {
		return true
	}
	if filepath.Ext(target) == "" {
		if st, err := os.Stat(abs + ".md"); err == nil && !st.IsDir() {
			return true
		}
	}
	return false
}

// checkRenderings flags markdown renderings no landing page links to.
// Highlight links count as much as version links; any reference at all
// means the rendering is wired up.
func (c Checker) checkRenderings(report *Report, pages []page) error {
	renderings, err := vault.Renderings(c.Layout)
	if err != nil {
		return fmt.Errorf("scan renderings: %w", err)
	}
	if len(renderings) == 0 {
		return nil
	}

	targets := make(map[string]bool)
	for _, pg := range pages {
		for _, line := range pg.lines {
			for _, link := range wikilink.FindAll(line) {
				targets[link.Target] = true
			}
		}
	}

	markdownsRel := filepath.ToSlash(c.Layout.Names.Markdowns)
	for _, r := range renderings {
		rel := filepath.ToSlash(c.Layout.Rel(r.Path))
		dirPrefix := markdownsRel + "/" + r.Name + "/"
		linked := targets[rel] || targets[strings.TrimSuffix(rel, ".md")]
		if !linked {
			for t := range targets {
				if strings.HasPrefix(t, dirPrefix) {
					linked = true
					break
				}
			}
		}
		if !linked {
			report.Issues = append(report.Issues, Issue{
				Level:    LevelWarning,
				FilePath: rel,
				Message:  fmt.Sprintf("rendering %q is not linked from any landing page (run match)", r.Name),
			})
		}
	}
	return nil
}

// checkAnnotationStubs flags annotation documents whose parent landing page
// no longer exists. The stub still holds the reader's annotations, so a
// missing parent strands them.
func (c Checker) checkAnnotationStubs(report *Report) error {
	dir := c.Layout.Annotations()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		stem := strings.TrimSuffix(name, ".md")
		safe, ok := strings.CutSuffix(stem, paths.AnnotationsSuffix)
		if !ok {
			continue
		}
		if fileMissing(c.Layout.LandingPage(safe)) {
			report.Issues = append(report.Issues, Issue{
				Level:    LevelError,
				FilePath: c.Layout.Rel(filepath.Join(dir, name)),
				Message:  fmt.Sprintf("annotation stub has no landing page %q", safe+".md"),
			})
		}
	}
	return nil
}

// anchorPattern matches a block anchor at the end of a line. The leading
// boundary keeps carets inside words (x^2) from counting.
var anchorPattern = regexp.MustCompile(`(?:^|\s)\^(\w+)\s*$`)

// checkAnchors scans every markdown file under the renderings directory for
// block anchors defined twice in the same file. Obsidian resolves a
// duplicated anchor to whichever line it finds first, so the second
// definition silently breaks deep links.
func (c Checker) checkAnchors(report *Report) error {
	dir := c.Layout.Markdowns()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			// Best-effort: a missing renderings directory is an empty scan.
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel := c.Layout.Rel(path)
		first := make(map[string]int)
		inFence := false
		for i, line := range strings.Split(string(raw), "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = !inFence
				continue
			}
			if inFence {
				continue
			}
			m := anchorPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			id := m[1]
			if at, seen := first[id]; seen {
				report.Issues = append(report.Issues, Issue{
					Level:    LevelError,
					FilePath: rel,
					Line:     i + 1,
					Message:  fmt.Sprintf("duplicate anchor ^%s (first defined at line %d)", id, at),
				})
				continue
			}
			first[id] = i + 1
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	return nil
}

func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}
