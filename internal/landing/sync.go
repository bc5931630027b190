package landing

import (
	"fmt"
	"os"
	"strings"

	"marginalia/internal/atomicfile"
	"marginalia/internal/metadata"
	"marginalia/internal/parser"
)

// Quote is one annotation rendered directly onto a landing page, the
// fallback for books that have no markdown rendering to anchor into.
type Quote struct {
	Text     string
	Comment  string
	Location string
}

// MergeKindleHighlights ensures the Kindle Highlights subsection exists
// under Highlights & Annotations and appends one quote callout per new
// annotation. Quotes already on the page are kept and never repeated.
// Returns the updated content and how many quotes were added; zero
// additions leave the content untouched.
func MergeKindleHighlights(content string, quotes []Quote) (string, int) {
	content = ensureQuoteSection(content)
	start, end, ok := parser.SectionSpan(content, KindleHighlightsHeading)
	if !ok {
		return content, 0
	}

	lines := strings.Split(content, "\n")
	existing := make(map[string]bool)
	var kept []string
	for _, line := range lines[start+1 : end] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
		if text, ok := quotedText(line); ok {
			existing[text] = true
		}
	}

	added := 0
	for _, q := range quotes {
		text := flatten(q.Text)
		if text == "" || existing[text] {
			continue
		}
		if len(kept) > 0 {
			kept = append(kept, "")
		}
		kept = append(kept, renderQuote(q, text)...)
		existing[text] = true
		added++
	}
	if added == 0 {
		return content, 0
	}

	out := make([]string, 0, len(lines)+len(kept)+2)
	out = append(out, lines[:start+1]...)
	out = append(out, "")
	out = append(out, kept...)
	out = append(out, "")
	if end < len(lines) {
		out = append(out, lines[end:]...)
	}
	return strings.Join(out, "\n"), added
}

// renderQuote lays out one annotation as an Obsidian quote callout, the
// location in the header and any reader note beneath the text.
func renderQuote(q Quote, text string) []string {
	header := "> [!quote] Highlight"
	if q.Location != "" {
		header = "> [!quote] Location " + q.Location
	}
	block := []string{header, "> " + text}
	if comment := flatten(q.Comment); comment != "" {
		block = append(block, ">", "> **Note**: "+comment)
	}
	return block
}

// quotedText pulls the highlight text back out of a rendered callout
// line, skipping headers and note lines so dedup keys on the quote
// itself.
func quotedText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, "> ")
	if !ok {
		return "", false
	}
	if strings.HasPrefix(rest, "[!") || strings.HasPrefix(rest, "**Note**:") {
		return "", false
	}
	return rest, true
}

// ensureQuoteSection makes sure the Kindle Highlights subheading exists,
// at the end of the highlights section when the page has one so synced
// links keep first position, otherwise in a fresh section before Notes &
// Highlights or at the end of the page.
func ensureQuoteSection(content string) string {
	if _, _, ok := parser.SectionSpan(content, KindleHighlightsHeading); ok {
		return content
	}
	lines := strings.Split(content, "\n")

	if _, hEnd, ok := parser.SectionSpan(content, HighlightsHeading); ok {
		insert := hEnd
		for insert > 0 && strings.TrimSpace(lines[insert-1]) == "" {
			insert--
		}
		out := make([]string, 0, len(lines)+2)
		out = append(out, lines[:insert]...)
		out = append(out, "", KindleHighlightsHeading)
		out = append(out, lines[insert:]...)
		return strings.Join(out, "\n")
	}

	if nStart, _, ok := parser.SectionSpan(content, NotesHeading); ok {
		out := make([]string, 0, len(lines)+4)
		out = append(out, lines[:nStart]...)
		out = append(out, HighlightsHeading, "", KindleHighlightsHeading, "")
		out = append(out, lines[nStart:]...)
		return strings.Join(out, "\n")
	}

	return strings.TrimRight(content, "\n") + "\n\n" + HighlightsHeading + "\n\n" + KindleHighlightsHeading + "\n"
}

// MarkAnnotated stamps last_annotated into a landing page's front
// matter, rewriting the block in canonical field order. Reports whether
// the content changed; pages without parseable front matter come back
// untouched.
func MarkAnnotated(content, date string) (string, bool) {
	fm, err := parser.Parse(content)
	if err != nil || fm == nil {
		return content, false
	}
	if fm.Get("last_annotated") == date {
		return content, false
	}
	b := metadata.FromFrontmatter(fm)
	b.LastAnnotated = date
	head := parser.Render(Fields(b), fm.Tags)
	return head + "\n\n" + parser.Body(content), true
}

// AddKindleHighlights records quote callouts for annotations that have
// no rendering to anchor into. Returns how many quotes were new.
func (w Writer) AddKindleHighlights(landingPath string, quotes []Quote) (int, error) {
	raw, err := os.ReadFile(landingPath)
	if err != nil {
		return 0, fmt.Errorf("read landing page: %w", err)
	}
	merged, added := MergeKindleHighlights(string(raw), quotes)
	if added == 0 {
		return 0, nil
	}
	if err := atomicfile.WriteDoc(landingPath, []byte(merged)); err != nil {
		return 0, fmt.Errorf("write landing page: %w", err)
	}
	return added, nil
}

// TouchAnnotated stamps the annotation date on a landing page. Reports
// whether the page changed.
func (w Writer) TouchAnnotated(landingPath, date string) (bool, error) {
	raw, err := os.ReadFile(landingPath)
	if err != nil {
		return false, fmt.Errorf("read landing page: %w", err)
	}
	updated, changed := MarkAnnotated(string(raw), date)
	if !changed {
		return false, nil
	}
	if err := atomicfile.WriteDoc(landingPath, []byte(updated)); err != nil {
		return false, fmt.Errorf("write landing page: %w", err)
	}
	return true, nil
}

// flatten folds an annotation's text onto one line so it cannot break
// the callout around it.
func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
