package landing

import (
	"regexp"
	"strings"

	"marginalia/internal/parser"
	"marginalia/internal/wikilink"
)

// previewLen caps the link label cut from a highlight's text.
const previewLen = 50

var blockRefPattern = regexp.MustCompile(`\^\w+`)

// HighlightLink is one anchored highlight to surface on a landing page.
type HighlightLink struct {
	BlockID string
	Text    string
}

// MergeHighlightLinks ensures the Highlights & Annotations section exists
// on a landing page and adds one link per new block ID, keeping whatever
// links are already there. Links point into the book's markdown rendering
// at markdownRel. Returns the updated content and how many links were
// added; zero additions leave the content untouched.
func MergeHighlightLinks(content, markdownRel string, links []HighlightLink) (string, int) {
	content = ensureLinkSections(content)
	start, end, ok := parser.SectionSpan(content, DirectLinksHeading)
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
		if strings.HasPrefix(strings.TrimSpace(line), "- [[") {
			if ref := blockRefPattern.FindString(line); ref != "" {
				existing[ref] = true
			}
		}
	}

	added := 0
	for _, l := range links {
		if l.BlockID == "" || existing["^"+l.BlockID] {
			continue
		}
		kept = append(kept, "- "+wikilink.RenderAnchor(markdownRel, l.BlockID, linkPreview(l.Text)))
		existing["^"+l.BlockID] = true
		added++
	}
	if added == 0 {
		return content, 0
	}

	out := make([]string, 0, len(lines)+added+2)
	out = append(out, lines[:start+1]...)
	out = append(out, "")
	out = append(out, kept...)
	out = append(out, "")
	if end < len(lines) {
		out = append(out, lines[end:]...)
	}
	return strings.Join(out, "\n"), added
}

// ensureLinkSections makes sure the highlights section and its links
// subheading exist, inserting them just before Notes & Highlights the way
// synced pages lay them out, or at the end of a page that has no notes
// scaffold.
func ensureLinkSections(content string) string {
	if _, _, ok := parser.SectionSpan(content, DirectLinksHeading); ok {
		return content
	}
	lines := strings.Split(content, "\n")

	if hStart, _, ok := parser.SectionSpan(content, HighlightsHeading); ok {
		out := make([]string, 0, len(lines)+2)
		out = append(out, lines[:hStart+1]...)
		out = append(out, "", DirectLinksHeading)
		out = append(out, lines[hStart+1:]...)
		return strings.Join(out, "\n")
	}

	if nStart, _, ok := parser.SectionSpan(content, NotesHeading); ok {
		out := make([]string, 0, len(lines)+4)
		out = append(out, lines[:nStart]...)
		out = append(out, HighlightsHeading, "", DirectLinksHeading, "")
		out = append(out, lines[nStart:]...)
		return strings.Join(out, "\n")
	}

	return strings.TrimRight(content, "\n") + "\n\n" + HighlightsHeading + "\n\n" + DirectLinksHeading + "\n"
}

// linkPreview flattens highlight text into a short single-line label that
// cannot break the wiki link around it.
func linkPreview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Map(func(r rune) rune {
		switch r {
		case '|', '[', ']':
			return -1
		}
		return r
	}, text)
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
