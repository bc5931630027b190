// Package landing renders the vault's generated documents: per-book
// landing pages, annotation stubs, and the master index.
//
// Regeneration is merge-aware. A landing page is the reader's document as
// much as the tool's, so rewriting one carries the hand-edited parts
// forward: reading status and progress, shelf numbers and other unknown
// front-matter fields, the Notes & Highlights section, and any synced
// highlight links. Running the indexer twice over an unchanged library
// leaves every page byte-identical.
package landing

import (
	"sort"
	"strconv"
	"strings"

	"marginalia/internal/dates"
	"marginalia/internal/metadata"
	"marginalia/internal/parser"
)

// Section markers other tools and the check command look for. The heading
// text is part of the vault's format; Annotator syncing and note
// preservation key off these exact lines.
const (
	VersionsHeading         = "## Document Versions"
	StatusHeading           = "## Reading Status"
	NotesHeading            = "## Notes & Highlights"
	HighlightsHeading       = "## Highlights & Annotations"
	DirectLinksHeading      = "### Direct Links to Highlights"
	KindleHighlightsHeading = "### Kindle Highlights"
)

const barWidth = 20

// Versions holds the vault-relative link targets for a landing page's
// Document Versions section. Empty fields are left out.
type Versions struct {
	Original      string
	AnnotationDoc string
	Markdown      string
	Annotated     string
}

// Render produces a complete landing page for a book.
func Render(b *metadata.Book, v Versions) string {
	format := b.Format
	if format == "" {
		format = "DOC"
	}
	status := b.Status
	if status == "" {
		status = "new"
	}
	lastOpened := b.LastOpened
	if lastOpened == "" {
		lastOpened = dates.Today()
	}

	blocks := []string{
		parser.Render(Fields(b), withBookTag(b.Tags)),
		"\n# " + b.Title,
		"\n" + VersionsHeading,
	}
	if v.Original != "" {
		blocks = append(blocks, "- [["+v.Original+"|Original ("+format+")]]")
	}
	if v.AnnotationDoc != "" {
		blocks = append(blocks, "- [["+v.AnnotationDoc+"|Annotations]]")
	}
	if v.Markdown != "" {
		blocks = append(blocks, "- [["+v.Markdown+"|Markdown Version]]")
	}
	if v.Annotated != "" {
		blocks = append(blocks, "- [["+v.Annotated+"|Annotated Markdown]]")
	}
	blocks = append(blocks,
		"\n"+StatusHeading,
		"- **Status**: "+status,
		"- **Last opened**: "+lastOpened,
		"- **Progress**: "+strconv.Itoa(b.ReadingProgress)+"%",
		"\n### Progress Bar",
		ProgressBar(b.ReadingProgress),
		"\n"+NotesHeading,
		"\n### Key Concepts",
		"- ",
		"\n### Important Quotes",
		"- ",
		"\n### Questions & Reflections",
		"- ",
	)
	return strings.Join(blocks, "\n") + "\n"
}

// Merge reconciles freshly extracted metadata with the front matter of an
// existing landing page. Hand-edited values win: status, reading progress,
// and last_annotated carry over when set, unknown fields survive
// wholesale, and tags are unioned. A corrupt front-matter block comes back
// as an error alongside the untouched fresh copy so callers can warn and
// regenerate.
func Merge(fresh *metadata.Book, existing string) (*metadata.Book, error) {
	out := fresh.Clone()
	fm, err := parser.Parse(existing)
	if err != nil {
		return out, err
	}
	if fm == nil {
		return out, nil
	}

	prev := metadata.FromFrontmatter(fm)
	if prev.Status != "" {
		out.Status = prev.Status
	}
	if prev.ReadingProgress != 0 {
		out.ReadingProgress = prev.ReadingProgress
	}
	if prev.LastAnnotated != "" {
		out.LastAnnotated = prev.LastAnnotated
	}
	if len(prev.Tags) > 0 {
		out.Tags = unionTags(prev.Tags, fresh.Tags)
	}
	for key, value := range prev.Extra {
		if value == "" {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]string)
		}
		if _, claimed := out.Extra[key]; !claimed {
			out.Extra[key] = value
		}
	}
	return out, nil
}

// Fields lays out a book's front matter in the canonical field order, so
// regenerated pages diff cleanly. A zero reading progress is omitted.
func Fields(b *metadata.Book) []parser.Field {
	progress := ""
	if b.ReadingProgress > 0 {
		progress = strconv.Itoa(b.ReadingProgress)
	}
	fields := []parser.Field{
		{Key: "title", Value: b.Title},
		{Key: "author", Value: b.Author},
		{Key: "publisher", Value: b.Publisher},
		{Key: "published", Value: b.Published},
		{Key: "year", Value: b.Year},
		{Key: "series", Value: b.Series},
		{Key: "rating", Value: b.Rating},
		{Key: "language", Value: b.Language},
		{Key: "format", Value: b.Format},
		{Key: "path", Value: b.Path},
		{Key: "status", Value: b.Status},
		{Key: "reading_progress", Value: progress},
		{Key: "last_opened", Value: b.LastOpened},
		{Key: "last_annotated", Value: b.LastAnnotated},
	}
	for _, key := range sortedKeys(b.Extra) {
		fields = append(fields, parser.Field{Key: key, Value: b.Extra[key]})
	}
	return fields
}

// ProgressBar renders the 20-cell reading progress bar.
func ProgressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * barWidth / 100
	return "`[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]` " + strconv.Itoa(percent) + "%"
}

// AppendVersionLink adds a link line at the end of the Document Versions
// section. The content comes back unchanged when the link is already
// present or the section is missing.
func AppendVersionLink(content, target, label string) (string, bool) {
	link := "- [[" + target + "|" + label + "]]"
	if strings.Contains(content, link) {
		return content, false
	}
	start, end, ok := parser.SectionSpan(content, VersionsHeading)
	if !ok {
		return content, false
	}

	lines := strings.Split(content, "\n")
	insert := end
	for insert > start+1 && strings.TrimSpace(lines[insert-1]) == "" {
		insert--
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insert]...)
	out = append(out, link)
	out = append(out, lines[insert:]...)
	return strings.Join(out, "\n"), true
}

// mergeBody carries the reader's sections of an existing page into a fresh
// render: the Notes & Highlights section verbatim, and the synced
// Highlights & Annotations section, which a fresh render never contains.
func mergeBody(fresh, existing string) string {
	if hStart, hEnd, ok := parser.SectionSpan(existing, HighlightsHeading); ok {
		if _, _, have := parser.SectionSpan(fresh, HighlightsHeading); !have {
			if nStart, _, ok := parser.SectionSpan(fresh, NotesHeading); ok {
				exLines := strings.Split(existing, "\n")
				frLines := strings.Split(fresh, "\n")
				out := make([]string, 0, len(frLines)+hEnd-hStart)
				out = append(out, frLines[:nStart]...)
				out = append(out, exLines[hStart:hEnd]...)
				out = append(out, frLines[nStart:]...)
				fresh = strings.Join(out, "\n")
			}
		}
	}
	return parser.ReplaceSection(fresh, existing, NotesHeading)
}

func withBookTag(tags []string) []string {
	for _, t := range tags {
		if t == "book" {
			return tags
		}
	}
	return append(append([]string(nil), tags...), "book")
}

func unionTags(existing, fresh []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range fresh {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
