// Package clippings parses reader annotations from their two sources:
// Kindle "My Clippings.txt" exports and Obsidian Annotator documents.
package clippings

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Source identifies where an annotation came from.
type Source string

const (
	SourceKindle   Source = "kindle"
	SourceObsidian Source = "obsidian"
)

// Kind is the annotation type.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindNote      Kind = "note"
	KindBookmark  Kind = "bookmark"
)

// Annotation is one reader-authored highlight or note. Author is empty when
// the source does not name one.
type Annotation struct {
	Source     Source
	Kind       Kind
	BookTitle  string
	Author     string
	Location   string
	Date       string
	Text       string
	Comment    string
	TargetFile string // vault-relative original file, when the source names it
}

// Kindle clippings separate entries with a line of ten equals signs.
const kindleSeparator = "=========="

var (
	// "Title (Author)" with the author parenthetical optional.
	titleAuthorPattern = regexp.MustCompile(`^(.*?)(?:\s*\(([^)]+)\))?$`)
	locationPattern    = regexp.MustCompile(`Location (\d+-?\d*)`)
	addedOnPattern     = regexp.MustCompile(`Added on (.+)`)
)

// ParseKindleFile reads and parses a My Clippings.txt export.
func ParseKindleFile(path string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clippings: %w", err)
	}
	return ParseKindle(string(data)), nil
}

// ParseKindle parses the clippings blob. Malformed entries are dropped, not
// fatal; bookmarks come through with empty text.
func ParseKindle(content string) []Annotation {
	content = strings.TrimPrefix(content, "\uFEFF")

	var annotations []Annotation
	for _, entry := range strings.Split(content, kindleSeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if a, ok := parseKindleEntry(entry); ok {
			annotations = append(annotations, a)
		}
	}
	return annotations
}

func parseKindleEntry(entry string) (Annotation, bool) {
	lines := strings.Split(entry, "\n")
	if len(lines) < 2 {
		return Annotation{}, false
	}

	a := Annotation{Source: SourceKindle, Kind: KindHighlight}

	titleLine := strings.TrimSpace(lines[0])
	if m := titleAuthorPattern.FindStringSubmatch(titleLine); m != nil {
		a.BookTitle = strings.TrimSpace(m[1])
		a.Author = strings.TrimSpace(m[2])
	} else {
		a.BookTitle = titleLine
	}
	if a.BookTitle == "" {
		return Annotation{}, false
	}

	meta := strings.TrimSpace(lines[1])
	switch {
	case strings.Contains(meta, "Your Note"):
		a.Kind = KindNote
	case strings.Contains(meta, "Your Bookmark"):
		a.Kind = KindBookmark
	}
	if m := locationPattern.FindStringSubmatch(meta); m != nil {
		a.Location = m[1]
	}
	if m := addedOnPattern.FindStringSubmatch(meta); m != nil {
		a.Date = strings.TrimSpace(m[1])
	}

	a.Text = strings.TrimSpace(strings.Join(lines[2:], "\n"))
	return a, true
}

// GroupByTitle buckets annotations by their book title.
func GroupByTitle(annotations []Annotation) map[string][]Annotation {
	grouped := make(map[string][]Annotation)
	for _, a := range annotations {
		if a.BookTitle == "" {
			continue
		}
		grouped[a.BookTitle] = append(grouped[a.BookTitle], a)
	}
	return grouped
}
