// Package slugs provides the two name transformations used across marginalia:
//
//   - Safe file names: book titles sanitized for use as vault file names and
//     YAML values. These keep spaces and case so generated documents stay
//     readable in the vault ("Thinking, Fast and Slow.md").
//   - Book slugs: lowercase hyphenated lookup keys for the catalog, built on
//     gosimple/slug, so `mgn show thinking-fast-and-slow` resolves without
//     exact punctuation.
package slugs

import (
	"regexp"
	"strings"

	goslug "github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

var (
	bracketChars  = regexp.MustCompile(`[\[\]()]`)
	reservedChars = regexp.MustCompile(`[:\\/*?"<>|]`)
	hyphenRuns    = regexp.MustCompile(`-+`)
)

// SafeFileName sanitizes text for use as a file name and as a YAML value.
// Brackets and parentheses are dropped, file-system reserved characters
// become hyphens, non-ASCII text is transliterated, hyphen runs collapse,
// and leading/trailing hyphens and spaces are trimmed.
func SafeFileName(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = bracketChars.ReplaceAllString(text, "")
	text = reservedChars.ReplaceAllString(text, "-")
	text = unidecode.Unidecode(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	text = hyphenRuns.ReplaceAllString(b.String(), "-")
	return strings.Trim(text, "- ")
}

// BookSlug converts a title to a lowercase hyphenated catalog key.
func BookSlug(title string) string {
	s := goslug.Make(title)
	if s == "" {
		s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
	}
	return s
}
