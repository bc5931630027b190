// Package wikilink parses and renders the vault's wiki-style links.
//
// Link grammar:
//
//	[[target]]
//	[[target|display text]]
//	[[target#^anchorid|display text]]
//
// The #^anchorid suffix deep-links to an anchored line inside the target
// document. Targets and display text are trimmed of surrounding whitespace.
// This package does not understand code fences; callers decide which
// regions of a document get scanned.
package wikilink

import (
	"regexp"
	"strings"
)

// Link is a wikilink found in a line of text.
type Link struct {
	Target  string // path portion, without any anchor suffix
	Anchor  string // block anchor ID when the target carries #^id, else ""
	Display string // display text, "" when the link has none
	Start   int
	End     int
	Literal string
}

// re matches [[target]] or [[target|display]]. The target cannot contain
// brackets, which keeps [[[nested]]] array-ish text from matching.
var re = regexp.MustCompile(`\[\[([^\]\[|]+)(?:\|([^\]]+))?\]\]`)

// Render returns the link literal for a target with optional display text.
func Render(target, display string) string {
	if display == "" {
		return "[[" + target + "]]"
	}
	return "[[" + target + "|" + display + "]]"
}

// RenderAnchor returns a deep link to an anchored line in target.
func RenderAnchor(target, anchorID, display string) string {
	return Render(target+"#^"+anchorID, display)
}

// Parse parses a string that is exactly one wikilink literal.
func Parse(s string) (Link, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return Link{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "[["), "]]")
	if strings.ContainsAny(inner, "[]") {
		return Link{}, false
	}

	link := Link{Literal: s, End: len(s)}
	if i := strings.Index(inner, "|"); i >= 0 {
		link.Display = strings.TrimSpace(inner[i+1:])
		inner = inner[:i]
	}
	link.Target = strings.TrimSpace(inner)
	if link.Target == "" {
		return Link{}, false
	}
	link.Target, link.Anchor = splitAnchor(link.Target)
	return link, true
}

// FindAll finds every wikilink in a single line.
func FindAll(line string) []Link {
	var out []Link
	for _, m := range re.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]

		// Preceded by '[' means array-ish syntax, not a link.
		if start > 0 && line[start-1] == '[' {
			continue
		}

		target := strings.TrimSpace(line[m[2]:m[3]])
		if target == "" {
			continue
		}
		link := Link{
			Start:   start,
			End:     end,
			Literal: line[start:end],
		}
		link.Target, link.Anchor = splitAnchor(target)
		if m[4] >= 0 && m[5] >= 0 {
			link.Display = strings.TrimSpace(line[m[4]:m[5]])
		}
		out = append(out, link)
	}
	return out
}

func splitAnchor(target string) (string, string) {
	i := strings.Index(target, "#^")
	if i < 0 {
		return target, ""
	}
	return strings.TrimSpace(target[:i]), strings.TrimSpace(target[i+2:])
}
