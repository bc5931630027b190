// Package anchor finds a highlighted excerpt inside a rendered book body,
// marks it, and pins it with a stable block anchor for deep links.
package anchor

import (
	"strings"

	"marginalia/internal/similarity"
)

// DefaultThreshold is the fuzzy line-match acceptance score.
const DefaultThreshold = 0.8

const (
	// Clean lines shorter than this are never fuzzy candidates.
	minLineLen = 10
	// Substring-chunk scoring only kicks in past this length, on both sides.
	longTextLen = 40
	// Word chunks shorter than this are too generic to mean anything.
	minChunkLen = 20
	// Sliding chunk windows, in words.
	minChunkWords = 4
	maxChunkWords = 11
)

// Locator finds excerpt positions in reflowed markdown bodies.
type Locator struct {
	// Threshold accepts a fuzzy line match.
	Threshold float64
}

// NewLocator returns a Locator with the default threshold.
func NewLocator() *Locator {
	return &Locator{Threshold: DefaultThreshold}
}

// Match is a located excerpt position.
type Match struct {
	Index int    // 0-based line index into the body
	Line  string // original line, formatting intact
	Score float64
	Exact bool
}

// Locate finds the body line best corresponding to the excerpt. Matching
// runs over a clean view of the body with markdown emphasis, heading, and
// quote markers stripped; reported indexes and lines are the originals.
//
// Exact substring containment of the excerpt (or its first line, for
// multi-line excerpts) wins immediately. Otherwise every long-enough clean
// line is scored by character ratio against the excerpt's first line, with
// a substring-chunk bonus for long texts, and the best line is accepted
// only above the threshold.
func (l *Locator) Locate(body, excerpt string) (Match, bool) {
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" || body == "" {
		return Match{}, false
	}
	first := excerpt
	if i := strings.IndexByte(excerpt, '\n'); i >= 0 {
		first = strings.TrimSpace(excerpt[:i])
	}

	lines := strings.Split(body, "\n")
	clean := strings.Split(stripMarkers(body), "\n")

	for i, cl := range clean {
		if strings.Contains(cl, excerpt) || (first != excerpt && strings.Contains(cl, first)) {
			return Match{Index: i, Line: lines[i], Score: 1, Exact: true}, true
		}
	}

	var chunks []string
	if len(first) > longTextLen {
		chunks = wordChunks(first)
	}

	best := Match{Index: -1}
	for i, cl := range clean {
		if len(cl) < minLineLen {
			continue
		}
		score := similarity.CharRatio(first, cl)
		if len(first) > longTextLen && len(cl) > longTextLen {
			for _, chunk := range chunks {
				if !strings.Contains(cl, chunk) {
					continue
				}
				if alt := float64(len(chunk)) / float64(len(first)); alt > score {
					score = alt
				}
			}
		}
		if score > best.Score {
			best = Match{Index: i, Line: lines[i], Score: score}
		}
	}

	if best.Index >= 0 && best.Score > l.Threshold {
		return best, true
	}
	return Match{}, false
}

// stripMarkers removes markdown emphasis, heading, and quote characters
// while leaving newlines alone, so line indexes map 1:1 to the original.
func stripMarkers(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '`', '~', '#', '>':
			return -1
		}
		return r
	}, s)
}

// wordChunks generates sliding word windows of the text for partial
// substring matching.
func wordChunks(text string) []string {
	words := strings.Fields(text)
	var chunks []string
	for size := minChunkWords; size <= maxChunkWords && size < len(words); size++ {
		for i := 0; i+size <= len(words); i++ {
			chunk := strings.Join(words[i:i+size], " ")
			if len(chunk) >= minChunkLen {
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}
