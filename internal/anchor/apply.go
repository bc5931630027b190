package anchor

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"marginalia/internal/similarity"
)

const (
	// The shortest common block worth wrapping on its own.
	minHighlightBlock = 10
	// Below this line similarity nothing gets highlighted at all.
	wholeLineRatio = 0.6
)

var anchorPattern = regexp.MustCompile(`\^([a-zA-Z0-9]+)$`)

// NewID returns a short unique block identifier.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:10]
}

// ExistingID returns the trailing block anchor of a line, if any.
func ExistingID(line string) string {
	if m := anchorPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// Apply marks the matched line with highlight markers around the excerpt's
// best span, ensures a trailing block anchor, and appends a comment
// callout when the annotation carries one. The body must be the same string
// the Match was located in.
//
// Reruns are safe: an existing anchor is reused, an already-highlighted
// line is left alone, and the comment only rides along with a fresh
// highlight.
func (l *Locator) Apply(body string, m Match, excerpt, comment string) (updated, anchorID string, changed bool) {
	lines := strings.Split(body, "\n")
	if m.Index < 0 || m.Index >= len(lines) {
		return body, "", false
	}
	line := lines[m.Index]

	text := line
	if anchorID = ExistingID(line); anchorID != "" {
		text = strings.TrimRight(strings.TrimSuffix(line, "^"+anchorID), " ")
	}

	highlighted := false
	if !strings.Contains(text, "==") {
		if h, ok := highlightSpan(strings.TrimSpace(excerpt), text); ok {
			text = h
			highlighted = true
			changed = true
		}
	}
	if anchorID == "" {
		anchorID = NewID()
		changed = true
	}
	if !changed {
		return body, anchorID, false
	}

	lines[m.Index] = text + " ^" + anchorID
	if highlighted && strings.TrimSpace(comment) != "" {
		callout := "> [!note] Comment\n> " + strings.TrimSpace(comment)
		rest := append([]string(nil), lines[m.Index+1:]...)
		lines = append(append(lines[:m.Index+1], callout), rest...)
	}
	return strings.Join(lines, "\n"), anchorID, true
}

// highlightSpan wraps the best span of the line in double-equals markers.
// The longest common contiguous block wins when it is long enough; failing
// that, a sufficiently similar line is wrapped whole.
func highlightSpan(excerpt, line string) (string, bool) {
	re, rl := []rune(excerpt), []rune(line)
	start, size := longestBlock(re, rl)
	if size >= minHighlightBlock {
		return string(rl[:start]) + "==" + string(rl[start:start+size]) + "==" + string(rl[start+size:]), true
	}
	if similarity.CharRatio(excerpt, line) > wholeLineRatio {
		return "==" + line + "==", true
	}
	return "", false
}

// longestBlock returns the start position in b and length of the longest
// contiguous run of runes common to a and b.
func longestBlock(a, b []rune) (bStart, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	bestLen, bestEnd := 0, 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > bestLen {
				bestLen, bestEnd = cur[j], j
			}
		}
		prev, cur = cur, prev
	}
	return bestEnd - bestLen, bestLen
}
