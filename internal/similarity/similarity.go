// Package similarity scores how likely two book titles, file names, or
// directory names refer to the same work.
//
// The combined score blends a character-level edit-distance ratio with a
// word-overlap ratio. Word overlap carries the larger weight because the
// names being compared reorder words and pick up noise tokens (author
// names, format tags, bracketed edition notes) far more often than they
// misspell them.
//
// Every comparison normalizes both sides identically (lowercase,
// punctuation to spaces, whitespace collapsed); scores computed over
// differently normalized inputs are not comparable.
package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// Weights for the combined score.
const (
	charWeight    = 0.4
	overlapWeight = 0.6
)

// Normalize lowercases s, replaces every non-alphanumeric rune with a
// space, and collapses whitespace runs.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Score returns the combined similarity of a and b in [0, 1].
// Either side normalizing to empty scores 0.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return Blend(ratio(na, nb), overlap(strings.Fields(na), strings.Fields(nb)))
}

// Blend combines a character ratio and a word-overlap ratio with the
// standard weights. Callers that compute variant character ratios (title
// only, token sorted) blend the best one through here.
func Blend(charRatio, wordOverlap float64) float64 {
	return charWeight*charRatio + overlapWeight*wordOverlap
}

// CharRatio returns the character-level similarity of a and b in [0, 1],
// computed as 1 - levenshtein/maxlen over the normalized strings.
func CharRatio(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return ratio(na, nb)
}

// WordOverlap returns |tokens(a) ∩ tokens(b)| / max(|tokens(a)|, |tokens(b)|)
// over unique normalized tokens.
func WordOverlap(a, b string) float64 {
	return overlap(Tokens(a), Tokens(b))
}

// TokenSortRatio is the character ratio over alphabetically sorted tokens.
// It tolerates reordered names such as "Author - Title" against
// "Title - Author".
func TokenSortRatio(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	sort.Strings(ta)
	sort.Strings(tb)
	return ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	shared := 0
	for _, w := range b {
		if _, dup := setB[w]; dup {
			continue
		}
		setB[w] = struct{}{}
		if _, ok := setA[w]; ok {
			shared++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(shared) / float64(denom)
}

// levenshtein computes edit distance over runes with a single reusable row.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cur := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, prev+cost)
			prev = cur
		}
	}
	return row[len(b)]
}
