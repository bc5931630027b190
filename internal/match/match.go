// Package match resolves a book identity against candidate pools: markdown
// directory names, landing-page file stems, other titles. It wraps the
// similarity scorer with acceptance thresholds and deterministic tie-breaks.
package match

import (
	"sort"
	"strings"

	"marginalia/internal/similarity"
)

// Default acceptance thresholds. These are tuned, not principled; the
// config file can override them.
const (
	DefaultDirThreshold   = 0.70
	DefaultFileThreshold  = 0.85
	DefaultTokenThreshold = 0.60
)

// Matcher applies similarity scoring with acceptance thresholds.
type Matcher struct {
	// DirThreshold accepts a book against a markdown directory name.
	DirThreshold float64
	// FileThreshold accepts a landing page against a markdown file stem
	// when no exact stem match exists.
	FileThreshold float64
	// TokenThreshold accepts on token overlap alone.
	TokenThreshold float64
}

// New returns a Matcher with the default thresholds.
func New() *Matcher {
	return &Matcher{
		DirThreshold:   DefaultDirThreshold,
		FileThreshold:  DefaultFileThreshold,
		TokenThreshold: DefaultTokenThreshold,
	}
}

// Result is a match outcome. Found is false when no candidate cleared the
// threshold; Name and Score then describe the best rejected candidate,
// which callers may log.
type Result struct {
	Found bool
	Name  string
	Score float64
}

// BestDirectory resolves a query identity ("Title" or "Author - Title")
// against markdown directory names. Directory names reorder author and
// title freely, so the token-sort variant participates.
func (m *Matcher) BestDirectory(query string, candidates []string) Result {
	return m.best(query, candidates, m.DirThreshold, true)
}

// BestFile resolves a landing-page stem against markdown file stems. An
// exact stem match wins immediately; otherwise fuzzy scoring applies with
// the stricter file threshold.
func (m *Matcher) BestFile(stem string, candidates []string) Result {
	for _, c := range candidates {
		if c == stem {
			return Result{Found: true, Name: c, Score: 1.0}
		}
	}
	return m.best(stem, candidates, m.FileThreshold, false)
}

// BestTokenOverlap resolves on token overlap alone. Used for directory
// names whose word order and punctuation are too mangled for character
// ratios to mean anything.
func (m *Matcher) BestTokenOverlap(query string, candidates []string) Result {
	best := Result{}
	for _, c := range sortedPool(candidates) {
		score := similarity.WordOverlap(query, c)
		if score > best.Score {
			best.Name = c
			best.Score = score
		}
	}
	best.Found = best.Name != "" && best.Score > m.TokenThreshold
	return best
}

func (m *Matcher) best(query string, candidates []string, threshold float64, tokenSort bool) Result {
	best := Result{}
	if strings.TrimSpace(query) == "" {
		return best
	}
	title := titleOnly(query)

	for _, c := range sortedPool(candidates) {
		score := m.combined(query, title, c, tokenSort)
		if score > best.Score {
			best.Name = c
			best.Score = score
		}
	}
	best.Found = best.Name != "" && best.Score > threshold
	return best
}

// combined blends the best character-level variant with token overlap.
// Overlap is always computed against the full query; the variants cover
// the full string, the title with any "Author - " prefix stripped, and
// optionally the token-sorted form.
func (m *Matcher) combined(query, title, candidate string, tokenSort bool) float64 {
	overlap := similarity.WordOverlap(query, candidate)

	char := similarity.CharRatio(query, candidate)
	if title != query {
		if r := similarity.CharRatio(title, candidate); r > char {
			char = r
		}
	}
	if tokenSort {
		if r := similarity.TokenSortRatio(query, candidate); r > char {
			char = r
		}
	}
	return similarity.Blend(char, overlap)
}

// titleOnly strips a leading "Author - " prefix.
func titleOnly(query string) string {
	if _, after, found := strings.Cut(query, " - "); found && strings.TrimSpace(after) != "" {
		return after
	}
	return query
}

// sortedPool copies and sorts the candidates so equal scores resolve to
// the lexicographically first name on every run.
func sortedPool(candidates []string) []string {
	pool := append([]string(nil), candidates...)
	sort.Strings(pool)
	return pool
}
