// Package dates provides date parsing and publication-year extraction.
//
// Year extraction feeds edition resolution: when two files claim the same
// book, the one with the later plausible publication year wins. Years come
// from messy places (calibre date dumps, publisher strings, "(2021)" in a
// file name), so everything here is best-effort and returns 0 for "no
// plausible year".
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the front-matter date format.
const DateLayout = "2006-01-02"

// Plausible publication year bounds.
const (
	MinYear = 1900
	MaxYear = 2100
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// Today returns the current date formatted for front matter.
func Today() string {
	return time.Now().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return t, nil
}

// YearFromDate extracts the year from a date string in any of the formats
// calibre emits (RFC3339, date-only, month-year, bare year). Returns 0 when
// the string does not parse or the year is implausible.
func YearFromDate(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	layouts := []string{
		time.RFC3339,
		DateLayout,
		"January 2, 2006",
		"January 2006",
		"2006-01",
		"2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return clampYear(t.Year())
		}
	}
	return 0
}

// YearFromText returns the first plausible 4-digit year embedded in free
// text (a publisher string, a file name), or 0.
func YearFromText(s string) int {
	for _, m := range yearPattern.FindAllString(s, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y := clampYear(n); y != 0 {
			return y
		}
	}
	return 0
}

// PublicationYear resolves a year from extracted metadata fields in
// priority order: an explicit year value, then the published date, then
// digits embedded in the publisher string. Returns 0 when no source yields
// a plausible year.
func PublicationYear(year, published, publisher string) int {
	if y := YearFromText(year); y != 0 {
		return y
	}
	if y := YearFromDate(published); y != 0 {
		return y
	}
	// Sanitized calibre dates ("2011-10-25T00-00-00+00-00") fail every
	// layout but still carry the year.
	if y := YearFromText(published); y != 0 {
		return y
	}
	return YearFromText(publisher)
}

func clampYear(y int) int {
	if y < MinYear || y > MaxYear {
		return 0
	}
	return y
}
