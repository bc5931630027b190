package similarity

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"punctuation to spaces", "Thinking, Fast and Slow", "thinking fast and slow"},
		{"whitespace collapsed", "  HELLO   world  ", "hello world"},
		{"unicode letters kept", "Café", "café"},
		{"hyphens and underscores", "a-b_c", "a b c"},
		{"only punctuation", "...", ""},
		{"digits kept", "1984", "1984"},
		{"author title pattern", "J. K. Rowling - Harry Potter", "j k rowling harry potter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScoreSelf(t *testing.T) {
	inputs := []string{
		"Thinking, Fast and Slow",
		"Harry Potter The Prequel",
		"a",
		"1984 - George Orwell",
	}
	for _, s := range inputs {
		if got := Score(s, s); !almostEqual(got, 1.0) {
			t.Errorf("Score(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestScoreEmpty(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"empty right", "Dune", ""},
		{"empty left", "", "Dune"},
		{"both empty", "", ""},
		{"punctuation only normalizes empty", "!!!", "Dune"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.a, tt.b); got != 0 {
				t.Errorf("Score(%q, %q) = %v, want 0", tt.a, tt.b, got)
			}
		})
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"Thinking Fast and Slow", "Thinking, Fast and Slow"},
		{"Harry Potter The Prequel", "J. K. Rowling - Harry Potter The Prequel"},
		{"Dune", "Dune Messiah"},
	}
	for _, p := range pairs {
		ab, ba := Score(p[0], p[1]), Score(p[1], p[0])
		if !almostEqual(ab, ba) {
			t.Errorf("Score(%q, %q) = %v but Score(%q, %q) = %v", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		min, max float64
	}{
		// Differs only in punctuation: identical after normalization.
		{"comma only", "Thinking Fast and Slow", "Thinking, Fast and Slow", 1.0, 1.0},
		// One dropped word.
		{"dropped word", "Thinking Fast and Slow", "Thinking Fast & Slow", 0.7, 0.9},
		// Unrelated titles.
		{"unrelated", "Thinking Fast and Slow", "Quidditch Through the Ages", 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Score(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestWordOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"subset of larger name", "Harry Potter The Prequel", "J. K. Rowling - Harry Potter The Prequel", 4.0 / 7.0},
		{"identical", "Deep Work", "Deep Work", 1.0},
		{"disjoint", "Dune", "Emma", 0},
		{"duplicate tokens counted once", "the the the end", "the end", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordOverlap(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("WordOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSortRatio(t *testing.T) {
	a := "Daniel Kahneman - Thinking Fast and Slow"
	b := "Thinking Fast and Slow - Daniel Kahneman"

	if got := TokenSortRatio(a, b); !almostEqual(got, 1.0) {
		t.Errorf("TokenSortRatio(%q, %q) = %v, want 1.0", a, b, got)
	}
	if cr := CharRatio(a, b); cr >= 1.0 {
		t.Errorf("CharRatio(%q, %q) = %v, want < 1.0 for reordered tokens", a, b, cr)
	}
	if got := TokenSortRatio("", "anything"); got != 0 {
		t.Errorf("TokenSortRatio with empty side = %v, want 0", got)
	}
}

func TestCharRatio(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		min, max float64
	}{
		{"identical", "dune", "dune", 1.0, 1.0},
		{"empty side", "dune", "", 0, 0},
		{"single edit", "dune", "dunes", 0.8, 0.8},
		{"case and punctuation ignored", "DUNE!", "dune", 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CharRatio(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("CharRatio(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}
