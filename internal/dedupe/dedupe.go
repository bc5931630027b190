// Package dedupe decides whether two book artifacts are the same work, the
// same bytes, or different editions of one title.
//
// Scores and thresholds here run 0 to 100, not the matcher's 0 to 1.
package dedupe

import (
	"fmt"

	"marginalia/internal/metadata"
	"marginalia/internal/similarity"
)

// DefaultThreshold is the combined score at or above which two books are
// the same work.
const DefaultThreshold = 85.0

const (
	titleWeight  = 0.7
	authorWeight = 0.3

	// Below this title similarity the author cannot rescue a match.
	blendFloor = 60.0
	// A title-only comparison must clear this to count at all.
	titleOnlyFloor = 90.0
	// Near-identical titles score at least 90% of the title similarity
	// even when the authors disagree.
	boostFloor = 95.0
)

// Resolver classifies duplicate candidates against a threshold.
type Resolver struct {
	Threshold float64
}

// New returns a Resolver with the default threshold.
func New() *Resolver {
	return &Resolver{Threshold: DefaultThreshold}
}

// PairScore rates how likely a and b are the same work, 0 to 100.
//
// With usable authors on both sides and a passable title similarity, the
// score blends title and author. Otherwise only the title counts, and only
// when it is nearly exact; mid-range title similarity with no author to
// confirm it means nothing.
func PairScore(a, b *metadata.Book) float64 {
	title := similarity.CharRatio(a.Title, b.Title) * 100

	if hasAuthor(a) && hasAuthor(b) && title > blendFloor {
		author := similarity.CharRatio(a.Author, b.Author) * 100
		combined := title*titleWeight + author*authorWeight
		if title > boostFloor && combined < title*0.9 {
			combined = title * 0.9
		}
		return combined
	}

	if title > titleOnlyFloor {
		return title
	}
	return 0
}

// FindDuplicate returns the pool book most likely to be the same work as
// book, with its score, when that score clears the threshold. The pool is
// scanned in order and ties keep the earlier entry, so callers pass pools
// in a stable order.
func (r *Resolver) FindDuplicate(book *metadata.Book, pool []*metadata.Book) (*metadata.Book, float64, bool) {
	var best *metadata.Book
	bestScore := 0.0
	for _, candidate := range pool {
		if score := PairScore(book, candidate); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if best == nil || bestScore < r.Threshold {
		return nil, bestScore, false
	}
	return best, bestScore, true
}

// CollisionKind is the fate of an incoming file whose sanitized name and
// format collide with an existing original.
type CollisionKind int

const (
	// CollisionSuperseded means the incoming file is an older edition.
	CollisionSuperseded CollisionKind = iota
	// CollisionNewer means the incoming file is a later edition and
	// should be kept under a year-distinguished title.
	CollisionNewer
	// CollisionVariant means the editions cannot be ordered; both stay,
	// the incoming one under a hash-distinguished title.
	CollisionVariant
)

// Collision is an edition-resolution decision.
type Collision struct {
	Kind  CollisionKind
	Title string // adjusted incoming title for Newer and Variant
}

// ResolveEdition orders two name-colliding files by publication year. Years
// are 0 when unknown. incomingHash distinguishes variant titles; callers
// have already ruled out byte-identical files.
func ResolveEdition(title string, existingYear, incomingYear int, incomingHash string) Collision {
	if existingYear != 0 && incomingYear != 0 {
		switch {
		case incomingYear > existingYear:
			return Collision{
				Kind:  CollisionNewer,
				Title: fmt.Sprintf("%s (%d)", title, incomingYear),
			}
		case incomingYear < existingYear:
			return Collision{Kind: CollisionSuperseded}
		}
	}
	return Collision{
		Kind:  CollisionVariant,
		Title: fmt.Sprintf("%s (%s)", title, shortHash(incomingHash)),
	}
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	if h == "" {
		return "copy"
	}
	return h
}

func hasAuthor(b *metadata.Book) bool {
	return b.Author != "" && b.Author != "Unknown Author"
}
