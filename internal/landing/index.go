package landing

import (
	"sort"
	"strings"

	"marginalia/internal/metadata"
	"marginalia/internal/slugs"
)

// RenderIndex produces the master index: dataview tables over reading
// status plus static by-title and by-author listings. booksDir is the
// vault-relative landing-page directory the links point into.
func RenderIndex(books []*metadata.Book, booksDir string) string {
	lines := []string{
		"# Book Library Index",
		"\nThis is an automatically generated index of all books in the library.\n",
		"## Current Reading",
		"\n```dataview",
		`TABLE author, format, reading_progress as "Progress", last_opened as "Last Opened"`,
		"FROM #book",
		`WHERE status = "current"`,
		"SORT last_opened DESC",
		"```\n",
		"## Next Up",
		"\n```dataview",
		"TABLE author, format",
		"FROM #book",
		`WHERE status = "next"`,
		"```\n",
		"## Books by Title\n",
	}

	byTitle := make([]*metadata.Book, len(books))
	copy(byTitle, books)
	sort.SliceStable(byTitle, func(i, j int) bool {
		return strings.ToLower(byTitle[i].Title) < strings.ToLower(byTitle[j].Title)
	})
	for _, b := range byTitle {
		author := b.Author
		if author == "" {
			author = "Unknown Author"
		}
		lines = append(lines, "- [["+indexLink(booksDir, b.Title)+"|"+b.Title+" - "+author+" ("+b.Format+")]]")
	}

	byAuthor := make(map[string][]*metadata.Book)
	for _, b := range byTitle {
		if b.Author == "" {
			continue
		}
		byAuthor[b.Author] = append(byAuthor[b.Author], b)
	}
	if len(byAuthor) > 0 {
		authors := make([]string, 0, len(byAuthor))
		for name := range byAuthor {
			authors = append(authors, name)
		}
		sort.Strings(authors)

		lines = append(lines, "\n## Books by Author\n")
		for _, name := range authors {
			lines = append(lines, "### "+name+"\n")
			for _, b := range byAuthor[name] {
				lines = append(lines, "- [["+indexLink(booksDir, b.Title)+"|"+b.Title+" ("+b.Format+")]]")
			}
			lines = append(lines, "")
		}
	}

	out := strings.Join(lines, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

func indexLink(booksDir, title string) string {
	return booksDir + "/" + slugs.SafeFileName(title) + ".md"
}
