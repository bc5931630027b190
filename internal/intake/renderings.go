package intake

import (
	"fmt"
	"sort"

	"marginalia/internal/match"
	"marginalia/internal/vault"
)

// RenderingLink is one landing page matched to a markdown rendering.
type RenderingLink struct {
	Page      string // landing page stem
	Rendering string // rendering name
	Path      string // representative rendering file, absolute
	Score     float64
	Updated   bool // a Markdown Version link was added
	Err       error
}

// LinkReport sums one rendering-match pass. Pages and renderings that
// matched nothing are reported both ways so neither side goes unnoticed.
type LinkReport struct {
	Links               []RenderingLink
	UnmatchedPages      []string
	UnmatchedRenderings []string
	Updated             int
}

// LinkRenderings fuzzy-matches every landing page against the markdown
// renderings and records a Markdown Version link on each match.
func (p *Processor) LinkRenderings() (*LinkReport, error) {
	pages, err := vault.Pages(p.Layout)
	if err != nil {
		return nil, fmt.Errorf("scan landing pages: %w", err)
	}
	renderings, err := vault.Renderings(p.Layout)
	if err != nil {
		return nil, fmt.Errorf("scan renderings: %w", err)
	}

	report := &LinkReport{}
	if len(renderings) == 0 {
		for _, pg := range pages {
			report.UnmatchedPages = append(report.UnmatchedPages, pg.Stem)
		}
		sort.Strings(report.UnmatchedPages)
		return report, nil
	}

	names := make([]string, len(renderings))
	byName := make(map[string]vault.Rendering, len(renderings))
	for i, r := range renderings {
		names[i] = r.Name
		byName[r.Name] = r
	}

	matched := make(map[string]bool)
	for _, pg := range pages {
		best := p.bestRendering(pg, names)
		if !best.Found {
			report.UnmatchedPages = append(report.UnmatchedPages, pg.Stem)
			continue
		}

		r := byName[best.Name]
		link := RenderingLink{Page: pg.Stem, Rendering: r.Name, Path: r.Path, Score: best.Score}
		matched[r.Name] = true
		if !p.DryRun {
			updated, err := p.Writer.AddVersionLink(pg.Path, r.Path, "Markdown Version")
			link.Updated = updated
			link.Err = err
		}
		if link.Updated {
			report.Updated++
		}
		report.Links = append(report.Links, link)
	}

	for _, r := range renderings {
		if !matched[r.Name] {
			report.UnmatchedRenderings = append(report.UnmatchedRenderings, r.Name)
		}
	}
	sort.Strings(report.UnmatchedPages)
	sort.Strings(report.UnmatchedRenderings)
	return report, nil
}

// bestRendering tries the page's file stem, front-matter title, and the
// author-title composite, keeping the strongest match. Rendering names come
// in both shapes, so one of the queries lines up with whichever convention
// produced them.
func (p *Processor) bestRendering(pg vault.Page, names []string) match.Result {
	queries := []string{pg.Stem}
	if pg.Title != "" && pg.Title != pg.Stem {
		queries = append(queries, pg.Title)
	}
	if pg.Author != "" && pg.Author != "Unknown Author" && pg.Title != "" {
		queries = append(queries, pg.Author+" - "+pg.Title)
	}

	var best match.Result
	for _, q := range queries {
		if r := p.Matcher.BestDirectory(q, names); r.Score > best.Score {
			best = r
		}
	}
	return best
}
