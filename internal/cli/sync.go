package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"marginalia/internal/anchor"
	"marginalia/internal/atomicfile"
	"marginalia/internal/clippings"
	"marginalia/internal/dates"
	"marginalia/internal/landing"
	"marginalia/internal/match"
	"marginalia/internal/parser"
	"marginalia/internal/paths"
	"marginalia/internal/slugs"
	"marginalia/internal/ui"
	"marginalia/internal/vault"
	"marginalia/internal/wikilink"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Anchor reader highlights into markdown renderings",
	Long: `Reads Kindle clippings and Obsidian annotation documents, finds each
highlight's passage in the matching book's markdown rendering, and marks
it with a block anchor the landing page can deep-link to.

Kindle highlights come from --clippings, or from any .txt export dropped
into the clippings directory. Obsidian highlights are read from the
annotation documents next to the books. Notes are attached to the
highlight covering their location.

Books that have no markdown rendering get their highlights quoted on the
landing page instead, under a Kindle Highlights section.

Examples:
  mgn sync
  mgn sync --clippings "/media/kindle/My Clippings.txt"
  mgn sync --dry-run`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("clippings", "", "Kindle My Clippings.txt to read instead of the clippings directory")
	syncCmd.Flags().Bool("dry-run", false, "Report what would be anchored without writing anything")
	rootCmd.AddCommand(syncCmd)
}

// bookSync is the outcome of syncing one book's annotations.
type bookSync struct {
	Page         string // landing page stem
	Rendering    string // rendering name, "" when the book has none
	RenderingRel string // vault-relative path recorded in the audit log
	Anchored     int    // anchors newly written into the rendering
	Located      int    // highlights found, including already-anchored ones
	Linked       int    // links newly added to the landing page
	Quoted       int    // quotes added to the fallback section
	Unlocated    int    // highlights that matched no passage
	Err          error
}

type unmatchedTitle struct {
	Title string
	Count int
}

func runSync(cmd *cobra.Command, args []string) error {
	clippingsPath, _ := cmd.Flags().GetString("clippings")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	lay := getLayout()

	var anns []clippings.Annotation
	if clippingsPath != "" {
		parsed, err := clippings.ParseKindleFile(clippingsPath)
		if err != nil {
			return handleError(ErrClippingsNotFound, err, "Check the --clippings path")
		}
		anns = parsed
	} else {
		parsed, err := kindleExports(lay.Clippings())
		if err != nil {
			return handleError(ErrSyncFailed, err, "")
		}
		anns = parsed
	}
	docs, err := annotationDocs(lay)
	if err != nil {
		return handleError(ErrSyncFailed, err, "")
	}
	anns = append(anns, docs...)

	groups := clippings.GroupByTitle(anns)
	titles := make([]string, 0, len(groups))
	for title := range groups {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	if len(titles) == 0 {
		if isJSONOutput() {
			outputSuccess(syncJSON(nil, nil, dryRun))
			return nil
		}
		infof("No annotations found.")
		return nil
	}

	pages, err := vault.Pages(lay)
	if err != nil {
		return handleError(ErrSyncFailed, err, "")
	}
	renderings, err := vault.Renderings(lay)
	if err != nil {
		return handleError(ErrSyncFailed, err, "")
	}

	if dryRun {
		infof("Dry run - nothing will be written.")
	}
	infof("Syncing annotations into: %s", ui.FilePath(getVaultPath()))

	names, byName := pageCandidates(pages)
	m := newMatcher()
	loc := anchor.NewLocator()
	w := landing.Writer{Layout: lay}

	var results []bookSync
	var unmatched []unmatchedTitle
	for _, title := range titles {
		group := pairNotes(groups[title])
		if len(group) == 0 {
			continue
		}
		res := m.BestFile(title, names)
		if !res.Found {
			unmatched = append(unmatched, unmatchedTitle{Title: title, Count: len(group)})
			continue
		}
		pg := pages[byName[res.Name]]
		results = append(results, syncBook(w, loc, m, lay, pg, group, renderings, dryRun))
	}

	if !dryRun {
		logger := newAuditLogger()
		for _, bs := range results {
			if bs.Err != nil || bs.Anchored+bs.Linked+bs.Quoted == 0 {
				continue
			}
			_ = logger.LogSync(slugs.BookSlug(bs.Page), bs.RenderingRel, bs.Anchored)
		}
	}

	if isJSONOutput() {
		outputSuccess(syncJSON(results, unmatched, dryRun))
		return nil
	}
	reportSync(results, unmatched, dryRun)
	return nil
}

// kindleExports parses every .txt export in the clippings directory. A
// vault without the directory has no Kindle source.
func kindleExports(dir string) ([]clippings.Annotation, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan clippings: %w", err)
	}
	var anns []clippings.Annotation
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		parsed, err := clippings.ParseKindleFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		anns = append(anns, parsed...)
	}
	return anns, nil
}

// annotationDocs parses highlight records out of every annotation
// document. The document name doubles as the fallback book title.
func annotationDocs(lay paths.Layout) ([]clippings.Annotation, error) {
	dir := lay.Annotations()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan annotations: %w", err)
	}
	var anns []clippings.Annotation
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		title := strings.TrimSuffix(e.Name(), ".md")
		title = strings.TrimSuffix(title, paths.AnnotationsSuffix)
		anns = append(anns, clippings.ParseObsidian(string(raw), title)...)
	}
	return anns, nil
}

// pageCandidates builds the matching namespace for annotation titles:
// landing page stems first, then front-matter titles where they differ.
func pageCandidates(pages []vault.Page) ([]string, map[string]int) {
	var names []string
	byName := make(map[string]int)
	add := func(name string, i int) {
		if name == "" {
			return
		}
		if _, ok := byName[name]; ok {
			return
		}
		byName[name] = i
		names = append(names, name)
	}
	for i, pg := range pages {
		add(pg.Stem, i)
	}
	for i, pg := range pages {
		add(pg.Title, i)
	}
	return names, byName
}

// pairNotes folds Kindle notes into the highlight covering their
// location and drops bookmarks. A note that matches no highlight stays
// standalone so it is at least reported.
func pairNotes(group []clippings.Annotation) []clippings.Annotation {
	var out, notes []clippings.Annotation
	for _, a := range group {
		switch {
		case a.Kind == clippings.KindBookmark || strings.TrimSpace(a.Text) == "":
			continue
		case a.Kind == clippings.KindNote && a.Source == clippings.SourceKindle:
			notes = append(notes, a)
		default:
			out = append(out, a)
		}
	}
	for _, note := range notes {
		attached := false
		for i := range out {
			if out[i].Comment == "" && locationCovers(out[i].Location, note.Location) {
				out[i].Comment = note.Text
				attached = true
				break
			}
		}
		if !attached {
			out = append(out, note)
		}
	}
	return out
}

// locationCovers reports whether the highlight's location range contains
// the note's starting location.
func locationCovers(highlight, note string) bool {
	lo, hi, ok := locationRange(highlight)
	if !ok {
		return false
	}
	nlo, _, ok := locationRange(note)
	if !ok {
		return false
	}
	return nlo >= lo && nlo <= hi
}

func locationRange(s string) (lo, hi int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	first, rest, _ := strings.Cut(s, "-")
	lo, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, false
	}
	hi = lo
	if h, err := strconv.Atoi(rest); err == nil {
		hi = h
	}
	return lo, hi, true
}

// syncBook anchors one book's annotations into its rendering, or quotes
// them on the landing page when there is nothing to anchor into.
func syncBook(w landing.Writer, loc *anchor.Locator, m *match.Matcher, lay paths.Layout, pg vault.Page, group []clippings.Annotation, renderings []vault.Rendering, dryRun bool) bookSync {
	bs := bookSync{Page: pg.Stem}

	raw, err := os.ReadFile(pg.Path)
	if err != nil {
		bs.Err = fmt.Errorf("read landing page: %w", err)
		return bs
	}
	content := string(raw)

	name, files := renderingTarget(content, pg, renderings, m, lay)
	if len(files) == 0 {
		bs.RenderingRel = lay.Rel(pg.Path)
		return quoteFallback(w, pg, content, group, dryRun, bs)
	}
	bs.Rendering = name
	bs.RenderingRel = lay.Rel(files[0])

	bodies := make([]string, len(files))
	dirty := make([]bool, len(files))
	for i, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			bs.Err = fmt.Errorf("read rendering: %w", err)
			return bs
		}
		bodies[i] = string(b)
	}

	links := make(map[int][]landing.HighlightLink)
	for _, ann := range group {
		best, bm, ok := locateAcross(loc, bodies, ann.Text)
		if !ok {
			bs.Unlocated++
			continue
		}
		updated, id, changed := loc.Apply(bodies[best], bm, ann.Text, ann.Comment)
		bodies[best] = updated
		bs.Located++
		if changed {
			bs.Anchored++
			dirty[best] = true
		}
		links[best] = append(links[best], landing.HighlightLink{BlockID: id, Text: ann.Text})
	}

	if !dryRun {
		for i, f := range files {
			if !dirty[i] {
				continue
			}
			if err := atomicfile.WriteDoc(f, []byte(bodies[i])); err != nil {
				bs.Err = fmt.Errorf("write rendering: %w", err)
				return bs
			}
		}
	}

	for i := range files {
		ls := links[i]
		if len(ls) == 0 {
			continue
		}
		if dryRun {
			merged, n := landing.MergeHighlightLinks(content, lay.Rel(files[i]), ls)
			content = merged
			bs.Linked += n
			continue
		}
		n, err := w.AddHighlightLinks(pg.Path, files[i], ls)
		if err != nil {
			bs.Err = err
			return bs
		}
		bs.Linked += n
	}

	if !dryRun && bs.Anchored+bs.Linked > 0 {
		if _, err := w.TouchAnnotated(pg.Path, dates.Today()); err != nil {
			bs.Err = err
		}
	}
	return bs
}

// quoteFallback puts highlights on the landing page itself when the book
// has no markdown rendering.
func quoteFallback(w landing.Writer, pg vault.Page, content string, group []clippings.Annotation, dryRun bool, bs bookSync) bookSync {
	quotes := make([]landing.Quote, 0, len(group))
	for _, a := range group {
		quotes = append(quotes, landing.Quote{Text: a.Text, Comment: a.Comment, Location: a.Location})
	}
	if dryRun {
		_, bs.Quoted = landing.MergeKindleHighlights(content, quotes)
		return bs
	}
	added, err := w.AddKindleHighlights(pg.Path, quotes)
	if err != nil {
		bs.Err = err
		return bs
	}
	bs.Quoted = added
	if added > 0 {
		if _, err := w.TouchAnnotated(pg.Path, dates.Today()); err != nil {
			bs.Err = err
		}
	}
	return bs
}

// renderingTarget resolves which markdown files to anchor into: the
// landing page's recorded Markdown Version link when it still exists,
// else the best fuzzy match over the rendering candidates. Directory
// renderings expand to every chapter file.
func renderingTarget(content string, pg vault.Page, renderings []vault.Rendering, m *match.Matcher, lay paths.Layout) (string, []string) {
	if target := markdownVersionTarget(content); target != "" {
		abs := lay.Abs(target)
		if st, err := os.Stat(abs); err == nil && !st.IsDir() {
			return renderingName(abs, lay), chapterFiles(abs, lay)
		}
	}
	if len(renderings) == 0 {
		return "", nil
	}
	names := make([]string, len(renderings))
	byName := make(map[string]int, len(renderings))
	for i, r := range renderings {
		names[i] = r.Name
		byName[r.Name] = i
	}
	queries := []string{pg.Stem}
	if pg.Title != "" && pg.Title != pg.Stem {
		queries = append(queries, pg.Title)
	}
	if pg.Author != "" && pg.Title != "" {
		queries = append(queries, pg.Author+" - "+pg.Title)
	}
	var best match.Result
	for _, q := range queries {
		if res := m.BestDirectory(q, names); res.Found && res.Score > best.Score {
			best = res
		}
	}
	if !best.Found {
		return "", nil
	}
	r := renderings[byName[best.Name]]
	return r.Name, chapterFiles(r.Path, lay)
}

// markdownVersionTarget pulls the Markdown Version link target out of the
// Document Versions section, "" when the page records none.
func markdownVersionTarget(content string) string {
	start, end, ok := parser.SectionSpan(content, landing.VersionsHeading)
	if !ok {
		return ""
	}
	lines := strings.Split(content, "\n")
	for _, line := range lines[start+1 : end] {
		for _, link := range wikilink.FindAll(line) {
			if link.Display == "Markdown Version" {
				return link.Target
			}
		}
	}
	return ""
}

// chapterFiles returns every markdown file the rendering spans: the file
// itself for flat renderings, all sibling chapters for a directory one.
func chapterFiles(file string, lay paths.Layout) []string {
	dir := filepath.Dir(file)
	if filepath.Clean(dir) == filepath.Clean(lay.Markdowns()) {
		return []string{file}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{file}
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return []string{file}
	}
	return files
}

func renderingName(file string, lay paths.Layout) string {
	dir := filepath.Dir(file)
	if filepath.Clean(dir) == filepath.Clean(lay.Markdowns()) {
		return strings.TrimSuffix(filepath.Base(file), ".md")
	}
	return filepath.Base(dir)
}

// locateAcross finds the best passage for an excerpt over a set of
// chapter bodies. An exact match beats any fuzzy score.
func locateAcross(loc *anchor.Locator, bodies []string, excerpt string) (int, anchor.Match, bool) {
	best := -1
	var bm anchor.Match
	for i := range bodies {
		m, ok := loc.Locate(bodies[i], excerpt)
		if !ok {
			continue
		}
		if best == -1 || betterMatch(m, bm) {
			best, bm = i, m
		}
		if bm.Exact {
			break
		}
	}
	return best, bm, best >= 0
}

func betterMatch(a, b anchor.Match) bool {
	if a.Exact != b.Exact {
		return a.Exact
	}
	return a.Score > b.Score
}

func reportSync(results []bookSync, unmatched []unmatchedTitle, dryRun bool) {
	var anchored, linked, quoted, unlocated, failed int
	for _, bs := range results {
		if bs.Err != nil {
			failed++
			infof("  %s", ui.Errorf("%s: %v", bs.Page, bs.Err))
			continue
		}
		anchored += bs.Anchored
		linked += bs.Linked
		quoted += bs.Quoted
		unlocated += bs.Unlocated
		switch {
		case bs.Rendering == "" && bs.Quoted > 0:
			infof("  %s: no rendering, %d quoted on the landing page", bs.Page, bs.Quoted)
		case bs.Rendering == "":
			infof("  %s: no rendering, nothing new to quote", bs.Page)
		case bs.Anchored+bs.Linked == 0 && bs.Located > 0 && bs.Unlocated == 0:
			infof("  %s: all %d highlights already anchored", bs.Page, bs.Located)
		default:
			line := fmt.Sprintf("  %s: %d anchored, %d linked", bs.Page, bs.Anchored, bs.Linked)
			if bs.Unlocated > 0 {
				line += fmt.Sprintf(", %d unlocated", bs.Unlocated)
			}
			infof("%s", line)
		}
	}
	for _, um := range unmatched {
		infof("  %s", ui.Warningf("no landing page matches %q %s", um.Title, ui.Count(um.Count, "annotation", "annotations")))
	}

	infof("")
	switch {
	case dryRun:
		infof("Dry run: %d highlights would be anchored, %d quoted", anchored, quoted)
	case anchored+linked+quoted+failed == 0:
		infof("Everything already in sync.")
	default:
		infof("%s", ui.Successf("Anchored %d highlights, linked %d, quoted %d", anchored, linked, quoted))
	}
	if unlocated > 0 {
		infof("  %s", ui.Hint(fmt.Sprintf("%d highlights matched no passage and were left alone", unlocated)))
	}
	if failed > 0 {
		infof("%s", ui.Errorf("%d books failed to sync", failed))
	}
}

func syncJSON(results []bookSync, unmatched []unmatchedTitle, dryRun bool) map[string]interface{} {
	books := make([]map[string]interface{}, 0, len(results))
	var anchored, linked, quoted, unlocated int
	for _, bs := range results {
		b := map[string]interface{}{
			"page":     bs.Page,
			"anchored": bs.Anchored,
			"located":  bs.Located,
			"linked":   bs.Linked,
		}
		if bs.Rendering != "" {
			b["rendering"] = bs.Rendering
		}
		if bs.Quoted > 0 {
			b["quoted"] = bs.Quoted
		}
		if bs.Unlocated > 0 {
			b["unlocated"] = bs.Unlocated
		}
		if bs.Err != nil {
			b["error"] = bs.Err.Error()
		}
		books = append(books, b)
		anchored += bs.Anchored
		linked += bs.Linked
		quoted += bs.Quoted
		unlocated += bs.Unlocated
	}
	um := make([]map[string]interface{}, 0, len(unmatched))
	for _, u := range unmatched {
		um = append(um, map[string]interface{}{"title": u.Title, "annotations": u.Count})
	}
	return map[string]interface{}{
		"books":     books,
		"unmatched": um,
		"anchored":  anchored,
		"linked":    linked,
		"quoted":    quoted,
		"unlocated": unlocated,
		"dry_run":   dryRun,
	}
}
