package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"marginalia/internal/library"
	"marginalia/internal/slugs"
	"marginalia/internal/ui"
	"marginalia/internal/vault"
)

var showCmd = &cobra.Command{
	Use:   "show <book>",
	Short: "Show a book's landing page",
	Long: `Renders a book's landing page in the terminal. The argument is matched
against catalog slugs first, then fuzzily against titles, so
'mgn show "deep work"' finds "Deep Work - Cal Newport".

Examples:
  mgn show deep-work-cal-newport
  mgn show "Deep Work"
  mgn show "atomic habits" --edit`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().Bool("path", false, "Print the landing page path instead of rendering it")
	showCmd.Flags().Bool("edit", false, "Open the landing page in $EDITOR")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	pathOnly, _ := cmd.Flags().GetBool("path")
	edit, _ := cmd.Flags().GetBool("edit")

	cat, err := openCatalog()
	if err != nil {
		return handleError(ErrCatalogError, err, "")
	}
	defer cat.Close()

	rec, err := resolveBook(cat, args[0])
	if err != nil || rec == nil {
		// rec is nil without an error when JSON mode already reported it.
		return err
	}

	abs := getLayout().Abs(rec.LandingPath)

	if edit {
		editor := getConfig().GetEditor()
		if !vault.OpenInEditor(editor, abs) {
			return handleErrorMsg(ErrInternal, fmt.Sprintf("could not open %s in %q", rec.LandingPath, editor), "Set $EDITOR or ui.editor in config")
		}
		return nil
	}

	if pathOnly {
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"slug": rec.Slug, "path": rec.LandingPath})
			return nil
		}
		fmt.Println(abs)
		return nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return handleError(ErrFileReadError, err, "Run 'mgn process' to rebuild the catalog if the page moved")
	}

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"slug":    rec.Slug,
			"title":   recordTitle(rec),
			"path":    rec.LandingPath,
			"content": string(raw),
		})
		return nil
	}

	width := ui.NewDisplayContext().AvailableWidth(ui.MarkdownRenderMargin)
	rendered, err := ui.RenderMarkdown(string(raw), width)
	if err != nil {
		// Fall back to the raw page rather than fail the command.
		fmt.Println(string(raw))
		return nil
	}
	fmt.Print(rendered)
	return nil
}

// resolveBook finds a catalog record by slug, then by fuzzy title. Two
// titles tying at the top score is an ambiguity the caller has to
// resolve by slug.
func resolveBook(cat *library.Catalog, query string) (*library.Record, error) {
	rec, err := cat.Get(slugs.BookSlug(query))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, library.ErrBookNotFound) {
		return nil, handleError(ErrCatalogError, err, "")
	}

	records, err := cat.All()
	if err != nil {
		return nil, handleError(ErrCatalogError, err, "")
	}
	names := make([]string, 0, len(records)*2)
	byName := make(map[string]*library.Record, len(records)*2)
	for _, r := range records {
		for _, name := range []string{r.Slug, recordTitle(r)} {
			if _, ok := byName[name]; ok {
				continue
			}
			byName[name] = r
			names = append(names, name)
		}
	}

	m := newMatcher()
	best := m.BestFile(query, names)
	if !best.Found {
		return nil, handleErrorMsg(ErrBookNotFound, fmt.Sprintf("no book matches %q", query), "Run 'mgn list' to see the catalog")
	}

	// Check whether another book ties at the same score.
	ties := map[string]bool{byName[best.Name].Slug: true}
	for _, name := range names {
		if byName[name].Slug == byName[best.Name].Slug {
			continue
		}
		if res := m.BestFile(query, []string{name}); res.Found && res.Score >= best.Score {
			ties[byName[name].Slug] = true
		}
	}
	if len(ties) > 1 {
		slugList := make([]string, 0, len(ties))
		for s := range ties {
			slugList = append(slugList, s)
		}
		sort.Strings(slugList)
		return nil, handleErrorMsg(ErrBookAmbiguous,
			fmt.Sprintf("%q matches more than one book: %v", query, slugList),
			"Use the exact slug")
	}
	return byName[best.Name], nil
}
