package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marginalia/internal/landing"
	"marginalia/internal/metadata"
	"marginalia/internal/paths"
	"marginalia/internal/ui"
	"marginalia/internal/vault"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Regenerate the master book index",
	Long: `Rebuilds the Book Index from the landing pages on disk: reading
queues as dataview blocks, then every book grouped by title and by
author. The index is fully derived; hand edits to it do not survive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, warnings, err := writeMasterIndex(getLayout())
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
		_ = newAuditLogger().LogIndex(n)

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"books":    n,
				"path":     getLayout().Rel(getLayout().IndexFile()),
				"warnings": warnings,
			})
			return nil
		}
		for _, w := range warnings {
			fmt.Println(ui.Warning(w))
		}
		fmt.Println(ui.Successf("Indexed %d books to %s", n, ui.FilePath(getLayout().Rel(getLayout().IndexFile()))))
		return nil
	},
}

// writeMasterIndex regenerates the master index from the landing pages on
// disk. Returns how many books it lists; pages that fail to load are
// reported as warnings, not errors, so one damaged page cannot take the
// index down.
func writeMasterIndex(lay paths.Layout) (int, []string, error) {
	pages, err := vault.Pages(lay)
	if err != nil {
		return 0, nil, err
	}

	var books []*metadata.Book
	var warnings []string
	for _, pg := range pages {
		b, warning, err := vault.LoadBook(pg.Path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", pg.Stem, err))
			continue
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		books = append(books, b)
	}

	w := landing.Writer{Layout: lay}
	if err := w.WriteIndex(books); err != nil {
		return 0, warnings, err
	}
	return len(books), warnings, nil
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
