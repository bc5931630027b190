package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"marginalia/internal/library"
	"marginalia/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the books in the catalog",
	Long: `Lists processed books ordered by title. Filter by reading status,
author, or file format. The catalog is derived state kept fresh by
'mgn process', so a book missing here usually just has not been
processed yet.

Examples:
  mgn list
  mgn list --status reading --status new
  mgn list --author newport
  mgn list --format epub --output paths`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "Filter by reading status (repeatable)")
	listCmd.Flags().String("author", "", "Filter by author substring")
	listCmd.Flags().String("format", "", "Filter by file format (epub, pdf, ...)")
	listCmd.Flags().String("output", "table", "Output style: table, plain, or paths")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	statuses, _ := cmd.Flags().GetStringSlice("status")
	author, _ := cmd.Flags().GetString("author")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	cat, err := openCatalog()
	if err != nil {
		return handleError(ErrCatalogError, err, "")
	}
	defer cat.Close()

	var records []*library.Record
	if len(statuses) > 0 {
		records, err = cat.ByStatus(statuses...)
	} else {
		records, err = cat.All()
	}
	if err != nil {
		return handleError(ErrCatalogError, err, "")
	}
	records = filterRecords(records, author, format)

	if isJSONOutput() {
		outputSuccess(listJSON(records))
		return nil
	}
	if len(records) == 0 {
		infof("No books in the catalog. Drop files into the bucket and run 'mgn process'.")
		return nil
	}

	switch output {
	case "paths":
		for _, r := range records {
			fmt.Println(r.LandingPath)
		}
	case "plain":
		for _, r := range records {
			line := recordTitle(r)
			if r.Book.Author != "" {
				line += " - " + r.Book.Author
			}
			fmt.Println(line)
		}
	default:
		printBookTable(records)
	}
	return nil
}

func filterRecords(records []*library.Record, author, format string) []*library.Record {
	if author == "" && format == "" {
		return records
	}
	var out []*library.Record
	for _, r := range records {
		if author != "" && !strings.Contains(strings.ToLower(r.Book.Author), strings.ToLower(author)) {
			continue
		}
		if format != "" && !strings.EqualFold(r.Book.Format, format) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func printBookTable(records []*library.Record) {
	tbl := ui.NewListTable(ui.NewDisplayContext(), ui.BookListLayout)
	titleWidth := tbl.ContentWidth("title")
	authorWidth := tbl.ContentWidth("author")

	for i, r := range records {
		b := r.Book
		progress := ""
		if b.ReadingProgress > 0 {
			progress = strconv.Itoa(b.ReadingProgress) + "%"
		}
		tbl.AddRow(
			ui.FormatRowNum(i+1, len(records)),
			ui.TruncateWithEllipsis(recordTitle(r), titleWidth),
			ui.TruncateWithEllipsis(b.Author, authorWidth),
			strings.ToUpper(b.Format),
			b.Status,
			progress,
		)
	}
	fmt.Println(tbl.Render())
	infof("  %s", ui.Hint(fmt.Sprintf("%d books", len(records))))
}

// recordTitle falls back to the slug for records whose landing page lost
// its title.
func recordTitle(r *library.Record) string {
	if r.Book != nil && r.Book.Title != "" {
		return r.Book.Title
	}
	return r.Slug
}

func listJSON(records []*library.Record) map[string]interface{} {
	books := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		b := map[string]interface{}{
			"slug":  r.Slug,
			"title": recordTitle(r),
			"path":  r.LandingPath,
		}
		if r.Book.Author != "" {
			b["author"] = r.Book.Author
		}
		if r.Year != 0 {
			b["year"] = r.Year
		}
		if r.Book.Format != "" {
			b["format"] = r.Book.Format
		}
		if r.Book.Status != "" {
			b["status"] = r.Book.Status
		}
		if r.Book.ReadingProgress > 0 {
			b["progress"] = r.Book.ReadingProgress
		}
		books = append(books, b)
	}
	return map[string]interface{}{
		"books": books,
		"count": len(books),
	}
}
