package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"marginalia/internal/audit"
	"marginalia/internal/intake"
	"marginalia/internal/ui"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "File dropped e-books into the library",
	Long: `Runs the intake pipeline. Files dropped in the bucket, plus any book
files found loose in the vault, are hashed, deduplicated against content
seen before, renamed after their extracted title, and moved into the
originals directory. Every resident original then gets a landing page,
an annotation document, and a catalog row, and the master index is
regenerated.

Name collisions are decided by publication year: an older incoming
edition is parked in the bucket's superseded directory, a newer one
replaces the resident copy. A book that fuzzy-matches an existing
landing page is folded into that page as an extra copy instead of
getting a page of its own.

Examples:
  # Process the bucket
  mgn process

  # See every decision without touching anything
  mgn process --dry-run

  # Raise the duplicate bar for one run
  mgn process --min-score 92`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noIndex, _ := cmd.Flags().GetBool("no-index")
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		cat, err := openCatalog()
		if err != nil {
			return handleError(ErrCatalogError, err, "")
		}
		defer cat.Close()

		p := newProcessor(cat)
		p.DryRun = dryRun
		if minScore > 0 {
			p.Resolver.Threshold = minScore
		}

		if dryRun {
			infof("Dry run - nothing will be moved or written.")
		}
		infof("Processing bucket: %s", ui.FilePath(getLayout().Bucket()))

		var spinner *ui.Spinner
		if !jsonOutput && !quiet && !dryRun {
			spinner = ui.NewSpinner("Processing books")
			spinner.Start()
		}
		rep, err := runIntakePass(cmd.Context(), p, !noIndex)
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return handleError(ErrIntakeFailed, err, "")
		}

		if !dryRun {
			auditPass(newAuditLogger(), rep)
		}

		if isJSONOutput() {
			outputSuccess(intakePassJSON(rep, dryRun))
			return nil
		}
		reportPass(rep, dryRun)
		return nil
	},
}

// intakeReport bundles one full pass for reporting.
type intakeReport struct {
	Admissions []intake.Admission
	Books      *intake.BookReport
	Indexed    int
	IndexWarns []string
}

// runIntakePass admits the bucket and any strays, processes every resident
// original, and regenerates the master index. process and each watch
// settle run the same pass.
func runIntakePass(ctx context.Context, p *intake.Processor, writeIndex bool) (*intakeReport, error) {
	admitted, err := p.AdmitBucket(ctx)
	if err != nil {
		return nil, err
	}
	strays, err := p.AdmitStrays(ctx)
	if err != nil {
		return nil, err
	}
	admitted = append(admitted, strays...)

	books, err := p.ProcessBooks(ctx, admitted)
	if err != nil {
		return nil, err
	}
	rep := &intakeReport{Admissions: admitted, Books: books}

	if writeIndex && !p.DryRun {
		n, warns, err := writeMasterIndex(p.Layout)
		if err != nil {
			return rep, fmt.Errorf("write index: %w", err)
		}
		rep.Indexed = n
		rep.IndexWarns = warns
	}
	return rep, nil
}

// auditPass records one pass in the operation log, best effort.
func auditPass(logger *audit.Logger, rep *intakeReport) {
	for _, adm := range rep.Admissions {
		_ = logger.LogAdmission(adm.Action.String(), adm.Source, adm.Dest, adm.Of)
	}
	for _, res := range rep.Books.Results {
		_ = logger.LogBook(res.Action.String(), res.Path, res.Slug, res.Of, res.Score)
	}
	if rep.Indexed > 0 {
		_ = logger.LogIndex(rep.Indexed)
	}
}

// reportPass prints one pass in text mode.
func reportPass(rep *intakeReport, dryRun bool) {
	for _, adm := range rep.Admissions {
		name := filepath.Base(adm.Source)
		switch adm.Action {
		case intake.ActionAdmitted:
			infof("  admitted: %s -> %s", name, adm.Dest)
		case intake.ActionResident:
			infof("  resident: %s (already filed at %s)", name, adm.Dest)
		case intake.ActionDuplicate:
			infof("  duplicate: %s (content already at %s)", name, adm.Of)
		case intake.ActionSuperseded:
			infof("  superseded: %s (older edition of %s, parked)", name, adm.Of)
		case intake.ActionManual:
			infof("  manual: %s (convert by hand)", name)
		case intake.ActionFailed:
			infof("  %s", ui.Errorf("failed: %s: %v", name, adm.Err))
		}
		for _, w := range adm.Warnings {
			infof("  %s", ui.Warning(w))
		}
	}

	for _, res := range rep.Books.Results {
		if res.Action == intake.BookFailed {
			infof("  %s", ui.Errorf("failed: %s: %v", res.Path, res.Err))
			continue
		}
		if res.Action == intake.BookLinked {
			infof("  linked: %s -> %s (%.2f)", res.Path, res.Of, res.Score)
		}
		for _, w := range res.Warnings {
			infof("  %s", ui.Warning(w))
		}
	}
	for _, w := range rep.IndexWarns {
		infof("  %s", ui.Warning(w))
	}

	b := rep.Books
	total := len(b.Results)
	infof("")
	if dryRun {
		infof("Dry run: %d books would be processed: %d created, %d updated, %d linked",
			total, b.Created, b.Updated, b.Linked)
	} else {
		infof("%s", ui.Successf("Processed %d books: %d created, %d updated, %d linked",
			total, b.Created, b.Updated, b.Linked))
		if rep.Indexed > 0 {
			infof("  index lists %d books", rep.Indexed)
		}
	}
	if b.Failed > 0 {
		infof("  %s", ui.Errorf("%d failed", b.Failed))
	}
}

// intakePassJSON shapes one pass for --json output.
func intakePassJSON(rep *intakeReport, dryRun bool) map[string]interface{} {
	admissions := make([]map[string]interface{}, 0, len(rep.Admissions))
	for _, adm := range rep.Admissions {
		m := map[string]interface{}{
			"source": adm.Source,
			"action": adm.Action.String(),
		}
		if adm.Dest != "" {
			m["dest"] = adm.Dest
		}
		if adm.Of != "" {
			m["of"] = adm.Of
		}
		if adm.Err != nil {
			m["error"] = adm.Err.Error()
		}
		if len(adm.Warnings) > 0 {
			m["warnings"] = adm.Warnings
		}
		admissions = append(admissions, m)
	}

	books := make([]map[string]interface{}, 0, len(rep.Books.Results))
	for _, res := range rep.Books.Results {
		m := map[string]interface{}{
			"path":   res.Path,
			"action": res.Action.String(),
		}
		if res.Slug != "" {
			m["slug"] = res.Slug
		}
		if res.Of != "" {
			m["of"] = res.Of
			m["score"] = res.Score
		}
		if res.Err != nil {
			m["error"] = res.Err.Error()
		}
		if len(res.Warnings) > 0 {
			m["warnings"] = res.Warnings
		}
		books = append(books, m)
	}

	return map[string]interface{}{
		"admissions": admissions,
		"books":      books,
		"created":    rep.Books.Created,
		"updated":    rep.Books.Updated,
		"linked":     rep.Books.Linked,
		"failed":     rep.Books.Failed,
		"indexed":    rep.Indexed,
		"dry_run":    dryRun,
	}
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().Bool("dry-run", false, "Report every decision without moving or writing anything")
	processCmd.Flags().Bool("no-index", false, "Skip regenerating the master index")
	processCmd.Flags().Float64("min-score", 0, "Duplicate score threshold override for this run (0-100)")
}
