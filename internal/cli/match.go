package cli

import (
	"github.com/spf13/cobra"

	"marginalia/internal/audit"
	"marginalia/internal/ui"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Link landing pages to their markdown renderings",
	Long: `Fuzzy-matches every landing page against the files and directories in
the markdowns directory, trying the page's file stem, its front-matter
title, and the "Author - Title" composite. Each match records a Markdown
Version link in the page's Document Versions section. Pages and
renderings that matched nothing are listed so neither side goes
unnoticed.

Examples:
  mgn match
  mgn match --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cat, err := openCatalog()
		if err != nil {
			return handleError(ErrCatalogError, err, "")
		}
		defer cat.Close()

		p := newProcessor(cat)
		p.DryRun = dryRun

		report, err := p.LinkRenderings()
		if err != nil {
			return handleError(ErrIntakeFailed, err, "")
		}

		if !dryRun {
			logger := newAuditLogger()
			for _, link := range report.Links {
				if link.Updated {
					_ = logger.Log(audit.Entry{
						Operation: "match.link",
						Path:      link.Page,
						Of:        link.Rendering,
						Score:     link.Score,
					})
				}
			}
		}

		if isJSONOutput() {
			links := make([]map[string]interface{}, 0, len(report.Links))
			for _, link := range report.Links {
				m := map[string]interface{}{
					"page":      link.Page,
					"rendering": link.Rendering,
					"score":     link.Score,
					"updated":   link.Updated,
				}
				if link.Err != nil {
					m["error"] = link.Err.Error()
				}
				links = append(links, m)
			}
			outputSuccess(map[string]interface{}{
				"links":                links,
				"updated":              report.Updated,
				"unmatched_pages":      report.UnmatchedPages,
				"unmatched_renderings": report.UnmatchedRenderings,
				"dry_run":              dryRun,
			})
			return nil
		}

		for _, link := range report.Links {
			if link.Err != nil {
				infof("  %s", ui.Errorf("%s: %v", link.Page, link.Err))
				continue
			}
			switch {
			case link.Updated:
				infof("  linked: %s -> %s (%.2f)", link.Page, link.Rendering, link.Score)
			case dryRun:
				infof("  would link: %s -> %s (%.2f)", link.Page, link.Rendering, link.Score)
			default:
				infof("  matched: %s -> %s %s", link.Page, link.Rendering, ui.Hint("(already linked)"))
			}
		}
		for _, stem := range report.UnmatchedPages {
			infof("  %s", ui.Warningf("no rendering matches %s", stem))
		}
		for _, name := range report.UnmatchedRenderings {
			infof("  %s", ui.Warningf("rendering %s matches no landing page", name))
		}

		infof("")
		if dryRun {
			infof("Dry run: %d matches found", len(report.Links))
		} else {
			infof("%s", ui.Successf("Matched %d renderings, %d links added", len(report.Links), report.Updated))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().Bool("dry-run", false, "Report matches without writing links")
}
