package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marginalia/internal/check"
	"marginalia/internal/ui"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the vault for drift",
	Long: `Checks the vault for the ways it drifts out of shape over time:
renderings no landing page links to, annotation documents whose book is
gone, version links pointing at missing files, and duplicate block
anchors inside a rendering.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isJSONOutput() {
			fmt.Printf("Checking vault: %s\n", ui.FilePath(getVaultPath()))
		}

		checker := check.Checker{Layout: getLayout()}
		report, err := checker.Run()
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		errorCount := report.Errors()
		warningCount := report.Warnings()
		failed := errorCount > 0 || (checkStrict && warningCount > 0)

		if isJSONOutput() {
			issues := make([]map[string]interface{}, 0, len(report.Issues))
			for _, issue := range report.Issues {
				m := map[string]interface{}{
					"level":   issue.Level.String(),
					"path":    issue.FilePath,
					"message": issue.Message,
				}
				if issue.Line > 0 {
					m["line"] = issue.Line
				}
				issues = append(issues, m)
			}
			outputSuccess(map[string]interface{}{
				"issues":   issues,
				"errors":   errorCount,
				"warnings": warningCount,
				"pages":    report.Pages,
				"ok":       !failed,
			})
			if failed {
				os.Exit(1)
			}
			return nil
		}

		for _, issue := range report.Issues {
			if issue.Line > 0 {
				fmt.Printf("%s:  %s:%d - %s\n", issue.Level, issue.FilePath, issue.Line, issue.Message)
			} else {
				fmt.Printf("%s:  %s - %s\n", issue.Level, issue.FilePath, issue.Message)
			}
		}

		fmt.Println()
		if errorCount == 0 && warningCount == 0 {
			fmt.Printf("✓ No issues found across %d landing pages.\n", report.Pages)
		} else {
			fmt.Printf("Found %d error(s), %d warning(s) across %d landing pages.\n", errorCount, warningCount, report.Pages)
		}

		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Treat warnings as errors")
	rootCmd.AddCommand(checkCmd)
}
