package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"marginalia/internal/config"
	"marginalia/internal/paths"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a vault for marginalia",
	Long: `Creates the library directories inside an Obsidian vault (current
directory when no path is given) and a starter config.

Creates:
  - Books/               (landing pages and the master index)
  - Books/Annotations/   (annotation documents)
  - Books/Markdowns/     (markdown renderings)
  - Books/Annotated/     (anchored renderings)
  - Books/Originals/     (admitted e-book files)
  - Bucket/              (drop zone for new e-books)
  - Kindle_highlights/   (My Clippings.txt exports)
  - .marginalia/         (catalog and operation log)
  - .gitignore           (ignores derived files)
  - config.toml          (global config, first run only)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return handleError(ErrInvalidInput, fmt.Errorf("resolve path: %w", err), "")
		}

		// init runs before vault resolution, so load config directly. A
		// custom layout in an existing config shapes the new vault too.
		c, err := config.Load()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Fix the config file and try again")
		}
		vaultLayout := paths.NewLayout(absPath, c.Layout)

		if !isJSONOutput() {
			fmt.Printf("Initializing vault at: %s\n", absPath)
		}

		for _, dir := range vaultLayout.AllDirs() {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return handleError(ErrFileWriteError, fmt.Errorf("failed to create %s: %w", dir, err), "")
			}
		}

		gitignoreStatus, err := ensureGitignore(absPath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		// Write the global config on first run; an existing one is kept.
		configCreated := false
		if _, err := os.Stat(config.DefaultPath()); os.IsNotExist(err) {
			configCreated = true
		}
		configFile, err := config.CreateDefault(absPath)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			dirs := make([]string, 0, len(vaultLayout.AllDirs()))
			for _, dir := range vaultLayout.AllDirs() {
				dirs = append(dirs, vaultLayout.Rel(dir))
			}
			outputSuccess(map[string]interface{}{
				"path":             absPath,
				"dirs":             dirs,
				"gitignore_status": gitignoreStatus,
				"config_path":      configFile,
				"config_created":   configCreated,
			})
			return nil
		}

		fmt.Println("✓ Ensured library directories exist")

		switch gitignoreStatus {
		case "created":
			fmt.Println("✓ Created .gitignore")
		case "updated":
			fmt.Println("✓ Updated .gitignore (added marginalia entries)")
		default:
			fmt.Println("• .gitignore already has marginalia entries")
		}

		if configCreated {
			fmt.Printf("✓ Created %s\n", configFile)
		} else {
			fmt.Printf("• %s already exists (kept)\n", configFile)
		}

		if configCreated {
			fmt.Println("\nVault initialized! Drop e-books into Bucket/ and run 'mgn process'.")
		} else {
			fmt.Println("\nExisting vault detected. Configuration preserved.")
		}

		return nil
	},
}

// ensureGitignore adds the derived-state entries to the vault's .gitignore,
// creating the file when absent. Returns "created", "updated", or
// "unchanged".
func ensureGitignore(vaultPath string) (string, error) {
	gitignorePath := filepath.Join(vaultPath, ".gitignore")
	entries := []string{paths.StateDirName + "/"}

	existingContent := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	var missingEntries []string
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			missingEntries = append(missingEntries, entry)
		}
	}
	if len(missingEntries) == 0 {
		if existingContent != "" {
			return "unchanged", nil
		}
	}

	var newContent string
	status := "updated"
	if existingContent == "" {
		status = "created"
		newContent = `# Marginalia (auto-generated)
# The catalog is derived state - your markdown is the source of truth

# Catalog database and operation log
` + paths.StateDirName + `/
`
	} else {
		addition := "\n# Marginalia\n"
		for _, entry := range missingEntries {
			addition += entry + "\n"
		}
		newContent = strings.TrimRight(existingContent, "\n") + "\n" + addition
	}
	if err := os.WriteFile(gitignorePath, []byte(newContent), 0644); err != nil {
		return "", fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return status, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
