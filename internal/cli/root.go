// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marginalia/internal/config"
	"marginalia/internal/paths"
	"marginalia/internal/ui"
)

var (
	// Global flags
	vaultPathFlag string
	configPath    string
	quiet         bool

	// Resolved values
	resolvedVaultPath string
	cfg               *config.Config
	layout            paths.Layout
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mgn",
	Short: "Marginalia - an e-book library indexer for Obsidian",
	Long: `Marginalia files dropped e-books into an Obsidian vault and keeps the
vault's documents in step: landing pages with metadata front matter, a
master index, fuzzy-matched links to markdown renderings, and reader
highlights anchored into the text they came from.

Plain markdown files stay the source of truth; marginalia only writes
what it can regenerate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip vault resolution for commands that don't need it
		switch cmd.Name() {
		case "init", "version", "completion", "help":
			return nil
		}
		// Also skip for completion subcommands.
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		// Load config
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)

		// Resolve vault path: explicit flag > config
		if vaultPathFlag != "" {
			resolvedVaultPath = vaultPathFlag
		} else {
			resolvedVaultPath, err = cfg.GetVaultPath()
			if err != nil {
				return fmt.Errorf(`no vault specified

Either:
  1. Use --vault-path /path/to/vault
  2. Set vault_path in %s
  3. Run 'mgn init /path/to/vault' to create one`, config.DefaultPath())
			}
		}

		// Verify vault exists
		if _, err := os.Stat(resolvedVaultPath); os.IsNotExist(err) {
			return fmt.Errorf("vault not found: %s\n\nRun 'mgn init %s' to create it", resolvedVaultPath, resolvedVaultPath)
		}

		layout = paths.NewLayout(resolvedVaultPath, cfg.Layout)

		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultPathFlag, "vault-path", "", "Explicit path to the vault directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
}

// getVaultPath returns the resolved vault path.
func getVaultPath() string {
	return resolvedVaultPath
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	return cfg
}

// getLayout returns the resolved vault layout.
func getLayout() paths.Layout {
	return layout
}
