// Package config handles global marginalia configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"marginalia/internal/paths"
)

// Config represents the global marginalia configuration.
type Config struct {
	// VaultPath is the Obsidian vault the library lives in.
	VaultPath string `toml:"vault_path"`

	// Editor is the editor to use for opening files (defaults to $EDITOR).
	Editor string `toml:"editor"`

	// Layout overrides the stock vault directory names. Empty fields keep
	// their defaults.
	Layout paths.Names `toml:"layout"`

	// Extract controls calibre metadata extraction.
	Extract ExtractConfig `toml:"extract"`

	// Match holds the fuzzy-matching thresholds.
	Match MatchConfig `toml:"match"`

	// Watch controls `mgn watch` behavior.
	Watch WatchConfig `toml:"watch"`

	// Audit controls the append-only operation log.
	Audit AuditConfig `toml:"audit"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// ExtractConfig configures the external metadata tool.
type ExtractConfig struct {
	// Command is the ebook-meta binary to run (default: "ebook-meta").
	Command string `toml:"command"`

	// TimeoutSeconds bounds one extraction run (default: 30).
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the extraction timeout as a duration.
func (e ExtractConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// MatchConfig holds fuzzy-matching thresholds. Zero values mean the
// package defaults.
type MatchConfig struct {
	// DirThreshold accepts a book against a markdown directory name (0-1).
	DirThreshold float64 `toml:"dir_threshold"`

	// FileThreshold accepts a landing page against a markdown file stem (0-1).
	FileThreshold float64 `toml:"file_threshold"`

	// TokenThreshold accepts on token overlap alone (0-1).
	TokenThreshold float64 `toml:"token_threshold"`

	// DuplicateThreshold is the 0-100 score at which two books are the
	// same work.
	DuplicateThreshold float64 `toml:"duplicate_threshold"`
}

// WatchConfig configures `mgn watch`.
type WatchConfig struct {
	// DebounceMS is how long a dropped file must stay quiet before
	// processing, in milliseconds (default: 2000).
	DebounceMS int `toml:"debounce_ms"`
}

// Debounce returns the watch debounce as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// AuditConfig configures the `.marginalia/audit.log` operation log.
type AuditConfig struct {
	// Enabled turns the log on or off (default: on).
	Enabled *bool `toml:"enabled"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	// Example values: "monokai", "dracula", "github", "nord".
	CodeTheme string `toml:"code_theme"`
}

// GetVaultPath returns the configured vault path with "~" expanded.
func (c *Config) GetVaultPath() (string, error) {
	path := strings.TrimSpace(c.VaultPath)
	if path == "" {
		return "", fmt.Errorf("no vault configured")
	}
	return expandHome(path), nil
}

// GetEditor returns the editor to use, falling back to $EDITOR.
func (c *Config) GetEditor() string {
	if c.Editor != "" {
		return c.Editor
	}
	return os.Getenv("EDITOR")
}

// AuditEnabled returns whether the operation log is on (default: true).
func (c *Config) AuditEnabled() bool {
	if c.Audit.Enabled == nil {
		return true
	}
	return *c.Audit.Enabled
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&config)
	return &config, nil
}

// applyDefaults fills zero-valued settings so callers can read fields
// directly.
func applyDefaults(c *Config) {
	if c.Extract.Command == "" {
		c.Extract.Command = "ebook-meta"
	}
	if c.Extract.TimeoutSeconds <= 0 {
		c.Extract.TimeoutSeconds = 30
	}
	if c.Match.DirThreshold == 0 {
		c.Match.DirThreshold = 0.70
	}
	if c.Match.FileThreshold == 0 {
		c.Match.FileThreshold = 0.85
	}
	if c.Match.TokenThreshold == 0 {
		c.Match.TokenThreshold = 0.60
	}
	if c.Match.DuplicateThreshold == 0 {
		c.Match.DuplicateThreshold = 85.0
	}
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = 2000
	}
}

// DefaultPath returns the default config file path.
// Checks ~/.config/marginalia/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	// Prefer XDG-style ~/.config/marginalia/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "marginalia", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	// Fall back to XDG config dir or OS-specific location
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "marginalia", "config.toml")
	}

	// Last resort fallback
	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/marginalia/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "marginalia", "config.toml"), nil
}

// CreateDefault writes a commented starter config with the given vault
// path filled in. Returns the config path; an existing file is left alone.
func CreateDefault(vaultPath string) (string, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil // Already exists
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Marginalia Configuration

# The Obsidian vault the library lives in
vault_path = %q

# Editor for opening files (defaults to $EDITOR)
# editor = "code"

# Vault directory names, relative to the vault root
# [layout]
# books = "Books"
# annotations = "Books/Annotations"
# markdowns = "Books/Markdowns"
# annotated = "Books/Annotated"
# originals = "Books/Originals"
# bucket = "Bucket"
# clippings = "Kindle_highlights"
# index_file = "Books/Book Index.md"

# Calibre metadata extraction
# [extract]
# command = "ebook-meta"
# timeout_seconds = 30

# Fuzzy-matching thresholds
# [match]
# dir_threshold = 0.70
# file_threshold = 0.85
# token_threshold = 0.60
# duplicate_threshold = 85.0

# Watch mode
# [watch]
# debounce_ms = 2000

# Operation log at .marginalia/audit.log
# [audit]
# enabled = true

# Optional UI accent color for headers/links in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
# code_theme = "monokai"
`, vaultPath)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
