package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"marginalia/internal/atomicfile"
)

// persistedConfig mirrors Config with pointer fields so Save writes only
// settings that differ from the defaults.
type persistedConfig struct {
	VaultPath *string            `toml:"vault_path,omitempty"`
	Editor    *string            `toml:"editor,omitempty"`
	Layout    *persistedLayout   `toml:"layout,omitempty"`
	Extract   *persistedExtract  `toml:"extract,omitempty"`
	Match     *persistedMatch    `toml:"match,omitempty"`
	Watch     *persistedWatch    `toml:"watch,omitempty"`
	Audit     *persistedAudit    `toml:"audit,omitempty"`
	UI        *persistedUIConfig `toml:"ui,omitempty"`
}

type persistedLayout struct {
	Books       *string `toml:"books,omitempty"`
	Annotations *string `toml:"annotations,omitempty"`
	Markdowns   *string `toml:"markdowns,omitempty"`
	Annotated   *string `toml:"annotated,omitempty"`
	Originals   *string `toml:"originals,omitempty"`
	Bucket      *string `toml:"bucket,omitempty"`
	Clippings   *string `toml:"clippings,omitempty"`
	IndexFile   *string `toml:"index_file,omitempty"`
}

type persistedExtract struct {
	Command        *string `toml:"command,omitempty"`
	TimeoutSeconds *int    `toml:"timeout_seconds,omitempty"`
}

type persistedMatch struct {
	DirThreshold       *float64 `toml:"dir_threshold,omitempty"`
	FileThreshold      *float64 `toml:"file_threshold,omitempty"`
	TokenThreshold     *float64 `toml:"token_threshold,omitempty"`
	DuplicateThreshold *float64 `toml:"duplicate_threshold,omitempty"`
}

type persistedWatch struct {
	DebounceMS *int `toml:"debounce_ms,omitempty"`
}

type persistedAudit struct {
	Enabled *bool `toml:"enabled,omitempty"`
}

type persistedUIConfig struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringPtrIfNot(value, def string) *string {
	if value == "" || value == def {
		return nil
	}
	return &value
}

func intPtrIfNot(value, def int) *int {
	if value == 0 || value == def {
		return nil
	}
	return &value
}

func floatPtrIfNot(value, def float64) *float64 {
	if value == 0 || value == def {
		return nil
	}
	return &value
}

// Save writes the global config to the default config path.
func Save(cfg *Config) error {
	return SaveTo(DefaultPath(), cfg)
}

// SaveTo writes the global config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		VaultPath: nonEmptyPtr(cfg.VaultPath),
		Editor:    nonEmptyPtr(cfg.Editor),
	}

	layout := persistedLayout{
		Books:       nonEmptyPtr(cfg.Layout.Books),
		Annotations: nonEmptyPtr(cfg.Layout.Annotations),
		Markdowns:   nonEmptyPtr(cfg.Layout.Markdowns),
		Annotated:   nonEmptyPtr(cfg.Layout.Annotated),
		Originals:   nonEmptyPtr(cfg.Layout.Originals),
		Bucket:      nonEmptyPtr(cfg.Layout.Bucket),
		Clippings:   nonEmptyPtr(cfg.Layout.Clippings),
		IndexFile:   nonEmptyPtr(cfg.Layout.IndexFile),
	}
	if layout != (persistedLayout{}) {
		out.Layout = &layout
	}

	extract := persistedExtract{
		Command:        stringPtrIfNot(cfg.Extract.Command, "ebook-meta"),
		TimeoutSeconds: intPtrIfNot(cfg.Extract.TimeoutSeconds, 30),
	}
	if extract != (persistedExtract{}) {
		out.Extract = &extract
	}

	match := persistedMatch{
		DirThreshold:       floatPtrIfNot(cfg.Match.DirThreshold, 0.70),
		FileThreshold:      floatPtrIfNot(cfg.Match.FileThreshold, 0.85),
		TokenThreshold:     floatPtrIfNot(cfg.Match.TokenThreshold, 0.60),
		DuplicateThreshold: floatPtrIfNot(cfg.Match.DuplicateThreshold, 85.0),
	}
	if match != (persistedMatch{}) {
		out.Match = &match
	}

	if p := intPtrIfNot(cfg.Watch.DebounceMS, 2000); p != nil {
		out.Watch = &persistedWatch{DebounceMS: p}
	}

	if cfg.Audit.Enabled != nil {
		out.Audit = &persistedAudit{Enabled: cfg.Audit.Enabled}
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUIConfig{
			Accent:    accent,
			CodeTheme: codeTheme,
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
