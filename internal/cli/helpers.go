package cli

import (
	"fmt"

	"marginalia/internal/audit"
	"marginalia/internal/intake"
	"marginalia/internal/library"
	"marginalia/internal/match"
	"marginalia/internal/metadata"
	"marginalia/internal/ui"
)

// openCatalog opens the vault's catalog, rebuilding the database when its
// schema is outdated. Caller is responsible for calling Close().
func openCatalog() (*library.Catalog, error) {
	cat, rebuilt, err := library.OpenWithRebuild(getVaultPath())
	if err != nil {
		return nil, err
	}
	if rebuilt {
		infof("%s", ui.Info("Catalog schema was outdated - rebuilt empty; 'mgn process' repopulates it."))
	}
	return cat, nil
}

// newProcessor builds the intake pipeline from config: calibre metadata
// extraction and the configured matching thresholds.
func newProcessor(cat *library.Catalog) *intake.Processor {
	c := getConfig()
	ext := metadata.NewExtractor(c.Extract.Command, c.Extract.Timeout())
	p := intake.New(getLayout(), ext, cat)
	p.Matcher = newMatcher()
	p.Resolver.Threshold = c.Match.DuplicateThreshold
	return p
}

// newMatcher returns a fuzzy matcher tuned from config.
func newMatcher() *match.Matcher {
	c := getConfig()
	m := match.New()
	m.DirThreshold = c.Match.DirThreshold
	m.FileThreshold = c.Match.FileThreshold
	m.TokenThreshold = c.Match.TokenThreshold
	return m
}

// newAuditLogger returns the vault's operation log, a no-op when disabled
// in config.
func newAuditLogger() *audit.Logger {
	return audit.New(getVaultPath(), getConfig().AuditEnabled())
}

// infof prints a progress line in text mode. --quiet and --json silence it.
func infof(format string, args ...interface{}) {
	if quiet || jsonOutput {
		return
	}
	fmt.Printf(format+"\n", args...)
}
