// Package audit provides an append-only log of what each run did to the
// vault: files admitted or discarded, pages written, highlights anchored.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"marginalia/internal/paths"
)

const logFileName = "audit.log"

// Entry is a single logged operation.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Operation string    `json:"op"`             // admit, duplicate, supersede, resident, book, link, sync, index, check
	Path      string    `json:"path,omitempty"` // vault-relative file the operation touched
	Slug      string    `json:"slug,omitempty"` // catalog key of the book involved
	Of        string    `json:"of,omitempty"`   // canonical path or slug a copy resolved to
	Score     float64   `json:"score,omitempty"`
	Count     int       `json:"count,omitempty"`
	Detail    string    `json:"detail,omitempty"`

	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Logger appends entries to the vault's audit log.
type Logger struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// New creates an audit logger writing under the vault's state directory.
// When enabled is false the logger is a no-op.
func New(vaultPath string, enabled bool) *Logger {
	if !enabled {
		return &Logger{enabled: false}
	}
	return &Logger{
		path:    filepath.Join(vaultPath, paths.StateDirName, logFileName),
		enabled: true,
	}
}

// Log writes one entry. A zero timestamp is stamped with the current time.
func (l *Logger) Log(entry Entry) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(string(data) + "\n"); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// LogAdmission records an intake decision for one offered file.
func (l *Logger) LogAdmission(action, source, dest, of string) error {
	return l.Log(Entry{
		Operation: action,
		Path:      source,
		Of:        of,
		Detail:    dest,
	})
}

// LogBook records a landing-page outcome for one original.
func (l *Logger) LogBook(action, path, slug, of string, score float64) error {
	return l.Log(Entry{
		Operation: "book." + action,
		Path:      path,
		Slug:      slug,
		Of:        of,
		Score:     score,
	})
}

// LogSync records highlights anchored into a rendering.
func (l *Logger) LogSync(slug, path string, anchored int) error {
	return l.Log(Entry{
		Operation: "sync",
		Path:      path,
		Slug:      slug,
		Count:     anchored,
	})
}

// LogIndex records an index rebuild over n books.
func (l *Logger) LogIndex(n int) error {
	return l.Log(Entry{Operation: "index", Count: n})
}

// Read returns every entry in the log, skipping malformed lines.
func (l *Logger) Read() ([]Entry, error) {
	if !l.enabled {
		return nil, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	var entries []Entry
	for _, line := range splitLines(string(data)) {
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadSince returns entries stamped at or after the given time.
func (l *Logger) ReadSince(since time.Time) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, entry := range all {
		if entry.Timestamp.After(since) || entry.Timestamp.Equal(since) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// Enabled reports whether entries are being written.
func (l *Logger) Enabled() bool {
	return l.enabled
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
