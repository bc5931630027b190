package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"marginalia/internal/dates"
	"marginalia/internal/slugs"
)

// Defaults for the ebook-meta runner.
const (
	DefaultCommand = "ebook-meta"
	DefaultTimeout = 30 * time.Second
)

// calibreFields maps ebook-meta output labels to Book fields. Labels are
// matched literally, so "Title" cannot bleed into the "Title sort" line.
var calibreFields = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"Title", labelPattern("Title")},
	{"Author(s)", labelPattern("Author(s)")},
	{"Publisher", labelPattern("Publisher")},
	{"Published", labelPattern("Published")},
	{"Tags", labelPattern("Tags")},
	{"Series", labelPattern("Series")},
	{"Rating", labelPattern("Rating")},
	{"Languages", labelPattern("Languages")},
}

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(label) + `\s+:\s*(.*)$`)
}

// Extractor runs ebook-meta against e-book files.
type Extractor struct {
	Command string
	Timeout time.Duration
}

// NewExtractor returns an Extractor, filling in defaults for empty settings.
func NewExtractor(command string, timeout time.Duration) *Extractor {
	if command == "" {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{Command: command, Timeout: timeout}
}

// Extract runs ebook-meta on the file and parses its output into a Book.
// Callers should fall back to FromFilename when this fails; a missing
// calibre install must not block intake.
func (e *Extractor) Extract(ctx context.Context, path string) (*Book, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Command, path)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s on %s", e.Command, e.Timeout, filepath.Base(path))
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s failed on %s: %s", e.Command, filepath.Base(path), detail)
		}
		return nil, fmt.Errorf("%s failed on %s: %w", e.Command, filepath.Base(path), err)
	}

	book := parseCalibreOutput(stdout.String())
	fillFromFilename(book, path)
	return book, nil
}

// FromFilename builds a Book from the file name alone, for files calibre
// cannot read.
func FromFilename(path string) *Book {
	book := &Book{}
	fillFromFilename(book, path)
	return book
}

func parseCalibreOutput(output string) *Book {
	book := &Book{}
	for _, f := range calibreFields {
		m := f.pattern.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		switch f.label {
		case "Title":
			book.Title = slugs.SafeFileName(value)
		case "Author(s)":
			// ebook-meta appends the sort form: "Daniel Kahneman [Kahneman, Daniel]".
			if i := strings.Index(value, " ["); i >= 0 {
				value = value[:i]
			}
			book.Author = slugs.SafeFileName(value)
		case "Publisher":
			book.Publisher = slugs.SafeFileName(value)
		case "Published":
			book.Published = slugs.SafeFileName(value)
		case "Tags":
			book.Tags = splitTags(value)
		case "Series":
			book.Series = slugs.SafeFileName(value)
		case "Rating":
			book.Rating = slugs.SafeFileName(value)
		case "Languages":
			book.Language = slugs.SafeFileName(value)
		}
	}
	return book
}

func fillFromFilename(book *Book, path string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if book.Title == "" {
		book.Title = slugs.SafeFileName(stem)
	}
	if book.Author == "" {
		if author, _, found := strings.Cut(stem, " - "); found && strings.TrimSpace(author) != "" {
			book.Author = slugs.SafeFileName(author)
		} else {
			book.Author = "Unknown Author"
		}
	}
	if ext := filepath.Ext(path); ext != "" {
		book.Format = strings.ToUpper(ext[1:])
	}
	book.Status = "new"
	book.ReadingProgress = 0
	book.LastOpened = dates.Today()
}

func splitTags(value string) []string {
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
