// Package parser reads and writes the vault's markdown documents:
// front-matter blocks, heading structure, and fenced code blocks.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Frontmatter is a parsed front-matter block.
type Frontmatter struct {
	// Fields holds scalar fields as strings, the form every consumer
	// (preserve-set merging, the catalog, matching) wants them in.
	Fields map[string]string

	// Tags is the tags list, parsed from the nested bullet form.
	Tags []string

	// EndLine is the 0-indexed line of the closing fence.
	EndLine int
}

// Field is one rendered front-matter entry. Order matters to the renderer:
// documents are regenerated with a fixed field order so reruns produce
// byte-identical output.
type Field struct {
	Key   string
	Value string
	// Bare fields render without quotes (annotation-target, parent_document).
	Bare bool
}

// Bounds returns the closing fence line index for content whose first line
// opens a front-matter block. ok is false when there is no block; end is -1
// when the block never closes.
func Bounds(lines []string) (end int, ok bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return -1, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i, true
		}
	}
	return -1, true
}

// Parse parses the front-matter block of a document. Returns (nil, nil)
// when the document has no complete block; parse errors mean a block is
// present but corrupt, which callers treat as "regenerate fresh".
func Parse(content string) (*Frontmatter, error) {
	lines := strings.Split(content, "\n")
	end, ok := Bounds(lines)
	if !ok || end == -1 {
		return nil, nil
	}

	raw := strings.Join(lines[1:end], "\n")
	var data map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	fm := &Frontmatter{
		Fields:  make(map[string]string),
		EndLine: end,
	}
	for key, value := range data {
		if key == "tags" {
			fm.Tags = stringList(value)
			continue
		}
		if s, ok := scalarString(value); ok {
			fm.Fields[key] = s
		}
	}
	return fm, nil
}

// Get returns a field value, "" when absent.
func (fm *Frontmatter) Get(key string) string {
	if fm == nil {
		return ""
	}
	return fm.Fields[key]
}

// Render produces the front-matter block for the given fields, in order,
// with tags as a nested bullet list. Empty values are skipped. The result
// has no trailing newline.
func Render(fields []Field, tags []string) string {
	out := []string{"---"}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if f.Bare {
			out = append(out, f.Key+": "+f.Value)
		} else {
			out = append(out, f.Key+": \""+f.Value+"\"")
		}
	}
	if len(tags) > 0 {
		out = append(out, "tags:")
		for _, tag := range tags {
			out = append(out, "  - "+strings.TrimSpace(tag))
		}
	}
	out = append(out, "---")
	return strings.Join(out, "\n")
}

// Body returns the document content after the front-matter block and one
// separating blank line. Documents without front matter come back whole.
func Body(content string) string {
	lines := strings.Split(content, "\n")
	end, ok := Bounds(lines)
	if !ok || end == -1 {
		return content
	}
	body := strings.Join(lines[end+1:], "\n")
	return strings.TrimPrefix(body, "\n")
}

func scalarString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		return v.Format("2006-01-02"), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

func stringList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		// A comma-separated scalar also counts; calibre emits tags that way.
		if s, ok := scalarString(value); ok && s != "" {
			parts := strings.Split(s, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if t := strings.TrimSpace(p); t != "" {
					out = append(out, t)
				}
			}
			return out
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := scalarString(item); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
