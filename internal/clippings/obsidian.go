package clippings

import (
	"encoding/json"
	"regexp"
	"strings"

	"marginalia/internal/parser"
	"marginalia/internal/paths"
)

// annotatorRecord is the slice of the Annotator plugin's JSON we care
// about: the quoted text and the free-text comment.
type annotatorRecord struct {
	Text   string `json:"text"`
	Target []struct {
		Selector []struct {
			Type  string `json:"type"`
			Exact string `json:"exact"`
		} `json:"selector"`
	} `json:"target"`
}

var (
	inlineHighlightPattern = regexp.MustCompile(`(?s)\*%%PREFIX%%(.*?)%%HIGHLIGHT%% ==(.*?)== %%POSTFIX%%(.*?)\*`)
	inlineCommentPattern   = regexp.MustCompile(`(?s)%%COMMENT%%\n(.*?)\n`)
)

// ParseObsidian extracts annotations from an Annotator document: JSON
// blocks in annotation-json fences plus the inline %%HIGHLIGHT%% form.
// fallbackTitle covers documents without a usable front-matter title,
// typically the file stem.
func ParseObsidian(content, fallbackTitle string) []Annotation {
	title, target := annotationDocIdentity(content, fallbackTitle)

	var annotations []Annotation
	for _, block := range parser.CodeBlocks(content) {
		if block.Language != "annotation-json" {
			continue
		}
		var record annotatorRecord
		if err := json.Unmarshal([]byte(block.Content), &record); err != nil {
			continue
		}
		exact := quotedText(record)
		if exact == "" {
			continue
		}
		annotations = append(annotations, Annotation{
			Source:     SourceObsidian,
			Kind:       KindHighlight,
			BookTitle:  title,
			Text:       exact,
			Comment:    record.Text,
			TargetFile: target,
		})
	}

	for _, m := range inlineHighlightPattern.FindAllStringSubmatchIndex(content, -1) {
		text := strings.TrimSpace(content[m[4]:m[5]])
		if text == "" {
			continue
		}
		comment := ""
		// The comment marker trails the highlight closely when present.
		tail := content[m[1]:]
		if len(tail) > 200 {
			tail = tail[:200]
		}
		if cm := inlineCommentPattern.FindStringSubmatch(tail); cm != nil {
			comment = strings.TrimSpace(cm[1])
		}
		annotations = append(annotations, Annotation{
			Source:     SourceObsidian,
			Kind:       KindHighlight,
			BookTitle:  title,
			Text:       text,
			Comment:    comment,
			TargetFile: target,
		})
	}
	return annotations
}

func annotationDocIdentity(content, fallbackTitle string) (title, target string) {
	if fm, err := parser.Parse(content); err == nil && fm != nil {
		title = fm.Get("title")
		target = fm.Get("annotation-target")
	}
	if title == "" {
		title = fallbackTitle
	}
	title = strings.TrimSuffix(title, paths.AnnotationsSuffix)
	return strings.TrimSpace(title), target
}

func quotedText(record annotatorRecord) string {
	for _, t := range record.Target {
		for _, s := range t.Selector {
			if s.Type == "TextQuoteSelector" && s.Exact != "" {
				return s.Exact
			}
		}
	}
	return ""
}
