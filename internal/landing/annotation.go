package landing

import (
	"strings"

	"marginalia/internal/metadata"
	"marginalia/internal/parser"
	"marginalia/internal/paths"
)

// RenderAnnotationDoc produces the annotation document for a book: front
// matter pointing the Obsidian Annotator plugin at the original file via
// annotation-target, a parent_document link back to the landing page, and
// a stub body. The body of an existing document survives untouched; only
// the front matter is regenerated.
func RenderAnnotationDoc(b *metadata.Book, landingRel, existing string) string {
	title := b.Title + paths.AnnotationsSuffix
	head := parser.Render([]parser.Field{
		{Key: "title", Value: title},
		{Key: "author", Value: b.Author},
		{Key: "annotation-target", Value: b.Path, Bare: true},
		{Key: "parent_document", Value: landingRel, Bare: true},
	}, nil)

	if existing != "" {
		if end, ok := parser.Bounds(strings.Split(existing, "\n")); ok && end != -1 {
			if body := parser.Body(existing); strings.TrimSpace(body) != "" {
				return head + "\n\n" + body
			}
		}
	}
	return head + "\n\n# " + title + "\n\nThis document is for annotating the original file using the Obsidian Annotator plugin.\n"
}
