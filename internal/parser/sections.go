package parser

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one ATX heading in a document.
type Heading struct {
	Level int
	Text  string
	Line  int // 0-indexed
}

// CodeBlock is one fenced code block.
type CodeBlock struct {
	Language string
	Content  string
	Line     int // 0-indexed line of the opening fence
}

// ExtractHeadings returns all headings in the content in document order.
// Parsing goes through the markdown AST, so hash lines inside fenced code
// blocks are not headings. The front-matter block is masked out first;
// its closing fence would otherwise read as a setext underline.
func ExtractHeadings(content string) []Heading {
	source := []byte(maskFrontmatter(content))
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	lineStarts := computeLineStarts(source)

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		line := 0
		if h.Lines().Len() > 0 {
			line = offsetToLine(lineStarts, h.Lines().At(0).Start)
		}
		headings = append(headings, Heading{
			Level: h.Level,
			Text:  string(h.Text(source)),
			Line:  line,
		})
		return ast.WalkContinue, nil
	})
	return headings
}

// SectionSpan locates the section opened by the given marker heading, e.g.
// "## Notes & Highlights". It returns the 0-indexed line of the marker and
// the line just past the section, which runs until the next heading at the
// marker's level or shallower, or the end of the document.
func SectionSpan(content, marker string) (start, end int, ok bool) {
	level, title := splitMarker(marker)
	if level == 0 {
		return 0, 0, false
	}
	headings := ExtractHeadings(content)
	lineCount := strings.Count(content, "\n") + 1

	for i, h := range headings {
		if h.Level != level || h.Text != title {
			continue
		}
		end = lineCount
		for _, next := range headings[i+1:] {
			if next.Level <= level {
				end = next.Line
				break
			}
		}
		return h.Line, end, true
	}
	return 0, 0, false
}

// ReplaceSection swaps the marker's section in content for the same section
// taken from src. Nothing changes unless both documents contain the marker.
func ReplaceSection(content, src, marker string) string {
	srcStart, srcEnd, ok := SectionSpan(src, marker)
	if !ok {
		return content
	}
	dstStart, dstEnd, ok := SectionSpan(content, marker)
	if !ok {
		return content
	}
	srcLines := strings.Split(src, "\n")
	dstLines := strings.Split(content, "\n")

	out := make([]string, 0, len(dstLines))
	out = append(out, dstLines[:dstStart]...)
	out = append(out, srcLines[srcStart:srcEnd]...)
	out = append(out, dstLines[dstEnd:]...)
	return strings.Join(out, "\n")
}

// CodeBlocks returns all fenced code blocks in the content.
func CodeBlocks(content string) []CodeBlock {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	lineStarts := computeLineStarts(source)

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			seg := fcb.Lines().At(i)
			sb.Write(seg.Value(source))
		}
		line := 0
		if fcb.Lines().Len() > 0 {
			// The fence itself sits one line above the first content line.
			line = offsetToLine(lineStarts, fcb.Lines().At(0).Start) - 1
		} else if fcb.Info != nil {
			line = offsetToLine(lineStarts, fcb.Info.Segment.Start)
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fcb.Language(source)),
			Content:  sb.String(),
			Line:     line,
		})
		return ast.WalkContinue, nil
	})
	return blocks
}

func maskFrontmatter(content string) string {
	lines := strings.Split(content, "\n")
	end, ok := Bounds(lines)
	if !ok || end == -1 {
		return content
	}
	for i := 0; i <= end; i++ {
		lines[i] = ""
	}
	return strings.Join(lines, "\n")
}

func splitMarker(marker string) (level int, title string) {
	for level < len(marker) && marker[level] == '#' {
		level++
	}
	if level == 0 || level >= len(marker) || marker[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(marker[level:])
}

func computeLineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func offsetToLine(lineStarts []int, offset int) int {
	idx := sort.Search(len(lineStarts), func(i int) bool {
		return lineStarts[i] > offset
	})
	return idx - 1
}
