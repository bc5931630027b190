package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// ColumnDef defines a column in a ListTable.
type ColumnDef struct {
	Name       string         // Column name (used by ContentWidth, not displayed)
	WidthRatio float64        // Proportion of available width (0.0-1.0), 0 means fixed width
	MinWidth   int            // Minimum width in characters
	MaxWidth   int            // Maximum width (0 = no limit)
	Align      Alignment      // Text alignment
	Style      lipgloss.Style // Style to apply to cells in this column
}

// ListTable renders aligned rows without borders, sized to the terminal.
type ListTable struct {
	display *DisplayContext
	columns []ColumnDef
	rows    [][]string
}

// Standard column definitions for book listings.
var (
	// ColNum is the row number column (fixed width, right-aligned, muted).
	ColNum = ColumnDef{
		Name:     "num",
		MinWidth: 4,
		MaxWidth: 6,
		Align:    AlignRight,
		Style:    Muted,
	}

	// ColTitle is the book title column (flexible width).
	ColTitle = ColumnDef{
		Name:       "title",
		WidthRatio: 0.45,
		MinWidth:   20,
		MaxWidth:   70,
		Align:      AlignLeft,
	}

	// ColAuthor is the author column.
	ColAuthor = ColumnDef{
		Name:       "author",
		WidthRatio: 0.30,
		MinWidth:   12,
		MaxWidth:   40,
		Align:      AlignLeft,
		Style:      Muted,
	}

	// ColFormat is the file format column (EPUB, PDF, ...).
	ColFormat = ColumnDef{
		Name:     "format",
		MinWidth: 5,
		MaxWidth: 5,
		Align:    AlignLeft,
		Style:    Muted,
	}

	// ColStatus is the reading status column.
	ColStatus = ColumnDef{
		Name:     "status",
		MinWidth: 9,
		MaxWidth: 9,
		Align:    AlignLeft,
	}

	// ColProgress is the reading progress column.
	ColProgress = ColumnDef{
		Name:     "progress",
		MinWidth: 4,
		MaxWidth: 4,
		Align:    AlignRight,
		Style:    Muted,
	}
)

// BookListLayout is the column layout for book listings:
// [num, title, author, format, status, progress]
var BookListLayout = []ColumnDef{ColNum, ColTitle, ColAuthor, ColFormat, ColStatus, ColProgress}

// NewListTable creates a ListTable with the given display context and columns.
func NewListTable(display *DisplayContext, columns []ColumnDef) *ListTable {
	return &ListTable{
		display: display,
		columns: columns,
	}
}

// AddRow adds a row of cells to the table.
func (t *ListTable) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// ContentWidth returns the calculated width for a column by name, so callers
// can truncate cell content to what will actually fit.
func (t *ListTable) ContentWidth(columnName string) int {
	widths := t.calculateWidths()
	for i, col := range t.columns {
		if col.Name == columnName {
			return widths[i]
		}
	}
	return 60 // fallback
}

// calculateWidths computes column widths from terminal size and column definitions.
func (t *ListTable) calculateWidths() []int {
	widths := make([]int, len(t.columns))

	var totalRatio float64
	var fixedWidth int
	const columnPadding = 2

	for i, col := range t.columns {
		if col.WidthRatio == 0 {
			widths[i] = col.MinWidth
			if col.MaxWidth > 0 && widths[i] > col.MaxWidth {
				widths[i] = col.MaxWidth
			}
			fixedWidth += widths[i]
		} else {
			totalRatio += col.WidthRatio
		}
	}

	totalPadding := (len(t.columns) - 1) * columnPadding
	leftMargin := 2
	available := t.display.TermWidth - fixedWidth - totalPadding - leftMargin

	if available < 0 {
		available = 0
	}

	for i, col := range t.columns {
		if col.WidthRatio > 0 {
			ratio := col.WidthRatio / totalRatio
			width := int(float64(available) * ratio)

			if width < col.MinWidth {
				width = col.MinWidth
			}
			if col.MaxWidth > 0 && width > col.MaxWidth {
				width = col.MaxWidth
			}

			widths[i] = width
		}
	}

	return widths
}

// Render generates the table output as a string.
func (t *ListTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := t.calculateWidths()

	tbl := table.New().
		Border(lipgloss.Border{}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}

			colDef := t.columns[col]
			style := colDef.Style
			if style.Value() == "" {
				style = lipgloss.NewStyle()
			}

			style = style.Width(widths[col])

			switch colDef.Align {
			case AlignRight:
				style = style.Align(lipgloss.Right)
			case AlignCenter:
				style = style.Align(lipgloss.Center)
			default:
				style = style.Align(lipgloss.Left)
			}

			if col < len(t.columns)-1 {
				style = style.PaddingRight(2)
			}

			return style
		}).
		Rows(t.rows...)

	return tbl.Render()
}

// TruncateWithEllipsis truncates a string to maxLen, adding ellipsis if needed.
// It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}

	truncated := s[:maxLen-3]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// WrapTextTwoLines wraps text into at most two lines, with the second line truncated.
func WrapTextTwoLines(text string, maxLen int) (line1, line2 string) {
	if len(text) <= maxLen {
		return text, ""
	}

	breakPoint := maxLen
	for i := maxLen; i > maxLen/2; i-- {
		if i < len(text) && text[i] == ' ' {
			breakPoint = i
			break
		}
	}

	line1 = strings.TrimSpace(text[:breakPoint])
	line2 = strings.TrimSpace(text[breakPoint:])

	if len(line2) > maxLen {
		line2 = TruncateWithEllipsis(line2, maxLen)
	}

	return line1, line2
}

// FormatRowNum formats a row number with consistent width.
func FormatRowNum(num, maxNum int) string {
	width := len(fmt.Sprintf("%d", maxNum))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%*d", width, num)
}
