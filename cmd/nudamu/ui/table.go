package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// columnGap separates adjacent columns.
const columnGap = "  "

// Column describes one table column.
type Column struct {
	Header string
	// Numeric columns are right-aligned so scores line up on the decimal point.
	Numeric bool
	// MaxWidth clips longer cells with an ellipsis; zero means unbounded.
	MaxWidth int
}

// Text is a left-aligned, unbounded column.
func Text(header string) Column { return Column{Header: header} }

// Num is a right-aligned column for counts and scores.
func Num(header string) Column { return Column{Header: header, Numeric: true} }

// Clipped is a left-aligned column whose cells are cut to width runes.
// Formulas and traces grow with the number of clauses, so they use this.
func Clipped(header string, width int) Column { return Column{Header: header, MaxWidth: width} }

// Table renders solver results as aligned plain-text columns with an
// optional summary footer.
type Table struct {
	title  string
	cols   []Column
	rows   [][]string
	footer []string
}

// NewTable creates a table with the given columns.
func NewTable(title string, cols ...Column) *Table {
	return &Table{title: title, cols: cols}
}

// Row appends a row. Missing cells render empty; cells beyond the last
// column are dropped.
func (t *Table) Row(cells ...string) {
	row := make([]string, len(t.cols))
	for i := range row {
		if i < len(cells) {
			row[i] = clip(cells[i], t.cols[i].MaxWidth)
		}
	}
	t.rows = append(t.rows, row)
}

// Footer appends a summary line printed under the rows.
func (t *Table) Footer(line string) {
	t.footer = append(t.footer, line)
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render draws the table. A table without rows renders only its footer.
func (t *Table) Render(styles Styles) string {
	var sb strings.Builder
	if len(t.rows) > 0 {
		widths := t.widths()
		if t.title != "" {
			sb.WriteString(styles.Title.Render(t.title) + "\n")
		}
		headers := make([]string, len(t.cols))
		for i, c := range t.cols {
			headers[i] = c.Header
		}
		sb.WriteString(styles.Bold.Render(t.line(headers, widths)) + "\n")

		rule := len(columnGap) * (len(widths) - 1)
		for _, w := range widths {
			rule += w
		}
		sb.WriteString(styles.Muted.Render(strings.Repeat("-", rule)) + "\n")

		for _, row := range t.rows {
			sb.WriteString(styles.Body.Render(t.line(row, widths)) + "\n")
		}
	}
	for _, f := range t.footer {
		sb.WriteString(styles.Muted.Render(f) + "\n")
	}
	return sb.String()
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.cols))
	for i, c := range t.cols {
		widths[i] = lipgloss.Width(c.Header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		if t.cols[i].Numeric {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, columnGap), " ")
}

func clip(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
