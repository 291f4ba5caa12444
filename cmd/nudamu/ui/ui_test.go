package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"nudamu/internal/grid"
)

func plainStyles() Styles {
	p := lipgloss.NewStyle()
	return Styles{Title: p, Body: p, Muted: p, Bold: p, Success: p, Error: p, Warning: p}
}

func TestTableAlignsScoresRight(t *testing.T) {
	table := NewTable("Predictions", Text("Task"), Num("Score"))
	table.Row("007bbfc7", "0.950")
	table.Row("a", "1.000", "extra cell is dropped")

	lines := strings.Split(strings.TrimSuffix(table.Render(plainStyles()), "\n"), "\n")
	assert.Equal(t, []string{
		"Predictions",
		"Task      Score",
		"---------------",
		"007bbfc7  0.950",
		"a         1.000",
	}, lines)
}

func TestTableClipsLongCells(t *testing.T) {
	table := NewTable("", Clipped("Formula", 8), Num("Fit"))
	table.Row("complete_transform AND BORDER: val=2", "0.5")

	view := table.Render(plainStyles())
	assert.Contains(t, view, "complet… ")
	assert.NotContains(t, view, "BORDER")
}

func TestTableFooter(t *testing.T) {
	table := NewTable("Runs", Text("ID"))
	table.Row("r1")
	table.Footer("Formulas: identity=2")

	lines := strings.Split(strings.TrimSuffix(table.Render(plainStyles()), "\n"), "\n")
	assert.Equal(t, "Formulas: identity=2", lines[len(lines)-1])
	assert.Equal(t, 1, table.Len())
}

func TestTableEmptyRendersFooterOnly(t *testing.T) {
	assert.Empty(t, NewTable("x", Text("a")).Render(plainStyles()))

	table := NewTable("x", Text("a"))
	table.Footer("0 predictions")
	assert.Equal(t, "0 predictions\n", table.Render(plainStyles()))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 0))
	assert.Equal(t, "abc", clip("abc", 3))
	assert.Equal(t, "a…", clip("abc", 2))
	assert.Equal(t, "…", clip("abc", 1))
}

func TestRenderGridPlain(t *testing.T) {
	g := grid.MustNew([][]int{{1, 0}, {9, 3}})
	assert.Equal(t, "1 0\n9 3\n", RenderGrid(g, false))
	assert.Equal(t, "(empty)", RenderGrid(grid.Grid{}, false))
}

func TestRenderGridColorHasOneLinePerRow(t *testing.T) {
	g := grid.MustNew([][]int{{1, 0, 2}, {9, 3, 4}})
	out := RenderGrid(g, true)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSideBySide(t *testing.T) {
	out := SideBySide("a\nb", "c\nd")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "a"))
	assert.True(t, strings.HasSuffix(lines[0], "c"))
}
