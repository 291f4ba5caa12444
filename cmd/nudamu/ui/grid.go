package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nudamu/internal/grid"
)

// RenderGrid draws g one row per line. With color, each cell is a two-space
// swatch in its palette color; without, cells are digits.
func RenderGrid(g grid.Grid, color bool) string {
	if g.IsZero() {
		return "(empty)"
	}
	var sb strings.Builder
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			v := g.At(r, c)
			if color {
				sb.WriteString(lipgloss.NewStyle().Background(Palette[v]).Render("  "))
				continue
			}
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SideBySide joins rendered blocks horizontally with a gap.
func SideBySide(blocks ...string) string {
	spaced := make([]string, 0, 2*len(blocks))
	for i, b := range blocks {
		if i > 0 {
			spaced = append(spaced, "   ")
		}
		spaced = append(spaced, b)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, spaced...)
}
