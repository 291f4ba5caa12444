// Package ui renders nudamu's terminal output: summary tables and colored
// grids.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary     = lipgloss.Color("#101F38") // Dark Blue
	Accent      = lipgloss.Color("#8BC34A") // Lime Green
	Muted       = lipgloss.Color("#8a94a6")
	Destructive = lipgloss.Color("#e53935") // Red
	Warning     = lipgloss.Color("#FFC107") // Yellow
)

// Palette is the conventional ARC color for each cell value 0..9.
var Palette = [10]lipgloss.Color{
	"#000000", // 0 black
	"#0074D9", // 1 blue
	"#FF4136", // 2 red
	"#2ECC40", // 3 green
	"#FFDC00", // 4 yellow
	"#AAAAAA", // 5 grey
	"#F012BE", // 6 magenta
	"#FF851B", // 7 orange
	"#7FDBFF", // 8 sky
	"#870C25", // 9 maroon
}

// Styles holds the styled components used by the CLI.
type Styles struct {
	Title   lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// NewStyles builds the CLI styles.
func NewStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),
		Body:  lipgloss.NewStyle(),
		Muted: lipgloss.NewStyle().Foreground(Muted),
		Bold:  lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(Warning),
	}
}

// DefaultStyles returns styles, plain when NO_COLOR is set.
func DefaultStyles() Styles {
	if os.Getenv("NO_COLOR") != "" {
		plain := lipgloss.NewStyle()
		return Styles{Title: plain, Body: plain, Muted: plain, Bold: plain, Success: plain, Error: plain, Warning: plain}
	}
	return NewStyles()
}
