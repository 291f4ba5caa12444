// Package grid provides the immutable 2D color matrix shared by every stage
// of the nudamu pipeline.
//
// A Grid is a value: no exported method mutates it, and every transformation
// returns a fresh Grid. Validation happens once, at the boundary (New /
// UnmarshalJSON); the rest of the pipeline assumes well-formed grids.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxColor is the largest color index accepted at the boundary.
const MaxColor = 9

var (
	// ErrEmpty is returned for grids with no rows or no columns.
	ErrEmpty = errors.New("grid is empty")
	// ErrRagged is returned when rows have different lengths.
	ErrRagged = errors.New("grid is not rectangular")
	// ErrColor is returned for cell values outside 0..MaxColor.
	ErrColor = errors.New("grid cell out of color range")
)

// Grid is a rectangular, non-empty matrix of color indices.
// The zero value has no cells and is only useful as a sentinel.
type Grid struct {
	cells [][]int
	rows  int
	cols  int
}

// New validates rows and returns a Grid holding a deep copy of them.
func New(rows [][]int) (Grid, error) {
	if err := Validate(rows); err != nil {
		return Grid{}, err
	}
	return fromTrusted(rows), nil
}

// MustNew is like New but panics on invalid input. Intended for literals.
func MustNew(rows [][]int) Grid {
	g, err := New(rows)
	if err != nil {
		panic(err)
	}
	return g
}

// Validate checks the boundary invariants: non-empty, rectangular, and every
// value within 0..MaxColor.
func Validate(rows [][]int) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ErrEmpty
	}
	width := len(rows[0])
	for r, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRagged, r, len(row), width)
		}
		for c, v := range row {
			if v < 0 || v > MaxColor {
				return fmt.Errorf("%w: [%d,%d]=%d", ErrColor, r, c, v)
			}
		}
	}
	return nil
}

// Build constructs a rows x cols grid whose cell values come from fn.
// It performs no color validation; transformations may legitimately produce
// values the boundary would reject.
func Build(rows, cols int, fn func(r, c int) int) Grid {
	cells := make([][]int, rows)
	for r := range cells {
		cells[r] = make([]int, cols)
		for c := range cells[r] {
			cells[r][c] = fn(r, c)
		}
	}
	return Grid{cells: cells, rows: rows, cols: cols}
}

// Filled returns a rows x cols grid with every cell set to v.
func Filled(rows, cols, v int) Grid {
	return Build(rows, cols, func(int, int) int { return v })
}

// Zeros returns a rows x cols grid of zeros.
func Zeros(rows, cols int) Grid {
	return Filled(rows, cols, 0)
}

func fromTrusted(rows [][]int) Grid {
	return Build(len(rows), len(rows[0]), func(r, c int) int { return rows[r][c] })
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g Grid) Cols() int { return g.cols }

// Shape returns (rows, cols).
func (g Grid) Shape() (int, int) { return g.rows, g.cols }

// IsZero reports whether g is the zero Grid.
func (g Grid) IsZero() bool { return g.rows == 0 }

// At returns the value at row r, column c. It panics when out of range,
// like slice indexing.
func (g Grid) At(r, c int) int { return g.cells[r][c] }

// Cells returns a deep copy of the underlying matrix.
func (g Grid) Cells() [][]int {
	out := make([][]int, g.rows)
	for r := range out {
		out[r] = append([]int(nil), g.cells[r]...)
	}
	return out
}

// Row returns a copy of row r.
func (g Grid) Row(r int) []int { return append([]int(nil), g.cells[r]...) }

// Col returns a copy of column c.
func (g Grid) Col(c int) []int {
	out := make([]int, g.rows)
	for r := range out {
		out[r] = g.cells[r][c]
	}
	return out
}

// Clone returns a Grid that shares no storage with g.
func (g Grid) Clone() Grid {
	if g.IsZero() {
		return Grid{}
	}
	return fromTrusted(g.cells)
}

// Equal reports cell-for-cell equality, including shape.
func (g Grid) Equal(o Grid) bool {
	if g.rows != o.rows || g.cols != o.cols {
		return false
	}
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r][c] != o.cells[r][c] {
				return false
			}
		}
	}
	return true
}

// SameShape reports whether g and o have identical dimensions.
func (g Grid) SameShape(o Grid) bool {
	return g.rows == o.rows && g.cols == o.cols
}

// IsUniform reports whether every cell equals the top-left cell.
func (g Grid) IsUniform() bool {
	if g.IsZero() {
		return false
	}
	first := g.cells[0][0]
	for _, row := range g.cells {
		for _, v := range row {
			if v != first {
				return false
			}
		}
	}
	return true
}

// RingUniform reports whether the outermost row/column ring is a single
// value, and returns it.
func (g Grid) RingUniform() (int, bool) {
	if g.IsZero() {
		return 0, false
	}
	v := g.cells[0][0]
	last := g.rows - 1
	for c := 0; c < g.cols; c++ {
		if g.cells[0][c] != v || g.cells[last][c] != v {
			return 0, false
		}
	}
	for r := 0; r < g.rows; r++ {
		if g.cells[r][0] != v || g.cells[r][g.cols-1] != v {
			return 0, false
		}
	}
	return v, true
}

// OnRing reports whether (r, c) lies on the outermost ring.
func (g Grid) OnRing(r, c int) bool {
	return r == 0 || c == 0 || r == g.rows-1 || c == g.cols-1
}

// Sum returns the sum of all cells.
func (g Grid) Sum() int {
	total := 0
	for _, row := range g.cells {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// MinMax returns the smallest and largest cell values.
func (g Grid) MinMax() (int, int) {
	lo, hi := g.cells[0][0], g.cells[0][0]
	for _, row := range g.cells {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Matches counts the cells where g and o agree. Shapes must match.
func (g Grid) Matches(o Grid) int {
	n := 0
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r][c] == o.cells[r][c] {
				n++
			}
		}
	}
	return n
}

// Size returns rows*cols.
func (g Grid) Size() int { return g.rows * g.cols }

// String renders the grid one row per line, cells separated by spaces.
func (g Grid) String() string {
	var sb strings.Builder
	for r, row := range g.cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c, v := range row {
			if c > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", v)
		}
	}
	return sb.String()
}

// MarshalJSON encodes the grid as a plain [][]int.
func (g Grid) MarshalJSON() ([]byte, error) {
	if g.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(g.cells)
}

// UnmarshalJSON decodes and validates a [][]int.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode grid: %w", err)
	}
	parsed, err := New(rows)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
