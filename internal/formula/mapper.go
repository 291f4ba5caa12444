// Package formula renders detected patterns into a textual rule trace.
//
// The formula is an explanation artifact only: the reasoning engine
// dispatches on pattern kinds directly and never parses it back.
package formula

import (
	"fmt"
	"sort"
	"strings"

	"nudamu/internal/logging"
	"nudamu/internal/pattern"
)

const (
	// NoPattern is returned when nothing renders.
	NoPattern = "NO_PATTERN"
	// Conjunction joins clauses.
	Conjunction = " AND "
)

// priority orders clause kinds; unlisted kinds sort after all listed ones.
var priority = map[pattern.Kind]int{
	pattern.KindShapeChange:   0,
	pattern.KindRotation:      1,
	pattern.KindFlip:          2,
	pattern.KindColorMapping:  3,
	pattern.KindMathOperation: 4,
	pattern.KindStructural:    5,
}

func rank(k pattern.Kind) int {
	if r, ok := priority[k]; ok {
		return r
	}
	return len(priority)
}

// Mapper converts pattern lists into formulas. It is stateless.
type Mapper struct{}

// NewMapper returns a Mapper.
func NewMapper() *Mapper { return &Mapper{} }

// Map sorts patterns by clause priority (stable) and joins the non-empty
// rendered clauses with Conjunction. The input slice is not modified.
func (m *Mapper) Map(patterns []pattern.Pattern) string {
	sorted := append([]pattern.Pattern(nil), patterns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i].Kind) < rank(sorted[j].Kind)
	})

	clauses := make([]string, 0, len(sorted))
	for _, p := range sorted {
		if clause := Clause(p); clause != "" {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return NoPattern
	}
	f := strings.Join(clauses, Conjunction)
	logging.Get(logging.CategoryMapper).Debug("mapped %d patterns to %q", len(patterns), f)
	return f
}

// Clause renders a single pattern. Kinds outside the mapper vocabulary, and
// malformed parameters, render as the empty string.
func Clause(p pattern.Pattern) string {
	switch p.Kind {
	case pattern.KindColorMapping:
		return colorMappingClause(p)
	case pattern.KindMathOperation:
		return mathClause(p)
	case pattern.KindRotation:
		return fmt.Sprintf("output = rotate(input, %d)", p.Degrees)
	case pattern.KindFlip:
		return fmt.Sprintf("output = flip(input, '%s')", p.Axis)
	case pattern.KindStructural:
		return structuralClause(p)
	case pattern.KindShapeChange:
		return fmt.Sprintf("output = reshape(input, %s)", p.Target)
	default:
		return ""
	}
}

func colorMappingClause(p pattern.Pattern) string {
	if len(p.Map) == 0 {
		return ""
	}
	conditions := make([]string, len(p.Map))
	for i, pair := range p.Map {
		conditions[i] = fmt.Sprintf("input==%d -> %d", pair.From, pair.To)
	}
	return "MAP: " + strings.Join(conditions, "; ")
}

func mathClause(p pattern.Pattern) string {
	switch p.Op {
	case pattern.OpAdd:
		return fmt.Sprintf("output = input + %d", p.Value)
	case pattern.OpMultiply:
		return fmt.Sprintf("output = input * %d", p.Value)
	default:
		return ""
	}
}

func structuralClause(p pattern.Pattern) string {
	switch p.Structure {
	case pattern.StructureUniform:
		return fmt.Sprintf("FILL: all=%d", p.Value)
	case pattern.StructureBorder:
		return fmt.Sprintf("BORDER: val=%d", p.Value)
	default:
		return ""
	}
}
