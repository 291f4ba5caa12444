// Package transform applies named declarative rules to grids.
//
// Every rule is a pure function of its input grid. Unrecognized rule names
// are not errors: they yield an unchanged copy.
package transform

import (
	"fmt"
	"strings"

	"nudamu/internal/grid"
)

// Rule is the closed rule vocabulary.
type Rule uint8

const (
	RuleIdentity Rule = iota
	RuleDiag
	RuleAntiDiag
	RuleVerticalStripe
	RuleHorizontalStripe
	RuleBorder
	RuleOnes
)

var ruleNames = map[Rule]string{
	RuleIdentity:         "identity",
	RuleDiag:             "diag",
	RuleAntiDiag:         "anti_diag",
	RuleVerticalStripe:   "v + a",
	RuleHorizontalStripe: "h + a",
	RuleBorder:           "border",
	RuleOnes:             "ones",
}

// Rules lists the vocabulary in declaration order.
func Rules() []Rule {
	return []Rule{RuleIdentity, RuleDiag, RuleAntiDiag, RuleVerticalStripe, RuleHorizontalStripe, RuleBorder, RuleOnes}
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rule(%d)", r)
}

// ParseRule resolves a rule name. The "y = " prefix used in rule formulas is
// accepted and surrounding whitespace ignored. Unknown names return
// RuleIdentity with ok=false.
func ParseRule(name string) (Rule, bool) {
	clean := strings.TrimSpace(name)
	clean = strings.TrimSpace(strings.TrimPrefix(clean, "y ="))
	for r, n := range ruleNames {
		if n == clean {
			return r, true
		}
	}
	return RuleIdentity, false
}

// Transformer applies rules. It has no state.
type Transformer struct{}

// New returns a Transformer.
func New() *Transformer { return &Transformer{} }

// Apply resolves ruleName and applies it; unknown names copy the input.
func (t *Transformer) Apply(g grid.Grid, ruleName string) grid.Grid {
	r, _ := ParseRule(ruleName)
	return t.ApplyRule(g, r)
}

// ApplyRule applies r to g and returns a new grid.
func (t *Transformer) ApplyRule(g grid.Grid, r Rule) grid.Grid {
	rows, cols := g.Shape()
	switch r {
	case RuleDiag:
		return grid.Filled(rows, cols, g.At(0, 0))
	case RuleAntiDiag:
		return grid.Filled(rows, cols, g.At(0, cols-1))
	case RuleVerticalStripe:
		mid := cols / 2
		return grid.Build(rows, cols, func(r, _ int) int { return g.At(r, mid) })
	case RuleHorizontalStripe:
		mid := rows / 2
		return grid.Build(rows, cols, func(_, c int) int { return g.At(mid, c) })
	case RuleBorder:
		return invertInterior(g)
	case RuleOnes:
		return grid.Filled(rows, cols, 1)
	default:
		return g.Clone()
	}
}

// invertInterior flips 0/1 for every cell off the outer ring. Grids with
// fewer than three rows or columns have no interior and are copied as-is.
func invertInterior(g grid.Grid) grid.Grid {
	return grid.Build(g.Rows(), g.Cols(), func(r, c int) int {
		v := g.At(r, c)
		if g.OnRing(r, c) {
			return v
		}
		return 1 - v
	})
}
