// Package synthesis is an optional program-synthesis extension that sits
// beside the canonical pattern-dispatch engine. It induces simple rules
// from example pairs, enumerates fixed-length programs over them, and picks
// the program that reproduces the most examples.
//
// All learning state lives in a caller-owned *Memory; the package keeps no
// globals, so independent tasks never observe each other.
package synthesis

import (
	"fmt"
	"strings"

	"nudamu/internal/grid"
	"nudamu/internal/logging"
)

// RuleKind is the closed set of inducible rules.
type RuleKind uint8

const (
	RuleUnknown RuleKind = iota
	RuleIdentity
	RuleDiagonal
)

// Rule pairs a recognized pattern with the action that reproduces it.
type Rule struct {
	Kind   RuleKind
	Action string
}

var (
	identityRule = Rule{Kind: RuleIdentity, Action: "copy"}
	diagonalRule = Rule{Kind: RuleDiagonal, Action: "fill_diag"}
	unknownRule  = Rule{Kind: RuleUnknown, Action: "none"}
)

func (r Rule) String() string {
	switch r.Kind {
	case RuleIdentity:
		return "identity/" + r.Action
	case RuleDiagonal:
		return "diagonal/" + r.Action
	default:
		return "unknown/" + r.Action
	}
}

// Program is an ordered rule sequence executed left to right.
type Program []Rule

func (p Program) String() string {
	parts := make([]string, len(p))
	for i, r := range p {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, " -> ") + "]"
}

// Example is one training pair.
type Example struct {
	Input  grid.Grid
	Output grid.Grid
}

// Induce derives one rule per example: identity when output equals input,
// diagonal when every main-diagonal cell of the output is 1, otherwise
// unknown. Induced rules are appended to mem's long-term store when mem is
// non-nil.
func Induce(examples []Example, mem *Memory) []Rule {
	rules := make([]Rule, 0, len(examples))
	for _, ex := range examples {
		switch {
		case ex.Input.Equal(ex.Output):
			rules = append(rules, identityRule)
		case isDiagonal(ex.Output):
			rules = append(rules, diagonalRule)
		default:
			rules = append(rules, unknownRule)
		}
	}
	if mem != nil {
		mem.LongTerm = append(mem.LongTerm, rules...)
	}
	return rules
}

func isDiagonal(g grid.Grid) bool {
	n := min(g.Rows(), g.Cols())
	for i := 0; i < n; i++ {
		if g.At(i, i) != 1 {
			return false
		}
	}
	return n > 0
}

// Synthesize enumerates every program of exactly depth rules drawn from
// rules (the cartesian power), in lexicographic order of rule positions.
// depth < 1 yields no programs.
func Synthesize(rules []Rule, depth int) []Program {
	if depth < 1 || len(rules) == 0 {
		return nil
	}
	if depth == 1 {
		programs := make([]Program, len(rules))
		for i, r := range rules {
			programs[i] = Program{r}
		}
		return programs
	}
	tails := Synthesize(rules, depth-1)
	programs := make([]Program, 0, len(rules)*len(tails))
	for _, r := range rules {
		for _, tail := range tails {
			p := make(Program, 0, depth)
			p = append(p, r)
			p = append(p, tail...)
			programs = append(programs, p)
		}
	}
	return programs
}

// Execute runs program against input. Identity copies, diagonal produces
// an identity-matrix grid of the same shape, unknown rules pass through.
func Execute(program Program, input grid.Grid) grid.Grid {
	data := input.Clone()
	for _, rule := range program {
		switch rule.Kind {
		case RuleIdentity:
			data = data.Clone()
		case RuleDiagonal:
			data = grid.Build(data.Rows(), data.Cols(), func(r, c int) int {
				if r == c {
					return 1
				}
				return 0
			})
		default:
		}
	}
	return data
}

// Evaluate returns the fraction of examples program reproduces exactly.
func Evaluate(program Program, examples []Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	hits := 0
	for _, ex := range examples {
		if Execute(program, ex.Input).Equal(ex.Output) {
			hits++
		}
	}
	return float64(hits) / float64(len(examples))
}

// Candidate is a scored program.
type Candidate struct {
	Program Program
	Score   float64
}

// MetaReason scores every program and returns the first best one. Programs
// scoring below 1 are logged as feedback in mem, and their rules adopted
// into long-term memory (deduplicated).
func MetaReason(programs []Program, examples []Example, mem *Memory) (Candidate, bool) {
	var best Candidate
	found := false
	for _, prog := range programs {
		score := Evaluate(prog, examples)
		if !found || score > best.Score {
			best = Candidate{Program: prog, Score: score}
			found = true
		}
		if score < 1.0 && mem != nil {
			mem.Feedback = append(mem.Feedback, Candidate{Program: prog, Score: score})
			mem.adopt(prog)
		}
	}
	if found {
		logging.Get(logging.CategorySynth).Debug("best program %s scored %.2f over %d candidates", best.Program, best.Score, len(programs))
	}
	return best, found
}

// Solver chains induce → synthesize → meta-reason.
type Solver struct {
	Depth int
}

// NewSolver returns a Solver enumerating programs of the given depth.
func NewSolver(depth int) *Solver {
	if depth < 1 {
		depth = 1
	}
	return &Solver{Depth: depth}
}

// Solve returns the best program for examples. mem may be nil.
func (s *Solver) Solve(examples []Example, mem *Memory) (Candidate, error) {
	if len(examples) == 0 {
		return Candidate{}, fmt.Errorf("no examples")
	}
	rules := Induce(examples, mem)
	best, ok := MetaReason(Synthesize(rules, s.Depth), examples, mem)
	if !ok {
		return Candidate{}, fmt.Errorf("no candidate programs")
	}
	return best, nil
}
