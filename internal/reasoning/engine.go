// Package reasoning selects the best-supported pattern learned from a task's
// training examples and applies it to the test input.
package reasoning

import (
	"fmt"

	"nudamu/internal/grid"
	"nudamu/internal/logging"
	"nudamu/internal/pattern"
	"nudamu/internal/transform"
)

const (
	// DefaultFormula labels the result when there is no evidence.
	DefaultFormula = "no_operation"
	// DefaultScore is the score of the no-evidence result.
	DefaultScore = 0.001
)

// Result is the outcome of reasoning over one task.
type Result struct {
	Output  grid.Grid `json:"output"`
	Formula string    `json:"formula"`
	Score   float64   `json:"score"`
}

// IsDefault reports whether r is the no-evidence fallback.
func (r Result) IsDefault() bool {
	return r.Formula == DefaultFormula
}

// Engine dispatches the selected pattern to a grid operation. It holds no
// per-task state; one Engine may serve any number of concurrent tasks.
type Engine struct {
	transformer *transform.Transformer
}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{transformer: transform.New()}
}

// Reason pools the patterns of every learned set, picks the most confident
// one (first wins on ties), and applies it to testInput.
//
// Reason never fails: with no evidence, or if the operation panics on a
// degenerate grid, it returns the default result (a copy of testInput).
func (e *Engine) Reason(sets []pattern.LearnedSet, testInput grid.Grid) Result {
	best, ok := Select(sets)
	if !ok {
		logging.ReasonDebug("no learned patterns; returning default result")
		return defaultResult(testInput)
	}

	output, err := e.execute(best, testInput)
	if err != nil {
		logging.Get(logging.CategoryReason).Warn("operation %s failed: %v", best.Kind, err)
		return defaultResult(testInput)
	}

	logging.ReasonDebug("dispatched %s", best)
	return Result{
		Output:  output,
		Formula: best.Kind.String(),
		Score:   best.Confidence,
	}
}

// Select returns the highest-confidence pattern across all sets. Ties keep
// the first pattern encountered, so the choice is stable for a fixed input
// order. ok is false when the pool is empty.
func Select(sets []pattern.LearnedSet) (best pattern.Pattern, ok bool) {
	for _, p := range pattern.Flatten(sets) {
		if !ok || p.Confidence > best.Confidence {
			best, ok = p, true
		}
	}
	return best, ok
}

// execute runs the operation for p, converting panics into errors.
func (e *Engine) execute(p pattern.Pattern, input grid.Grid) (out grid.Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic applying %s: %v", p.Kind, r)
		}
	}()
	if input.IsZero() {
		return grid.Grid{}, fmt.Errorf("empty test input")
	}
	return e.dispatch(p, input), nil
}

// dispatch is the operation table. Every kind without a dedicated operation
// falls through to an identity copy.
func (e *Engine) dispatch(p pattern.Pattern, input grid.Grid) grid.Grid {
	rows, cols := input.Shape()
	switch p.Kind {
	case pattern.KindCompleteTransform:
		return grid.Filled(rows, cols, p.Value)
	case pattern.KindIdentity:
		return e.transformer.ApplyRule(input, transform.RuleIdentity)
	case pattern.KindBorder:
		return borderOnly(rows, cols, p.Value)
	case pattern.KindCenterDot:
		return centerDot(rows, cols, p.Value)
	default:
		return e.transformer.ApplyRule(input, transform.RuleIdentity)
	}
}

func borderOnly(rows, cols, v int) grid.Grid {
	return grid.Build(rows, cols, func(r, c int) int {
		if r == 0 || c == 0 || r == rows-1 || c == cols-1 {
			return v
		}
		return 0
	})
}

func centerDot(rows, cols, v int) grid.Grid {
	cr, cc := rows/2, cols/2
	return grid.Build(rows, cols, func(r, c int) int {
		if r == cr && c == cc {
			return v
		}
		return 0
	})
}

func defaultResult(input grid.Grid) Result {
	return Result{
		Output:  input.Clone(),
		Formula: DefaultFormula,
		Score:   DefaultScore,
	}
}
