package solver

import (
	"math"

	"nudamu/internal/grid"
	"nudamu/internal/pattern"
	"nudamu/internal/task"
)

const (
	// NoTrainingScore is the partial credit given when a task has no
	// training pairs to compare against.
	NoTrainingScore = 0.3

	uniformBoost    = 0.3
	identityBoost   = 0.2
	structuralBoost = 0.2
)

// FitScore rates how plausible prediction is against the training outputs:
// the best per-example score across train. Pattern boosts use the kinds of
// the first learned set.
func FitScore(prediction grid.Grid, train []task.Pair, sets []pattern.LearnedSet) float64 {
	if len(train) == 0 {
		return NoTrainingScore
	}
	var first pattern.LearnedSet
	if len(sets) > 0 {
		first = sets[0]
	}
	best := 0.0
	for _, pair := range train {
		best = math.Max(best, outputScore(prediction, pair.Output, first))
	}
	return best
}

func outputScore(actual, expected grid.Grid, set pattern.LearnedSet) float64 {
	if actual.Equal(expected) {
		return 1
	}
	if !actual.SameShape(expected) {
		return 0
	}

	pixelAccuracy := float64(actual.Matches(expected)) / float64(expected.Size())

	boost := 0.0
	switch {
	case set.Has(pattern.KindCompleteTransform) && actual.IsUniform():
		boost = uniformBoost
	case set.Has(pattern.KindIdentity):
		boost = identityBoost
	}

	aMin, aMax := actual.MinMax()
	eMin, eMax := expected.MinMax()
	if aMin == eMin && aMax == eMax {
		boost += structuralBoost
	}

	return math.Min(1, pixelAccuracy+boost)
}
