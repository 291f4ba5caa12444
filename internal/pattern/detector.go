package pattern

import (
	"nudamu/internal/grid"
	"nudamu/internal/logging"
)

// Fixed confidences for each detector tier.
const (
	ConfidenceCompleteTransform = 0.95
	ConfidenceIdentity          = 1.0
	ConfidenceBorder            = 0.9
	ConfidenceCenterDot         = 0.85
	ConfidenceUnknown           = 0.1
)

// Detector classifies an (input, output) example pair. It holds no state and
// is safe for concurrent use.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect returns the patterns describing how input became output, highest
// priority first. The result is never empty.
//
// Detection is a strict cascade: a uniform output (tier 1) or an unchanged
// output (tier 2) short-circuits everything below it. Tier 3 may emit any
// number of structural patterns; ties between them are left to the caller.
func (d *Detector) Detect(input, output grid.Grid) []Pattern {
	if p, ok := detectCompleteTransform(output); ok {
		logging.DetectDebug("tier 1: %s", p)
		return []Pattern{p}
	}
	if p, ok := detectIdentity(input, output); ok {
		logging.DetectDebug("tier 2: %s", p)
		return []Pattern{p}
	}

	patterns := detectStructural(output)
	if len(patterns) == 0 {
		logging.DetectDebug("no structure recognized in %dx%d output", output.Rows(), output.Cols())
		return []Pattern{Unknown()}
	}
	logging.DetectDebug("tier 3: %d patterns", len(patterns))
	return patterns
}

func detectCompleteTransform(output grid.Grid) (Pattern, bool) {
	if !output.IsUniform() {
		return Pattern{}, false
	}
	return Pattern{
		Kind:       KindCompleteTransform,
		Confidence: ConfidenceCompleteTransform,
		Value:      output.At(0, 0),
	}, true
}

func detectIdentity(input, output grid.Grid) (Pattern, bool) {
	if !input.Equal(output) {
		return Pattern{}, false
	}
	return Pattern{Kind: KindIdentity, Confidence: ConfidenceIdentity}, true
}

// detectStructural runs every tier-3 check; it does not short-circuit.
func detectStructural(output grid.Grid) []Pattern {
	var patterns []Pattern

	if output.Rows() >= 3 && output.Cols() >= 3 {
		if v, ok := output.RingUniform(); ok {
			patterns = append(patterns, Pattern{
				Kind:       KindBorder,
				Confidence: ConfidenceBorder,
				Value:      v,
			})
		}
	}

	if output.Rows() == 3 && output.Cols() == 3 {
		center := output.At(1, 1)
		if center != 0 && output.Sum() == center {
			patterns = append(patterns, Pattern{
				Kind:       KindCenterDot,
				Confidence: ConfidenceCenterDot,
				Value:      center,
			})
		}
	}

	return patterns
}
