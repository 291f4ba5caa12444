package pattern

// kindWeights bias the aggregate confidence of a learned set toward the
// kinds that describe a whole-grid rule.
var kindWeights = map[Kind]float64{
	KindCompleteTransform: 1.3,
	KindIdentity:          1.2,
	KindRotation:          1.1,
}

// LearnedSet bundles the patterns detected for one training example.
type LearnedSet struct {
	Patterns   []Pattern `json:"patterns"`
	Confidence float64   `json:"confidence"`
	Formula    string    `json:"formula,omitempty"`
}

// NewLearnedSet copies patterns and computes the aggregate confidence.
func NewLearnedSet(patterns []Pattern) LearnedSet {
	return LearnedSet{
		Patterns:   append([]Pattern(nil), patterns...),
		Confidence: AggregateConfidence(patterns),
	}
}

// AggregateConfidence is the weighted mean of pattern confidences, capped at
// 1. An empty list scores 0.
func AggregateConfidence(patterns []Pattern) float64 {
	if len(patterns) == 0 {
		return 0
	}
	var sum float64
	for _, p := range patterns {
		w, ok := kindWeights[p.Kind]
		if !ok {
			w = 1.0
		}
		sum += p.Confidence * w
	}
	return min(1.0, sum/float64(len(patterns)))
}

// Kinds lists the kinds in the set, in detection order.
func (s LearnedSet) Kinds() []Kind {
	kinds := make([]Kind, len(s.Patterns))
	for i, p := range s.Patterns {
		kinds[i] = p.Kind
	}
	return kinds
}

// Has reports whether any pattern in the set has kind k.
func (s LearnedSet) Has(k Kind) bool {
	for _, p := range s.Patterns {
		if p.Kind == k {
			return true
		}
	}
	return false
}

// Flatten pools every pattern from sets in order.
func Flatten(sets []LearnedSet) []Pattern {
	var pool []Pattern
	for _, s := range sets {
		pool = append(pool, s.Patterns...)
	}
	return pool
}
