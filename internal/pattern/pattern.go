// Package pattern defines the structural regularities nudamu recognizes
// between an input and an output grid, and the detector that finds them.
package pattern

import (
	"fmt"
	"sort"
)

// Kind is the closed vocabulary of pattern types. The detector emits the
// first five; the remaining kinds are understood by the formula mapper so
// richer detectors (or hand-written pattern lists) can be rendered.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCompleteTransform
	KindIdentity
	KindBorder
	KindCenterDot
	KindShapeChange
	KindRotation
	KindFlip
	KindColorMapping
	KindMathOperation
	KindStructural
)

var kindNames = [...]string{
	KindUnknown:           "unknown",
	KindCompleteTransform: "complete_transform",
	KindIdentity:          "identity",
	KindBorder:            "border",
	KindCenterDot:         "center_dot",
	KindShapeChange:       "shape_change",
	KindRotation:          "rotation",
	KindFlip:              "flip",
	KindColorMapping:      "color_mapping",
	KindMathOperation:     "math_operation",
	KindStructural:        "structural",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a wire name back to a Kind. Unrecognized names map to
// KindUnknown with ok=false.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode to
// KindUnknown rather than failing.
func (k *Kind) UnmarshalText(b []byte) error {
	*k, _ = ParseKind(string(b))
	return nil
}

// Op is a math_operation operator.
type Op string

const (
	OpAdd      Op = "add"
	OpMultiply Op = "multiply"
)

// Structure is the sub-kind of a structural pattern.
type Structure string

const (
	StructureUniform Structure = "uniform"
	StructureBorder  Structure = "border"
)

// ColorPair is one entry of a color_mapping.
type ColorPair struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Shape is a target grid shape for shape_change.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (s Shape) String() string { return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols) }

// Pattern is an immutable classification record. Only the parameters that
// belong to Kind are meaningful.
type Pattern struct {
	Kind       Kind        `json:"type"`
	Confidence float64     `json:"confidence"`
	Value      int         `json:"value,omitempty"`
	Axis       string      `json:"axis,omitempty"`
	Map        []ColorPair `json:"map,omitempty"`
	Op         Op          `json:"op,omitempty"`
	Degrees    int         `json:"degrees,omitempty"`
	Structure  Structure   `json:"pattern,omitempty"`
	Target     Shape       `json:"to,omitempty"`
}

// String renders a compact description for logs and CLI output.
func (p Pattern) String() string {
	switch p.Kind {
	case KindCompleteTransform, KindBorder, KindCenterDot:
		return fmt.Sprintf("%s(value=%d, confidence=%.2f)", p.Kind, p.Value, p.Confidence)
	default:
		return fmt.Sprintf("%s(confidence=%.2f)", p.Kind, p.Confidence)
	}
}

// ColorMap builds an ordered color mapping from a map, sorted by source color
// so rendering is deterministic.
func ColorMap(m map[int]int) []ColorPair {
	pairs := make([]ColorPair, 0, len(m))
	for from, to := range m {
		pairs = append(pairs, ColorPair{From: from, To: to})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].From < pairs[j].From })
	return pairs
}

// Unknown is the fallback emitted when no structure is recognized.
func Unknown() Pattern {
	return Pattern{Kind: KindUnknown, Confidence: ConfidenceUnknown}
}
