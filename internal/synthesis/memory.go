package synthesis

// Memory accumulates rules and feedback across Solve calls. It is owned by
// the caller; pass the same Memory to carry learning between tasks, or a
// fresh one (or nil) to keep tasks independent. Not safe for concurrent use.
type Memory struct {
	LongTerm []Rule
	Feedback []Candidate
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) adopt(p Program) {
	for _, r := range p {
		if !m.Knows(r) {
			m.LongTerm = append(m.LongTerm, r)
		}
	}
}

// Knows reports whether r is already in long-term memory.
func (m *Memory) Knows(r Rule) bool {
	for _, known := range m.LongTerm {
		if known == r {
			return true
		}
	}
	return false
}

// Reset clears all accumulated state.
func (m *Memory) Reset() {
	m.LongTerm = nil
	m.Feedback = nil
}
