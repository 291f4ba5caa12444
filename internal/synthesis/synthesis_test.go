package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudamu/internal/grid"
)

func eye(n int) grid.Grid {
	return grid.Build(n, n, func(r, c int) int {
		if r == c {
			return 1
		}
		return 0
	})
}

func TestInduce(t *testing.T) {
	same := grid.MustNew([][]int{{0, 2}, {2, 0}})
	examples := []Example{
		{Input: same, Output: same},
		{Input: grid.Zeros(3, 3), Output: eye(3)},
		{Input: grid.Zeros(2, 2), Output: grid.Filled(2, 2, 4)},
	}
	mem := NewMemory()
	rules := Induce(examples, mem)

	assert.Equal(t, []Rule{identityRule, diagonalRule, unknownRule}, rules)
	assert.Len(t, mem.LongTerm, 3)
}

func TestSynthesize(t *testing.T) {
	rules := []Rule{identityRule, diagonalRule}

	assert.Nil(t, Synthesize(rules, 0))
	assert.Nil(t, Synthesize(nil, 2))
	assert.Len(t, Synthesize(rules, 1), 2)

	progs := Synthesize(rules, 2)
	require.Len(t, progs, 4)
	assert.Equal(t, Program{identityRule, identityRule}, progs[0])
	assert.Equal(t, Program{identityRule, diagonalRule}, progs[1])
	assert.Equal(t, Program{diagonalRule, identityRule}, progs[2])
	assert.Equal(t, Program{diagonalRule, diagonalRule}, progs[3])

	assert.Len(t, Synthesize(rules, 3), 8)
}

func TestExecute(t *testing.T) {
	in := grid.Filled(2, 3, 5)

	assert.True(t, Execute(Program{identityRule}, in).Equal(in))
	assert.Equal(t, [][]int{{1, 0, 0}, {0, 1, 0}}, Execute(Program{diagonalRule}, in).Cells())
	assert.True(t, Execute(Program{unknownRule}, in).Equal(in))
	assert.True(t, Execute(nil, in).Equal(in))
}

func TestMetaReasonPrefersPerfectProgram(t *testing.T) {
	examples := []Example{
		{Input: grid.Zeros(3, 3), Output: eye(3)},
		{Input: grid.Filled(2, 2, 7), Output: eye(2)},
	}
	progs := []Program{{unknownRule}, {diagonalRule}, {identityRule, diagonalRule}}
	mem := NewMemory()

	best, ok := MetaReason(progs, examples, mem)
	require.True(t, ok)
	assert.Equal(t, Program{diagonalRule}, best.Program, "first perfect program wins")
	assert.Equal(t, 1.0, best.Score)

	require.Len(t, mem.Feedback, 1)
	assert.Equal(t, Program{unknownRule}, mem.Feedback[0].Program)
	assert.True(t, mem.Knows(unknownRule))
	assert.False(t, mem.Knows(diagonalRule))
}

func TestMetaReasonEmpty(t *testing.T) {
	_, ok := MetaReason(nil, nil, nil)
	assert.False(t, ok)
}

func TestSolverMemoryIsCallerOwned(t *testing.T) {
	same := grid.MustNew([][]int{{1, 2}, {3, 4}})
	examples := []Example{{Input: same, Output: same}}

	s := NewSolver(2)
	a, b := NewMemory(), NewMemory()

	best, err := s.Solve(examples, a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, best.Score)
	assert.Equal(t, Program{identityRule, identityRule}, best.Program)

	assert.NotEmpty(t, a.LongTerm)
	assert.Empty(t, b.LongTerm, "a second memory must not observe the first task")

	_, err = s.Solve(nil, nil)
	assert.Error(t, err)

	a.Reset()
	assert.Empty(t, a.LongTerm)
	assert.Empty(t, a.Feedback)
}

func TestProgramString(t *testing.T) {
	assert.Equal(t, "[identity/copy -> diagonal/fill_diag]", Program{identityRule, diagonalRule}.String())
	assert.Equal(t, 1, NewSolver(0).Depth)
}
