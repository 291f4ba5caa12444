package mangle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudamu/internal/pattern"
)

func learned(ps ...pattern.Pattern) pattern.LearnedSet { return pattern.NewLearnedSet(ps) }

var (
	border    = pattern.Pattern{Kind: pattern.KindBorder, Confidence: 0.9, Value: 2}
	centerDot = pattern.Pattern{Kind: pattern.KindCenterDot, Confidence: 0.85, Value: 3}
	identity  = pattern.Pattern{Kind: pattern.KindIdentity, Confidence: 1}
)

func newEvidence(t *testing.T) *Evidence {
	t.Helper()
	ev, err := NewEvidence(DefaultConfig())
	require.NoError(t, err)
	return ev
}

func TestEvidenceSupport(t *testing.T) {
	ev := newEvidence(t)
	require.NoError(t, ev.Record("t1", []pattern.LearnedSet{
		learned(border, centerDot),
		learned(border),
		learned(border, identity),
	}))
	require.NoError(t, ev.Record("t2", []pattern.LearnedSet{learned(identity)}))

	got, err := ev.Support("t1")
	require.NoError(t, err)
	assert.Equal(t, []Support{
		{Kind: pattern.KindBorder, Examples: 3, MaxConfidence: 0.9, Unanimous: true},
		{Kind: pattern.KindIdentity, Examples: 1, MaxConfidence: 1},
		{Kind: pattern.KindCenterDot, Examples: 1, MaxConfidence: 0.85},
	}, got)

	unanimous, err := ev.Unanimous("t1")
	require.NoError(t, err)
	assert.Equal(t, []pattern.Kind{pattern.KindBorder}, unanimous)

	other, err := ev.Support("t2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, pattern.KindIdentity, other[0].Kind)
	assert.True(t, other[0].Unanimous)
}

func TestEvidenceUnknownTask(t *testing.T) {
	ev := newEvidence(t)
	got, err := ev.Support("nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvidenceForget(t *testing.T) {
	ev := newEvidence(t)
	require.NoError(t, ev.Record("a", []pattern.LearnedSet{learned(border)}))
	require.NoError(t, ev.Record("b", []pattern.LearnedSet{learned(identity)}))

	require.NoError(t, ev.Forget("a"))

	gone, err := ev.Support("a")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := ev.Support("b")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.True(t, kept[0].Unanimous)
}

func TestEvidenceRecordReplacesTask(t *testing.T) {
	fill := pattern.Pattern{Kind: pattern.KindCompleteTransform, Confidence: 0.95, Value: 4}
	ev := newEvidence(t)
	require.NoError(t, ev.Record("a", []pattern.LearnedSet{learned(identity)}))
	require.NoError(t, ev.Record("b", []pattern.LearnedSet{learned(border)}))

	// The task file was edited and re-solved.
	require.NoError(t, ev.Record("a", []pattern.LearnedSet{learned(fill)}))

	unanimous, err := ev.Unanimous("a")
	require.NoError(t, err)
	assert.Equal(t, []pattern.Kind{pattern.KindCompleteTransform}, unanimous)

	support, err := ev.Support("a")
	require.NoError(t, err)
	require.Len(t, support, 1)
	assert.Equal(t, 1, support[0].Examples)

	other, err := ev.Unanimous("b")
	require.NoError(t, err)
	assert.Equal(t, []pattern.Kind{pattern.KindBorder}, other)
}

func TestEvidenceConcurrentRecord(t *testing.T) {
	ev := newEvidence(t)
	ids := []string{"w0", "w1", "w2", "w3"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, ev.Record(id, []pattern.LearnedSet{learned(border), learned(border)}))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, err := ev.Support(id)
		require.NoError(t, err)
		require.Len(t, got, 1, id)
		assert.Equal(t, 2, got[0].Examples)
	}
	assert.Equal(t, 4, ev.Engine().GetStats().PredicateCounts["kind_support"])
}
