package solver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nudamu/internal/grid"
	"nudamu/internal/pattern"
	"nudamu/internal/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pair(in, out [][]int) task.Pair {
	p := task.Pair{Input: grid.MustNew(in)}
	if out != nil {
		p.Output = grid.MustNew(out)
	}
	return p
}

// fillTask: every training output is a uniform grid of 4.
func fillTask(id string) *task.Task {
	return &task.Task{
		ID: id,
		Train: []task.Pair{
			pair([][]int{{1, 0}, {0, 1}}, [][]int{{4, 4}, {4, 4}}),
			pair([][]int{{2, 2, 2}, {0, 0, 0}}, [][]int{{4, 4, 4}, {4, 4, 4}}),
		},
		Test: []task.Pair{
			pair([][]int{{0, 1, 0}, {1, 0, 1}}, [][]int{{4, 4, 4}, {4, 4, 4}}),
			pair([][]int{{3}}, nil),
		},
	}
}

func identityTask(id string) *task.Task {
	return &task.Task{
		ID:    id,
		Train: []task.Pair{pair([][]int{{0, 1}, {1, 0}}, [][]int{{0, 1}, {1, 0}})},
		Test:  []task.Pair{pair([][]int{{5, 6}}, [][]int{{6, 5}})},
	}
}

type fakeRecorder struct {
	mu    sync.Mutex
	runs  map[string]int
	fail  bool
	preds []task.Prediction
}

func (r *fakeRecorder) RecordResult(_ context.Context, runID string, p task.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	if r.runs == nil {
		r.runs = make(map[string]int)
	}
	r.runs[runID]++
	r.preds = append(r.preds, p)
	return nil
}

type fakeTracer struct {
	mu     sync.Mutex
	seen   map[string]int
	shared map[string][]pattern.Kind
	fail   bool
}

func (f *fakeTracer) Record(taskID string, sets []pattern.LearnedSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("fact limit exceeded")
	}
	if f.seen == nil {
		f.seen = make(map[string]int)
		f.shared = make(map[string][]pattern.Kind)
	}
	f.seen[taskID] = len(sets)
	var shared []pattern.Kind
	if len(sets) > 0 {
		for _, k := range sets[0].Kinds() {
			all := true
			for _, set := range sets[1:] {
				all = all && set.Has(k)
			}
			if all {
				shared = append(shared, k)
			}
		}
	}
	f.shared[taskID] = shared
	return nil
}

func (f *fakeTracer) Unanimous(taskID string) ([]pattern.Kind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shared[taskID], nil
}

func TestLearn(t *testing.T) {
	s := New(DefaultConfig())
	sets := s.Learn(fillTask("t"))

	require.Len(t, sets, 2)
	for _, set := range sets {
		require.Len(t, set.Patterns, 1)
		assert.Equal(t, pattern.KindCompleteTransform, set.Patterns[0].Kind)
		assert.NotEmpty(t, set.Formula)
	}
}

func TestSolveTask(t *testing.T) {
	s := New(DefaultConfig())
	preds := s.SolveTask(context.Background(), fillTask("fill"))
	require.Len(t, preds, 2)

	first := preds[0]
	assert.Equal(t, "fill", first.TaskID)
	assert.Equal(t, 0, first.TestIndex)
	assert.Equal(t, "complete_transform", first.Formula)
	assert.Equal(t, 0.95, first.Score)
	if diff := cmp.Diff([][]int{{4, 4, 4}, {4, 4, 4}}, first.Output.Cells()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, first.Exact)
	assert.True(t, *first.Exact)
	assert.Equal(t, 1.0, first.FitScore, "prediction equals the second training output")
	assert.Contains(t, first.Trace, " | ")

	second := preds[1]
	assert.Equal(t, 1, second.TestIndex)
	assert.Nil(t, second.Exact)
	assert.Equal(t, [][]int{{4}}, second.Output.Cells())
}

func TestSolveTaskWithoutTraining(t *testing.T) {
	s := New(DefaultConfig())
	preds := s.SolveTask(context.Background(), &task.Task{
		ID:   "bare",
		Test: []task.Pair{pair([][]int{{1, 2}}, nil)},
	})
	require.Len(t, preds, 1)
	assert.Equal(t, "no_operation", preds[0].Formula)
	assert.Equal(t, 0.001, preds[0].Score)
	assert.Equal(t, NoTrainingScore, preds[0].FitScore)
}

func TestSolveTaskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	preds := New(DefaultConfig()).SolveTask(ctx, fillTask("late"))
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.Equal(t, context.Canceled.Error(), p.Err)
		assert.Equal(t, "no_operation", p.Formula)
	}
}

func TestSolveOrdersDeterministically(t *testing.T) {
	set := task.Set{
		"c": fillTask("c"),
		"a": identityTask("a"),
		"b": fillTask("b"),
	}
	rec := &fakeRecorder{}
	tr := &fakeTracer{}
	s := New(Config{Concurrency: 3, FitScore: true}, WithRecorder(rec, "run-1"), WithTracer(tr))

	preds, err := s.Solve(context.Background(), set)
	require.NoError(t, err)

	var order []string
	for _, p := range preds {
		order = append(order, p.TaskID)
	}
	assert.Equal(t, []string{"a", "b", "b", "c", "c"}, order)
	assert.Equal(t, 0, preds[1].TestIndex)
	assert.Equal(t, 1, preds[2].TestIndex)

	assert.Equal(t, "identity", preds[0].Formula)
	require.NotNil(t, preds[0].Exact)
	assert.False(t, *preds[0].Exact)

	assert.Equal(t, 5, rec.runs["run-1"])
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 2}, tr.seen)
	assert.Equal(t, []string{"identity"}, preds[0].Unanimous)
	assert.Equal(t, []string{"complete_transform"}, preds[1].Unanimous)
	assert.Equal(t, []string{"complete_transform"}, preds[2].Unanimous)
}

func TestSolveTaskTracerFailureKeepsPrediction(t *testing.T) {
	s := New(DefaultConfig(), WithTracer(&fakeTracer{fail: true}))
	preds := s.SolveTask(context.Background(), identityTask("a"))
	require.Len(t, preds, 1)
	assert.Equal(t, "identity", preds[0].Formula)
	assert.Empty(t, preds[0].Unanimous)
	assert.Empty(t, preds[0].Err)
}

func TestSolveTaskWithoutTracerHasNoUnanimous(t *testing.T) {
	preds := New(DefaultConfig()).SolveTask(context.Background(), fillTask("f"))
	for _, p := range preds {
		assert.Nil(t, p.Unanimous)
	}
}

func TestSolveMatchesSequential(t *testing.T) {
	set := task.Set{}
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5", "t6"} {
		set[id] = fillTask(id)
	}
	seq, err := New(Config{Concurrency: 1}).Solve(context.Background(), set)
	require.NoError(t, err)
	par, err := New(Config{Concurrency: 4}).Solve(context.Background(), set)
	require.NoError(t, err)

	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].TaskID, par[i].TaskID)
		assert.Equal(t, seq[i].Formula, par[i].Formula)
		assert.True(t, seq[i].Output.Equal(par[i].Output))
	}
}

func TestSolveCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	preds, err := New(DefaultConfig()).Solve(ctx, task.Set{"a": fillTask("a")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, preds)
}

func TestSolveReportsRecorderFailure(t *testing.T) {
	rec := &fakeRecorder{fail: true}
	preds, err := New(DefaultConfig(), WithRecorder(rec, "r")).Solve(context.Background(), task.Set{"a": identityTask("a")})
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, preds, 1, "predictions survive a persistence failure")
}

func TestNewClampsConcurrency(t *testing.T) {
	assert.Equal(t, 1, New(Config{Concurrency: -3}).cfg.Concurrency)
}
