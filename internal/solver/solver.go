// Package solver drives the pipeline over whole task sets: detect patterns
// on every training pair, reason over the learned sets, score the answer,
// and fan tasks out over a bounded worker pool.
package solver

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nudamu/internal/formula"
	"nudamu/internal/logging"
	"nudamu/internal/pattern"
	"nudamu/internal/reasoning"
	"nudamu/internal/task"
)

// Config controls batch execution.
type Config struct {
	Concurrency int
	// TaskTimeout bounds each task; zero means no per-task budget.
	TaskTimeout time.Duration
	// FitScore enables scoring predictions against training outputs.
	FitScore bool
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 4, FitScore: true}
}

// Recorder persists predictions as they complete.
type Recorder interface {
	RecordResult(ctx context.Context, runID string, p task.Prediction) error
}

// Tracer receives the learned sets of every task and reports the kinds that
// every training pair of the task agrees on.
type Tracer interface {
	Record(taskID string, sets []pattern.LearnedSet) error
	Unanimous(taskID string) ([]pattern.Kind, error)
}

// Option configures a Solver.
type Option func(*Solver)

// WithRecorder persists every prediction under runID.
func WithRecorder(r Recorder, runID string) Option {
	return func(s *Solver) {
		s.recorder = r
		s.runID = runID
	}
}

// WithTracer forwards learned sets to t.
func WithTracer(t Tracer) Option {
	return func(s *Solver) { s.tracer = t }
}

// Solver is safe for concurrent use; the pipeline stages it holds are
// stateless.
type Solver struct {
	cfg      Config
	detector *pattern.Detector
	mapper   *formula.Mapper
	engine   *reasoning.Engine

	recorder Recorder
	runID    string
	tracer   Tracer
}

// New builds a Solver.
func New(cfg Config, opts ...Option) *Solver {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	s := &Solver{
		cfg:      cfg,
		detector: pattern.NewDetector(),
		mapper:   formula.NewMapper(),
		engine:   reasoning.NewEngine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Learn detects patterns on every training pair of t and wraps each result
// in a LearnedSet carrying its rendered formula. Set i is pair i.
func (s *Solver) Learn(t *task.Task) []pattern.LearnedSet {
	sets := make([]pattern.LearnedSet, 0, len(t.Train))
	for i, pair := range t.Train {
		patterns := s.detector.Detect(pair.Input, pair.Output)
		set := pattern.NewLearnedSet(patterns)
		set.Formula = s.mapper.Map(patterns)
		logging.DetectDebug("task %s example %d: %s", t.ID, i, set.Formula)
		sets = append(sets, set)
	}
	return sets
}

// Solve runs every task in set and returns predictions ordered by task id
// then test index. Cancelling ctx stops scheduling new tasks; the
// predictions already produced are returned alongside ctx's error.
func (s *Solver) Solve(ctx context.Context, set task.Set) ([]task.Prediction, error) {
	ids := set.IDs()
	results := make([][]task.Prediction, len(ids))

	timer := logging.StartTimer(logging.CategorySolver, "solve.batch")
	defer timer.Stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.Concurrency)

	var mu sync.Mutex
	var recordErrs []string

schedule:
	for i, id := range ids {
		select {
		case <-egCtx.Done():
			break schedule
		default:
		}
		i, t := i, set[id]
		eg.Go(func() error {
			preds := s.SolveTask(egCtx, t)
			results[i] = preds
			if s.recorder == nil {
				return nil
			}
			for _, p := range preds {
				if err := s.recorder.RecordResult(egCtx, s.runID, p); err != nil {
					mu.Lock()
					recordErrs = append(recordErrs, err.Error())
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	var out []task.Prediction
	for _, preds := range results {
		out = append(out, preds...)
	}
	if len(recordErrs) > 0 {
		logging.Get(logging.CategorySolver).Warn("%d predictions not persisted: %s", len(recordErrs), recordErrs[0])
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if len(recordErrs) > 0 {
		return out, fmt.Errorf("persist predictions: %s", strings.Join(recordErrs, "; "))
	}
	return out, nil
}

// SolveTask produces one prediction per test input of t. It never fails:
// per-input problems are reported in Prediction.Err.
func (s *Solver) SolveTask(ctx context.Context, t *task.Task) (preds []task.Prediction) {
	if s.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategorySolver).Error("task %s panicked: %v\n%s", t.ID, r, debug.Stack())
			preds = failAll(t, fmt.Sprintf("panic: %v", r))
		}
	}()

	sets := s.Learn(t)
	unanimous := s.unanimous(t.ID, sets)
	trace := traceOf(sets)

	preds = make([]task.Prediction, 0, len(t.Test))
	for i, test := range t.Test {
		start := time.Now()
		if err := ctx.Err(); err != nil {
			preds = append(preds, failed(t.ID, i, test, err.Error()))
			continue
		}

		res := s.engine.Reason(sets, test.Input)
		p := task.Prediction{
			TaskID:    t.ID,
			TestIndex: i,
			Output:    res.Output,
			Formula:   res.Formula,
			Trace:     trace,
			Score:     res.Score,
			Unanimous: unanimous,
		}
		if s.cfg.FitScore {
			p.FitScore = FitScore(res.Output, t.Train, sets)
		}
		if test.HasOutput() {
			exact := res.Output.Equal(test.Output)
			p.Exact = &exact
		}
		p.Duration = time.Since(start)
		logging.Solver("task %s[%d]: formula=%s score=%.3f fit=%.3f duration=%s",
			t.ID, i, p.Formula, p.Score, p.FitScore, p.Duration)
		preds = append(preds, p)
	}
	return preds
}

// unanimous records sets with the tracer and returns the kinds shared by all
// training pairs. Tracer failures only cost the annotation.
func (s *Solver) unanimous(taskID string, sets []pattern.LearnedSet) []string {
	if s.tracer == nil {
		return nil
	}
	log := logging.Get(logging.CategoryKernel)
	if err := s.tracer.Record(taskID, sets); err != nil {
		log.Warn("evidence for %s not recorded: %v", taskID, err)
		return nil
	}
	kinds, err := s.tracer.Unanimous(taskID)
	if err != nil {
		log.Warn("evidence for %s not derived: %v", taskID, err)
		return nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

func traceOf(sets []pattern.LearnedSet) string {
	parts := make([]string, len(sets))
	for i, set := range sets {
		parts[i] = set.Formula
	}
	return strings.Join(parts, " | ")
}

func failed(taskID string, i int, test task.Pair, msg string) task.Prediction {
	return task.Prediction{
		TaskID:    taskID,
		TestIndex: i,
		Output:    test.Input.Clone(),
		Formula:   reasoning.DefaultFormula,
		Score:     reasoning.DefaultScore,
		Err:       msg,
	}
}

func failAll(t *task.Task, msg string) []task.Prediction {
	preds := make([]task.Prediction, len(t.Test))
	for i, test := range t.Test {
		preds[i] = failed(t.ID, i, test, msg)
	}
	return preds
}
