package mangle

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/mangle/ast"

	"nudamu/internal/logging"
	"nudamu/internal/pattern"
)

// evidenceSchema records one pattern_observed fact per detected pattern and
// derives which kinds a task's examples support. A kind is unanimous when
// every example that produced any pattern also produced that kind.
const evidenceSchema = `
Decl pattern_observed(Task, Example, Kind, Confidence).
Decl observed_in(Task, Example, Kind).
Decl example_seen(Task, Example).
Decl kind_support(Task, Kind).
Decl kind_missing(Task, Kind).
Decl kind_unanimous(Task, Kind).

observed_in(Task, Example, Kind) :- pattern_observed(Task, Example, Kind, _).
example_seen(Task, Example) :- pattern_observed(Task, Example, _, _).
kind_support(Task, Kind) :- pattern_observed(Task, _, Kind, _).
kind_missing(Task, Kind) :-
  kind_support(Task, Kind),
  example_seen(Task, Example),
  !observed_in(Task, Example, Kind).
kind_unanimous(Task, Kind) :- kind_support(Task, Kind), !kind_missing(Task, Kind).
`

// Support summarizes one kind's evidence within a task.
type Support struct {
	Kind          pattern.Kind
	Examples      int
	MaxConfidence float64
	Unanimous     bool
}

// Evidence is the per-run evidence trace. Each task holds the observations
// of its latest Record only.
type Evidence struct {
	mu     sync.Mutex
	engine *Engine
	tasks  map[string]bool
}

// NewEvidence compiles the evidence program into a fresh engine.
func NewEvidence(cfg Config) (*Evidence, error) {
	cfg.AutoEval = true
	e := NewEngine(cfg)
	if err := e.LoadSchemaString(evidenceSchema); err != nil {
		return nil, err
	}
	return &Evidence{engine: e, tasks: make(map[string]bool)}, nil
}

// Engine exposes the underlying engine for ad-hoc inspection.
func (ev *Evidence) Engine() *Engine { return ev.engine }

// Record stores the patterns learned from each training example of taskID,
// replacing anything recorded for taskID before. Set i is example i.
func (ev *Evidence) Record(taskID string, sets []pattern.LearnedSet) error {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.tasks[taskID] {
		if err := ev.forgetLocked(taskID); err != nil {
			return fmt.Errorf("replace evidence for %s: %w", taskID, err)
		}
	}

	var facts []Fact
	for i, set := range sets {
		for _, p := range set.Patterns {
			kind, err := ast.Name("/" + p.Kind.String())
			if err != nil {
				return fmt.Errorf("kind %s: %w", p.Kind, err)
			}
			facts = append(facts, Fact{
				Predicate: "pattern_observed",
				Args:      []interface{}{ast.String(taskID), ast.Number(int64(i)), kind, ast.Float64(p.Confidence)},
			})
		}
	}
	if err := ev.engine.AddFacts(facts); err != nil {
		return fmt.Errorf("record evidence for %s: %w", taskID, err)
	}
	ev.tasks[taskID] = true
	logging.KernelDebug("recorded %d observations for %s", len(facts), taskID)
	return nil
}

// Support lists the distinct kinds observed for taskID, most widely
// supported first, then by kind order.
func (ev *Evidence) Support(taskID string) ([]Support, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	kinds, err := ev.kindsFor("kind_support", taskID)
	if err != nil {
		return nil, err
	}
	unanimous, err := ev.kindsFor("kind_unanimous", taskID)
	if err != nil {
		return nil, err
	}
	observed, err := ev.engine.GetFacts("pattern_observed")
	if err != nil {
		return nil, err
	}

	byKind := make(map[pattern.Kind]*Support, len(kinds))
	for _, k := range kinds {
		byKind[k] = &Support{Kind: k}
	}
	for _, k := range unanimous {
		if s, ok := byKind[k]; ok {
			s.Unanimous = true
		}
	}
	seen := make(map[string]bool)
	for _, f := range observed {
		if f.Args[0] != taskID {
			continue
		}
		k := parseKindName(f.Args[2])
		s, ok := byKind[k]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v/%v", f.Args[1], k)
		if !seen[key] {
			seen[key] = true
			s.Examples++
		}
		if c, ok := f.Args[3].(float64); ok && c > s.MaxConfidence {
			s.MaxConfidence = c
		}
	}

	out := make([]Support, 0, len(byKind))
	for _, s := range byKind {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Examples != out[j].Examples {
			return out[i].Examples > out[j].Examples
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// Unanimous returns the kinds present in every example of taskID.
func (ev *Evidence) Unanimous(taskID string) ([]pattern.Kind, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	kinds, err := ev.kindsFor("kind_unanimous", taskID)
	if err != nil {
		return nil, err
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds, nil
}

// Forget drops every observation of taskID and re-derives the rest.
func (ev *Evidence) Forget(taskID string) error {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.forgetLocked(taskID)
}

func (ev *Evidence) forgetLocked(taskID string) error {
	observed, err := ev.engine.GetFacts("pattern_observed")
	if err != nil {
		return err
	}
	var keep []Fact
	for _, f := range observed {
		if f.Args[0] == taskID {
			continue
		}
		kind, err := ast.Name(f.Args[2].(string))
		if err != nil {
			return err
		}
		conf, _ := f.Args[3].(float64)
		keep = append(keep, Fact{
			Predicate: "pattern_observed",
			Args:      []interface{}{ast.String(f.Args[0].(string)), ast.Number(f.Args[1].(int64)), kind, ast.Float64(conf)},
		})
	}
	ev.engine.Clear()
	delete(ev.tasks, taskID)
	if len(keep) == 0 {
		return nil
	}
	return ev.engine.AddFacts(keep)
}

func (ev *Evidence) kindsFor(predicate, taskID string) ([]pattern.Kind, error) {
	facts, err := ev.engine.GetFacts(predicate)
	if err != nil {
		return nil, err
	}
	var kinds []pattern.Kind
	for _, f := range facts {
		if f.Args[0] == taskID {
			kinds = append(kinds, parseKindName(f.Args[1]))
		}
	}
	return kinds, nil
}

func parseKindName(v interface{}) pattern.Kind {
	s, _ := v.(string)
	k, _ := pattern.ParseKind(strings.TrimPrefix(s, "/"))
	return k
}
