// Package task loads ARC-style task files and writes submission and
// benchmark files.
package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nudamu/internal/grid"
	"nudamu/internal/logging"
)

var (
	// ErrNotJSON is returned for task paths without a .json extension.
	ErrNotJSON = errors.New("task file must be .json")
	// ErrNotFound is returned when a task path does not exist.
	ErrNotFound = errors.New("task file not found")
)

// Pair is one example. Output is the zero Grid for test cases without a
// ground truth.
type Pair struct {
	Input  grid.Grid `json:"input"`
	Output grid.Grid `json:"output"`
}

// HasOutput reports whether the pair carries an expected output.
func (p Pair) HasOutput() bool { return !p.Output.IsZero() }

// Task is a set of training pairs plus one or more test inputs.
type Task struct {
	ID    string `json:"-"`
	Train []Pair `json:"train"`
	Test  []Pair `json:"test"`
	// Skipped counts training pairs dropped for failing grid validation.
	Skipped int `json:"-"`
}

// Set maps task id to task.
type Set map[string]*Task

// IDs returns the task ids in sorted order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type rawPair struct {
	Input  [][]int `json:"input"`
	Output [][]int `json:"output"`
}

type rawTask struct {
	Train []rawPair `json:"train"`
	Test  []rawPair `json:"test"`
}

func (r rawTask) isTask() bool { return r.Train != nil || r.Test != nil }

// LoadFile reads a task file in any of three shapes: an ARC dict
// {id: task}, a single task object (id = file stem), or a list of tasks
// (ids task_000, task_001, ...).
func LoadFile(path string) (Set, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotJSON)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read task file: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	set, err := Parse(data, stem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Get(logging.CategoryTask).Debug("loaded %d tasks from %s", len(set), path)
	return set, nil
}

// Parse decodes task JSON. defaultID names a single-task document.
func Parse(data []byte, defaultID string) (Set, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty task document")
	}

	raws := make(map[string]rawTask)
	switch data[0] {
	case '[':
		var list []rawTask
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode task list: %w", err)
		}
		for i, r := range list {
			raws[fmt.Sprintf("task_%03d", i)] = r
		}
	case '{':
		var single rawTask
		if err := json.Unmarshal(data, &single); err == nil && single.isTask() {
			raws[defaultID] = single
			break
		}
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode task dict: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected task document starting with %q", data[0])
	}

	set := make(Set, len(raws))
	for id, r := range raws {
		t, err := build(id, r)
		if err != nil {
			return nil, err
		}
		set[id] = t
	}
	return set, nil
}

func build(id string, r rawTask) (*Task, error) {
	log := logging.Get(logging.CategoryTask)
	t := &Task{ID: id}
	for i, rp := range r.Train {
		in, errIn := grid.New(rp.Input)
		out, errOut := grid.New(rp.Output)
		if err := errors.Join(errIn, errOut); err != nil {
			log.Warn("task %s: skipping train pair %d: %v", id, i, err)
			t.Skipped++
			continue
		}
		t.Train = append(t.Train, Pair{Input: in, Output: out})
	}
	if len(r.Test) == 0 {
		return nil, fmt.Errorf("task %s: no test inputs", id)
	}
	for i, rp := range r.Test {
		in, err := grid.New(rp.Input)
		if err != nil {
			return nil, fmt.Errorf("task %s: test %d input: %w", id, i, err)
		}
		p := Pair{Input: in}
		if rp.Output != nil {
			out, err := grid.New(rp.Output)
			if err != nil {
				return nil, fmt.Errorf("task %s: test %d output: %w", id, i, err)
			}
			p.Output = out
		}
		t.Test = append(t.Test, p)
	}
	return t, nil
}

// LoadDir loads every *.json file directly under dir. Single-task files
// take the file stem as id; ids must be unique across files.
func LoadDir(dir string) (Set, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list task dir: %w", err)
	}
	sort.Strings(matches)
	set := make(Set)
	for _, path := range matches {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for id, t := range loaded {
			if _, dup := set[id]; dup {
				return nil, fmt.Errorf("duplicate task id %q in %s", id, path)
			}
			set[id] = t
		}
	}
	return set, nil
}

// Load dispatches to LoadDir or LoadFile depending on what path is.
func Load(path string) (Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}
