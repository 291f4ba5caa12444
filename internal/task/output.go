package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"nudamu/internal/grid"
)

// Prediction is the solver's answer for one test input of one task.
type Prediction struct {
	TaskID    string        `json:"task_id"`
	TestIndex int           `json:"test_index"`
	Output    grid.Grid     `json:"output"`
	Formula   string        `json:"formula"`
	Trace     string        `json:"trace"`
	Score     float64       `json:"score"`
	FitScore  float64       `json:"fit_score"`
	Exact     *bool         `json:"exact,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Err       string        `json:"error,omitempty"`
	// Unanimous lists the pattern kinds every training pair showed, when an
	// evidence trace is attached.
	Unanimous []string      `json:"unanimous,omitempty"`
}

// Attempt is one submission attempt.
type Attempt struct {
	Attempt1 grid.Grid `json:"attempt_1"`
}

// Submission builds {task_id: [{"attempt_1": grid}, ...]}, one attempt per
// test index in order. Predictions without an output grid are omitted; a
// failed prediction still carries its input copy and is written.
func Submission(preds []Prediction) map[string][]Attempt {
	sorted := append([]Prediction(nil), preds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TaskID != sorted[j].TaskID {
			return sorted[i].TaskID < sorted[j].TaskID
		}
		return sorted[i].TestIndex < sorted[j].TestIndex
	})
	sub := make(map[string][]Attempt)
	for _, p := range sorted {
		if p.Output.IsZero() {
			continue
		}
		sub[p.TaskID] = append(sub[p.TaskID], Attempt{Attempt1: p.Output})
	}
	return sub
}

// WriteSubmission writes the submission file for preds.
func WriteSubmission(path string, preds []Prediction) error {
	return writeJSON(path, Submission(preds), false)
}

// WriteBenchmark writes every prediction, including traces and errors, as
// indented JSON.
func WriteBenchmark(path string, preds []Prediction) error {
	return writeJSON(path, preds, true)
}

func writeJSON(path string, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
