// Package store persists solver run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"nudamu/internal/logging"
	"nudamu/internal/task"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Run summarizes one solve invocation.
type Run struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt *time.Time
	TaskCount  int
	Solved     int
	MeanScore  float64 // mean fit score of the run's predictions
}

// Result is one stored prediction.
type Result struct {
	RunID     string
	TaskID    string
	TestIndex int
	Formula   string
	Score     float64
	FitScore  float64
	Exact     *bool
	Duration  time.Duration
	Err       string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("opened history database %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		task_count INTEGER NOT NULL DEFAULT 0,
		solved INTEGER NOT NULL DEFAULT 0,
		mean_score REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		test_index INTEGER NOT NULL,
		formula TEXT NOT NULL,
		score REAL NOT NULL,
		fit_score REAL NOT NULL,
		exact INTEGER,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, task_id, test_index),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_results_task ON results(task_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN OPERATIONS
// =============================================================================

// BeginRun inserts a new run and returns it.
func (s *Store) BeginRun(ctx context.Context, source string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := Run{ID: uuid.NewString(), Source: source, StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Source, run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin run: %w", err)
	}
	return run, nil
}

// RecordResult stores one prediction under runID. Re-recording the same
// task and test index replaces the earlier row.
func (s *Store) RecordResult(ctx context.Context, runID string, p task.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exact sql.NullBool
	if p.Exact != nil {
		exact = sql.NullBool{Bool: *p.Exact, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (run_id, task_id, test_index, formula, score,
			fit_score, exact, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, p.TaskID, p.TestIndex, p.Formula, p.Score, p.FitScore, exact,
		p.Duration.Milliseconds(), p.Err)
	if err != nil {
		return fmt.Errorf("failed to record result %s/%d: %w", p.TaskID, p.TestIndex, err)
	}
	return nil
}

// FinishRun stamps the run as finished and stores its aggregates: distinct
// task count, exact solves, and mean fit score.
func (s *Store) FinishRun(ctx context.Context, runID string) (Run, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			task_count = (SELECT COUNT(DISTINCT task_id) FROM results WHERE run_id = ?),
			solved = (SELECT COUNT(*) FROM results WHERE run_id = ? AND exact = 1),
			mean_score = COALESCE((SELECT AVG(fit_score) FROM results WHERE run_id = ?), 0)
		WHERE id = ?
	`, time.Now().UTC(), runID, runID, runID, runID)
	s.mu.Unlock()
	if err != nil {
		return Run{}, fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Run{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return s.GetRun(ctx, runID)
}

const runColumns = `id, source, started_at, finished_at, task_count, solved, mean_score`

func scanRun(scan func(...any) error) (Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	if err := scan(&r.ID, &r.Source, &r.StartedAt, &finished, &r.TaskCount, &r.Solved, &r.MeanScore); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRun returns a single run.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// RESULT OPERATIONS
// =============================================================================

// Results returns the stored predictions of a run ordered by task id and
// test index.
func (s *Store) Results(ctx context.Context, runID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, task_id, test_index, formula, score, fit_score, exact, duration_ms, error
		FROM results
		WHERE run_id = ?
		ORDER BY task_id, test_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r       Result
			exact   sql.NullBool
			ms      int64
			errText sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.TaskID, &r.TestIndex, &r.Formula, &r.Score,
			&r.FitScore, &exact, &ms, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if exact.Valid {
			b := exact.Bool
			r.Exact = &b
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.Err = errText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// FormulaCounts returns how often each formula was chosen across all runs.
func (s *Store) FormulaCounts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT formula, COUNT(*) FROM results GROUP BY formula`)
	if err != nil {
		return nil, fmt.Errorf("failed to count formulas: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			f string
			n int
		)
		if err := rows.Scan(&f, &n); err != nil {
			return nil, err
		}
		counts[f] = n
	}
	return counts, rows.Err()
}
