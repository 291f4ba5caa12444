package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"nudamu/cmd/nudamu/ui"
	"nudamu/internal/logging"
	"nudamu/internal/mangle"
	"nudamu/internal/solver"
	"nudamu/internal/store"
	"nudamu/internal/task"
)

var (
	submissionPath string
	benchmarkPath  string
	noStore        bool
	quiet          bool
)

// solveCmd solves a task file or directory
var solveCmd = &cobra.Command{
	Use:   "solve [task-file-or-dir]",
	Short: "Solve every task and write a submission",
	Long: `Loads tasks (an ARC dict file, a single-task file, a task list, or a
directory of task files), solves them in parallel and writes the submission
as {task_id: [{"attempt_1": grid}, ...]}.

Example:
  nudamu solve data/evaluation --out submission.json --bench bench.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

// session bundles the optional collaborators of a solve invocation.
type session struct {
	store *store.Store
	run   store.Run
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// openSession wires the history store and evidence trace per config. The
// trace annotates each prediction with the kinds all training pairs share.
func openSession(ctx context.Context, source string, record bool) (*session, []solver.Option, error) {
	sess := &session{}
	var opts []solver.Option

	if cfg.Mangle.Enabled {
		ev, err := mangle.NewEvidence(mangle.Config{DerivedFactLimit: cfg.Mangle.DerivedFactLimit})
		if err != nil {
			return nil, nil, fmt.Errorf("evidence trace: %w", err)
		}
		opts = append(opts, solver.WithTracer(ev))
	}

	if record && cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		run, err := st.BeginRun(ctx, source)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		sess.store, sess.run = st, run
		opts = append(opts, solver.WithRecorder(st, run.ID))
	}
	return sess, opts, nil
}

func newSolver(opts ...solver.Option) *solver.Solver {
	return solver.New(solver.Config{
		Concurrency: cfg.Solver.Concurrency,
		TaskTimeout: cfg.GetTaskTimeout(),
		FitScore:    cfg.Solver.FitScore,
	}, opts...)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	set, err := task.Load(args[0])
	if err != nil {
		return err
	}
	logging.Boot("loaded %d tasks from %s", len(set), args[0])

	sess, opts, err := openSession(ctx, args[0], !noStore)
	if err != nil {
		return err
	}
	defer sess.Close()

	preds, solveErr := newSolver(opts...).Solve(ctx, set)

	if err := task.WriteSubmission(submissionPath, preds); err != nil {
		return err
	}
	if benchmarkPath != "" {
		if err := task.WriteBenchmark(benchmarkPath, preds); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	table := ui.NewTable("", ui.Text("Task"))
	if !quiet {
		table = predictionTable(preds)
	}
	table.Footer(summarize(preds))
	table.Footer("Submission written to " + submissionPath)
	fmt.Fprint(out, table.Render(ui.DefaultStyles()))

	if sess.store != nil {
		// Finish with a fresh context so an interrupted run is still closed out.
		run, err := sess.store.FinishRun(context.Background(), sess.run.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s recorded (%d tasks, mean fit %.3f)\n", run.ID, run.TaskCount, run.MeanScore)
	}
	return solveErr
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func predictionTable(preds []task.Prediction) *ui.Table {
	table := ui.NewTable("Predictions",
		ui.Text("Task"), ui.Num("Test"), ui.Clipped("Formula", 48),
		ui.Num("Score"), ui.Num("Fit"), ui.Text("Exact"), ui.Clipped("Unanimous", 40))
	for _, p := range preds {
		exact := "-"
		if p.Exact != nil {
			exact = fmt.Sprintf("%t", *p.Exact)
		}
		formula := p.Formula
		if p.Err != "" {
			formula += " (" + p.Err + ")"
		}
		table.Row(p.TaskID, fmt.Sprintf("%d", p.TestIndex), formula,
			fmt.Sprintf("%.3f", p.Score), fmt.Sprintf("%.3f", p.FitScore), exact,
			strings.Join(p.Unanimous, ","))
	}
	return table
}

func summarize(preds []task.Prediction) string {
	var (
		known, exact, failed int
		fit                  float64
	)
	for _, p := range preds {
		fit += p.FitScore
		if p.Err != "" {
			failed++
		}
		if p.Exact != nil {
			known++
			if *p.Exact {
				exact++
			}
		}
	}
	mean := 0.0
	if len(preds) > 0 {
		mean = fit / float64(len(preds))
	}
	s := fmt.Sprintf("%d predictions, mean fit %.3f", len(preds), mean)
	if known > 0 {
		s += fmt.Sprintf(", exact %d/%d", exact, known)
	}
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}
