package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nudamu/cmd/nudamu/ui"
	"nudamu/internal/config"
	"nudamu/internal/store"
	"nudamu/internal/task"
	"nudamu/internal/watch"
)

var (
	historyLimit int
	watchOutDir  string
	forceInit    bool
)

// historyCmd lists recorded solve runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded solve runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmdContext(cmd), historyLimit)
		if err != nil {
			return err
		}
		table := ui.NewTable("Runs", ui.Text("ID"), ui.Text("Source"), ui.Text("Started"),
			ui.Num("Tasks"), ui.Num("Solved"), ui.Num("Mean fit"))
		for _, r := range runs {
			table.Row(r.ID, r.Source, r.StartedAt.Format(time.DateTime),
				fmt.Sprintf("%d", r.TaskCount), fmt.Sprintf("%d", r.Solved), fmt.Sprintf("%.3f", r.MeanScore))
		}

		counts, err := st.FormulaCounts(cmdContext(cmd))
		if err != nil {
			return err
		}
		if len(counts) > 0 {
			table.Footer("Formulas: " + formatCounts(counts))
		}
		if table.Len() == 0 {
			table.Footer("No runs recorded in " + st.Path())
		}
		fmt.Fprint(cmd.OutOrStdout(), table.Render(ui.DefaultStyles()))
		return nil
	},
}

// historyShowCmd shows the results of one run
var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the per-task results of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmdContext(cmd)
		run, err := st.GetRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return fmt.Errorf("no run with id %s", args[0])
		}
		if err != nil {
			return err
		}
		results, err := st.Results(ctx, run.ID)
		if err != nil {
			return err
		}

		table := ui.NewTable(fmt.Sprintf("Run %s (%s)", run.ID, run.Source),
			ui.Text("Task"), ui.Num("Test"), ui.Clipped("Formula", 48),
			ui.Num("Score"), ui.Num("Fit"), ui.Text("Exact"), ui.Num("Duration"))
		for _, r := range results {
			exact := "-"
			if r.Exact != nil {
				exact = fmt.Sprintf("%t", *r.Exact)
			}
			table.Row(r.TaskID, fmt.Sprintf("%d", r.TestIndex), r.Formula,
				fmt.Sprintf("%.3f", r.Score), fmt.Sprintf("%.3f", r.FitScore), exact, r.Duration.String())
		}
		table.Footer(fmt.Sprintf("%d tasks, %d solved exactly, mean fit %.3f", run.TaskCount, run.Solved, run.MeanScore))
		fmt.Fprint(cmd.OutOrStdout(), table.Render(ui.DefaultStyles()))
		return nil
	},
}

func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}

// watchCmd re-solves task files as they land in a directory
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Solve task files as they are created or modified",
	Long: `Watches a directory for *.json task files. Each settled file is solved
and its submission written to <name>.submission.json, either next to the
task file or under --out-dir. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		sess, opts, err := openSession(ctx, args[0], true)
		if err != nil {
			return err
		}
		defer sess.Close()
		s := newSolver(opts...)
		out := cmd.OutOrStdout()

		handler := func(ctx context.Context, path string) {
			if strings.HasSuffix(path, ".submission.json") {
				return
			}
			set, err := task.LoadFile(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
				return
			}
			preds, err := s.Solve(ctx, set)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "solve %s: %v\n", path, err)
			}
			dest := submissionFor(path, watchOutDir)
			if err := task.WriteSubmission(dest, preds); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "write %s: %v\n", dest, err)
				return
			}
			fmt.Fprintf(out, "%s: %s -> %s\n", filepath.Base(path), summarize(preds), dest)
		}

		w, err := watch.New(args[0], cfg.GetWatchDebounce(), handler)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", args[0])
		<-ctx.Done()
		w.Stop()

		stats := w.Stats()
		fmt.Fprintf(out, "Handled %d files (%d errors)\n", stats.Handled, stats.Errors)
		if sess.store != nil {
			if _, err := sess.store.FinishRun(context.Background(), sess.run.ID); err != nil {
				return err
			}
		}
		return nil
	},
}

// submissionFor maps dir/name.json to <outDir or dir>/name.submission.json.
func submissionFor(path, outDir string) string {
	dir := filepath.Dir(path)
	if outDir != "" {
		dir = outDir
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, name+".submission.json")
}

// configCmd groups config file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	// An existing file may be the broken one being replaced, so skip loading it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}
