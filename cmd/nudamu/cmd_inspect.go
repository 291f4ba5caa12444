package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"nudamu/cmd/nudamu/ui"
	"nudamu/internal/formula"
	"nudamu/internal/grid"
	"nudamu/internal/mangle"
	"nudamu/internal/pattern"
	"nudamu/internal/reasoning"
	"nudamu/internal/synthesis"
	"nudamu/internal/task"
	"nudamu/internal/transform"
)

var colorGrids bool

// detectCmd shows what was learned from each training pair
var detectCmd = &cobra.Command{
	Use:   "detect [task-file] [task-id]",
	Short: "Show the patterns detected in a task's training pairs",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := pickTask(args)
		if err != nil {
			return err
		}
		styles := ui.DefaultStyles()
		out := cmd.OutOrStdout()
		sets := newSolver().Learn(t)

		fmt.Fprintln(out, styles.Title.Render("Task "+t.ID))
		if t.Skipped > 0 {
			fmt.Fprintln(out, styles.Warning.Render(fmt.Sprintf("%d malformed training pairs skipped", t.Skipped)))
		}
		for i, set := range sets {
			pair := t.Train[i]
			fmt.Fprintf(out, "\n%s  formula: %s  confidence: %.3f\n",
				styles.Bold.Render(fmt.Sprintf("train[%d]", i)), set.Formula, set.Confidence)
			fmt.Fprintln(out, ui.SideBySide(ui.RenderGrid(pair.Input, colorGrids), "->", ui.RenderGrid(pair.Output, colorGrids)))
			for _, p := range set.Patterns {
				fmt.Fprintln(out, "  "+p.String())
			}
		}

		if best, ok := reasoning.Select(sets); ok {
			fmt.Fprintln(out, styles.Success.Render("\nselected: "+best.String()))
		} else {
			fmt.Fprintln(out, styles.Muted.Render("\nno training evidence; "+reasoning.DefaultFormula))
		}
		return nil
	},
}

// applyCmd runs one named rule over a grid
var applyCmd = &cobra.Command{
	Use:   "apply [rule] [grid-json]",
	Short: "Apply a declarative rule to a grid",
	Long: `Applies one of the named rules to a JSON grid. Unknown rule names leave
the grid unchanged.

Rules: ` + ruleList() + `

Example:
  nudamu apply border '[[1,2,3],[4,5,6],[7,8,9]]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var g grid.Grid
		if err := json.Unmarshal([]byte(args[1]), &g); err != nil {
			return fmt.Errorf("invalid grid: %w", err)
		}
		if _, ok := transform.ParseRule(args[0]); !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "unknown rule %q; returning the grid unchanged\n", args[0])
		}
		result := transform.New().Apply(g, args[0])
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderGrid(result, colorGrids))
		return nil
	},
}

func ruleList() string {
	names := make([]string, 0, len(transform.Rules()))
	for _, r := range transform.Rules() {
		names = append(names, fmt.Sprintf("%q", r.String()))
	}
	return strings.Join(names, ", ")
}

// mapCmd renders a pattern list as a formula
var mapCmd = &cobra.Command{
	Use:   "map [patterns-json]",
	Short: "Render a JSON pattern list as a formula",
	Long: `Reads a JSON array of patterns (from the argument, or stdin when the
argument is "-") and prints the formula string.

Example:
  nudamu map '[{"type":"complete_transform","confidence":0.95,"value":4}]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := []byte(args[0])
		if args[0] == "-" {
			var err error
			if data, err = readAll(cmd); err != nil {
				return err
			}
		}
		var patterns []pattern.Pattern
		if err := json.Unmarshal(data, &patterns); err != nil {
			return fmt.Errorf("invalid patterns: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formula.NewMapper().Map(patterns))
		return nil
	},
}

// explainCmd prints per-kind support derived by the mangle program
var explainCmd = &cobra.Command{
	Use:   "explain [task-file] [task-id]",
	Short: "Explain which pattern kinds the training pairs support",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := pickTask(args)
		if err != nil {
			return err
		}
		ev, err := mangle.NewEvidence(mangle.Config{DerivedFactLimit: cfg.Mangle.DerivedFactLimit})
		if err != nil {
			return err
		}
		if err := ev.Record(t.ID, newSolver().Learn(t)); err != nil {
			return err
		}
		support, err := ev.Support(t.ID)
		if err != nil {
			return err
		}

		table := ui.NewTable(fmt.Sprintf("Evidence for %s (%d training pairs)", t.ID, len(t.Train)),
			ui.Text("Kind"), ui.Num("Examples"), ui.Num("Max confidence"), ui.Text("Unanimous"))
		for _, s := range support {
			table.Row(s.Kind.String(), fmt.Sprintf("%d", s.Examples),
				fmt.Sprintf("%.3f", s.MaxConfidence), fmt.Sprintf("%t", s.Unanimous))
		}
		if table.Len() == 0 {
			table.Footer("No training pairs, so no evidence.")
		}
		fmt.Fprint(cmd.OutOrStdout(), table.Render(ui.DefaultStyles()))
		return nil
	},
}

// synthCmd runs the program-synthesis prototype over a task
var synthCmd = &cobra.Command{
	Use:   "synth [task-file] [task-id]",
	Short: "Search rule programs that reproduce a task's training pairs",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := pickTask(args)
		if err != nil {
			return err
		}
		examples := make([]synthesis.Example, 0, len(t.Train))
		for _, p := range t.Train {
			examples = append(examples, synthesis.Example{Input: p.Input, Output: p.Output})
		}

		mem := synthesis.NewMemory()
		best, err := synthesis.NewSolver(cfg.Solver.SynthesisDepth).Solve(examples, mem)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "best program: %s (score %.3f)\n", best.Program, best.Score)
		fmt.Fprintf(out, "induced rules: %d, rejected programs: %d\n", len(mem.LongTerm), len(mem.Feedback))
		for i, test := range t.Test {
			fmt.Fprintf(out, "\ntest[%d]\n%s", i, ui.RenderGrid(synthesis.Execute(best.Program, test.Input), colorGrids))
		}
		return nil
	},
}

// pickTask loads args[0] and returns the task named by args[1], or the only
// (first, by id) task when no id is given.
func pickTask(args []string) (*task.Task, error) {
	set, err := task.Load(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) > 1 {
		t, ok := set[args[1]]
		if !ok {
			return nil, fmt.Errorf("task %q not found in %s", args[1], args[0])
		}
		return t, nil
	}
	ids := set.IDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("no tasks in %s", args[0])
	}
	return set[ids[0]], nil
}

func readAll(cmd *cobra.Command) ([]byte, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}
