package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nudamu/internal/config"
	"nudamu/internal/logging"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	dbPath      string
	concurrency int

	// Resolved configuration
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nudamu",
	Short: "nudamu - rule-based solver for ARC grid puzzles",
	Long: `nudamu learns simple grid transformations from a task's training pairs
and applies the best-supported one to each test input.

Detection is a fixed cascade (uniform fill, identity, border, center dot);
the most confident pattern across all training pairs wins.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// loadConfig resolves config file, env and flags, then starts logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.Store.DatabasePath = dbPath
	}
	if cmd.Flags().Changed("concurrency") {
		loaded.Solver.Concurrency = concurrency
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Initialize(loaded.Logging.ToLogging()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = loaded
	logging.Get(logging.CategoryBoot).Debug("config resolved from %s (concurrency=%d, store=%t)",
		configPath, cfg.Solver.Concurrency, cfg.Store.Enabled)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "History database (or set NUDAMU_DB)")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "j", 0, "Tasks solved in parallel (or set NUDAMU_CONCURRENCY)")

	solveCmd.Flags().StringVarP(&submissionPath, "out", "o", "submission.json", "Submission output path")
	solveCmd.Flags().StringVar(&benchmarkPath, "bench", "", "Benchmark output path (optional)")
	solveCmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record this run in the history database")
	solveCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the summary line")

	detectCmd.Flags().BoolVar(&colorGrids, "color", false, "Render grids as color swatches")
	applyCmd.Flags().BoolVar(&colorGrids, "color", false, "Render grids as color swatches")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	historyCmd.AddCommand(historyShowCmd)

	watchCmd.Flags().StringVar(&watchOutDir, "out-dir", "", "Directory for submissions (default: alongside each task file)")

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
