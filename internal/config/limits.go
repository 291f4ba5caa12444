package config

import "fmt"

// MaxConcurrency bounds the solver worker count.
const MaxConcurrency = 256

// SolverConfig configures batch solving.
type SolverConfig struct {
	Concurrency    int    `yaml:"concurrency"`     // Max tasks solved in parallel
	TaskTimeout    string `yaml:"task_timeout"`    // Wall-clock budget per task, "" or "0s" = none
	FitScore       bool   `yaml:"fit_score"`       // Score the prediction against training outputs
	SynthesisDepth int    `yaml:"synthesis_depth"` // Program length for `nudamu synth`
}

// ValidateSolverLimits checks that solver limits are within acceptable ranges.
func (c *Config) ValidateSolverLimits() error {
	if c.Solver.Concurrency < 1 || c.Solver.Concurrency > MaxConcurrency {
		return fmt.Errorf("solver.concurrency must be in 1..%d, got %d", MaxConcurrency, c.Solver.Concurrency)
	}
	if c.Solver.SynthesisDepth < 1 || c.Solver.SynthesisDepth > 4 {
		return fmt.Errorf("solver.synthesis_depth must be in 1..4, got %d", c.Solver.SynthesisDepth)
	}
	if c.Mangle.Enabled && c.Mangle.DerivedFactLimit < 1000 {
		return fmt.Errorf("mangle.derived_fact_limit must be >= 1000")
	}
	return nil
}
