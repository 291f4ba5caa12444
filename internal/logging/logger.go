// Package logging provides config-driven categorized logging for nudamu.
// Every subsystem logs through a Category so output can be filtered per stage
// (detection, reasoning, solver batch, store, ...). Loggers are backed by zap;
// until Initialize is called every category is a no-op, which keeps the core
// packages silent in tests and when embedded as a library.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config resolution
	CategoryDetect Category = "detect" // Pattern detection per example pair
	CategoryMapper Category = "mapper" // Formula rendering
	CategoryReason Category = "reason" // Pattern selection and dispatch
	CategorySynth  Category = "synth"  // Program synthesis extension
	CategorySolver Category = "solver" // Task batch orchestration
	CategoryTask   Category = "task"   // Task file and submission I/O
	CategoryStore  Category = "store"  // Run history persistence
	CategoryKernel Category = "kernel" // Mangle evidence trace
	CategoryWatch  Category = "watch"  // Filesystem watcher
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional output path; stderr when empty
	Categories map[string]bool // per-category switch; missing means enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the root zap logger from cfg. It may be called again to
// reconfigure; previously handed out category loggers are replaced.
func Initialize(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	} else {
		zc.OutputPaths = []string{"stderr"}
	}

	built, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Use(built, cfg.Categories)
	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", level, cfg.Format)
	return nil
}

// Use installs an existing zap logger as the root. Tests pass zaptest or
// observer loggers here.
func Use(l *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Root returns the underlying zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// ParseLevel maps a config string to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Sync flushes buffered entries.
func Sync() {
	_ = Root().Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	enabled := IsCategoryEnabled(category)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	base := root
	if !enabled {
		base = zap.NewNop()
	}
	l := &Logger{sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Convenience wrappers for the hot categories.

func Boot(format string, args ...interface{})        { Get(CategoryBoot).Info(format, args...) }
func DetectDebug(format string, args ...interface{}) { Get(CategoryDetect).Debug(format, args...) }
func ReasonDebug(format string, args ...interface{}) { Get(CategoryReason).Debug(format, args...) }
func Solver(format string, args ...interface{})      { Get(CategorySolver).Info(format, args...) }
func StoreDebug(format string, args ...interface{})  { Get(CategoryStore).Debug(format, args...) }
func KernelDebug(format string, args ...interface{}) { Get(CategoryKernel).Debug(format, args...) }
func Watch(format string, args ...interface{})       { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{})  { Get(CategoryWatch).Debug(format, args...) }

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
