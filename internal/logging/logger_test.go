package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	Use(zap.New(core), cats)
	t.Cleanup(func() { Use(nil, nil) })
	return logs
}

func TestDefaultIsNoop(t *testing.T) {
	Use(nil, nil)
	// Must not panic and must not need Initialize.
	Get(CategorySolver).Info("hello %d", 1)
	Solver("task %s", "x")
}

func TestCategoryLoggerNamesEntries(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, nil)

	Get(CategoryDetect).Debug("found %d patterns", 2)
	Get(CategoryReason).Info("selected %s", "border")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "detect", entries[0].LoggerName)
	assert.Equal(t, "found 2 patterns", entries[0].Message)
	assert.Equal(t, "reason", entries[1].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestDisabledCategory(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, map[string]bool{"store": false, "solver": true})

	StoreDebug("should be dropped")
	Solver("kept")

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategoryWatch), "unlisted categories default to enabled")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"info":    zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	err := Initialize(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestTimerThreshold(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel, nil)

	timer := StartTimer(CategorySolver, "slow op")
	timer.start = time.Now().Add(-time.Second)
	elapsed := timer.StopWithThreshold(10 * time.Millisecond)

	assert.GreaterOrEqual(t, elapsed, time.Second)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}
