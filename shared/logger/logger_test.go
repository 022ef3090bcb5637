package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level string, output *bytes.Buffer) *Logger {
	t.Helper()

	logger, err := New(&Config{
		Level:      level,
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		writer:     output,
	})
	require.NoError(t, err)
	return logger
}

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		checkFunc func(t *testing.T, logger *Logger, output *bytes.Buffer)
	}{
		{
			name:  "debug level keeps debug entries",
			level: "debug",
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Debug("fetching job info", slog.String("job_id", "42"))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "DEBUG", entries[0]["level"])
				assert.Equal(t, "fetching job info", entries[0]["msg"])
				assert.Equal(t, "42", entries[0]["job_id"])
				assert.Contains(t, entries[0], "time")
			},
		},
		{
			name:  "info level drops debug entries",
			level: "info",
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Debug("debug message")
				logger.Info("job status updated", slog.String("status", "PROCESSING"))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "INFO", entries[0]["level"])
				assert.Equal(t, "PROCESSING", entries[0]["status"])
			},
		},
		{
			name:  "error level drops warnings",
			level: "error",
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Warn("warn message")
				logger.Error("thumbnail generation failed", slog.String("source_path", "/img/a.png"))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "ERROR", entries[0]["level"])
			},
		},
		{
			name:  "critical level keeps only critical entries",
			level: "critical",
			checkFunc: func(t *testing.T, logger *Logger, output *bytes.Buffer) {
				logger.Error("recoverable")
				logger.Critical("same job status", slog.String("job_id", "7"))

				entries := decodeLines(t, output)
				require.Len(t, entries, 1)
				assert.Equal(t, "CRITICAL", entries[0]["level"])
				assert.Equal(t, "same job status", entries[0]["msg"])
				assert.Equal(t, "7", entries[0]["job_id"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger := newJSONLogger(t, tt.level, output)
			tt.checkFunc(t, logger, output)
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	output := &bytes.Buffer{}

	logger, err := New(&Config{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		writer:     output,
	})
	require.NoError(t, err)

	logger.Info("console test")
	logger.Critical("queue connection failed")

	// tint abbreviates INFO as INF
	logOutput := output.String()
	assert.Contains(t, logOutput, "INF")
	assert.Contains(t, logOutput, "console test")
	assert.Contains(t, logOutput, "CRITICAL")
	assert.Contains(t, logOutput, "queue connection failed")
}

func TestNew_SourceLocation(t *testing.T) {
	output := &bytes.Buffer{}

	logger, err := New(&Config{
		Level:        "info",
		Format:       "json",
		EnableSource: true,
		writer:       output,
	})
	require.NoError(t, err)

	logger.Info("message with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, source, "function")
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	require.NoError(t, err)

	logger.Info("written to file", slog.Int("pid", 1))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNew_FileOutputUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "worker.log")

	logger, err := New(&Config{Output: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
	assert.Nil(t, logger)
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warn", expected: slog.LevelWarn},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "critical", expected: LevelCritical},
		// parseLevel is case-sensitive
		{level: "DEBUG", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_WithGroup(t *testing.T) {
	output := &bytes.Buffer{}
	logger := newJSONLogger(t, "info", output)

	logger.WithGroup("job").Info("test message", slog.String("id", "12"))

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	group, ok := entries[0]["job"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "12", group["id"])
}

func TestLogger_WithAttrs(t *testing.T) {
	output := &bytes.Buffer{}
	logger := newJSONLogger(t, "info", output)

	logger.WithAttrs(
		slog.String("worker_id", "worker-1"),
		slog.String("queue", "thumbnail_jobs"),
	).Info("consumer started")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "worker-1", entries[0]["worker_id"])
	assert.Equal(t, "thumbnail_jobs", entries[0]["queue"])
}

func TestLogger_With(t *testing.T) {
	output := &bytes.Buffer{}
	logger := newJSONLogger(t, "info", output)

	logger.With(slog.String("service", "worker"), slog.Int("instance", 2)).Info("operation complete")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "worker", entries[0]["service"])
	// JSON numbers are float64
	assert.Equal(t, float64(2), entries[0]["instance"])
}
