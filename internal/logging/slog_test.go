package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewJSONLogger(&buf, slog.LevelDebug), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)
	log.Critical(ctx, "crit", "e", 5)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)

	tests := []struct {
		level string
		msg   string
		key   string
		val   float64
	}{
		{"DEBUG", "dbg", "a", 1},
		{"INFO", "inf", "b", 2},
		{"WARN", "wrn", "c", 3},
		{"ERROR", "err", "d", 4},
		{"CRITICAL", "crit", "e", 5},
	}

	for i, tc := range tests {
		require.Equal(t, tc.level, lines[i]["level"])
		require.Equal(t, tc.msg, lines[i]["msg"])
		require.Equal(t, tc.val, lines[i][tc.key])
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("module", "reaper").Info(context.Background(), "hello", "k", "v")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	require.Equal(t, "reaper", lines[0]["module"])
	require.Equal(t, "v", lines[0]["k"])
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelError)
	ctx := context.Background()

	log.Info(ctx, "skipped")
	log.Warn(ctx, "skipped")
	log.Critical(ctx, "kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "kept", lines[0]["msg"])
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := Nop()
	ctx := context.TODO()
	log.Debug(ctx, "x")
	log.Info(ctx, "x")
	log.Warn(ctx, "x")
	log.Error(ctx, "x")
	log.Critical(ctx, "x")
	log.With("a", 1).Info(ctx, "x")
}
