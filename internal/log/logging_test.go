package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "TRACE", LevelName(LevelTrace))
	assert.Equal(t, "INFO", LevelName(slog.LevelInfo))
}

func TestConsoleHandlerPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, LevelTrace, false))
	logger.With("component", "dispatcher").WithGroup("entry").Log(t.Context(), LevelTrace, "sent", "ops", 2)

	line := buf.String()
	require.True(t, strings.HasSuffix(line, "\n"))
	assert.NotContains(t, line, "\033[")
	assert.Contains(t, line, "TRACE sent component=dispatcher entry.ops=2")
}

func TestConsoleHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelInfo, true))
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "\033[33m")
	assert.Contains(t, buf.String(), "shown")
}

func TestMultiHandlerRespectsLevels(t *testing.T) {
	var quiet, loud bytes.Buffer
	logger := slog.New(MultiHandler{hs: []slog.Handler{
		NewConsoleHandler(&quiet, slog.LevelWarn, false),
		NewConsoleHandler(&loud, slog.LevelDebug, false),
	}})
	logger.Debug("detail")
	assert.Empty(t, quiet.String())
	assert.Contains(t, loud.String(), "detail")
}
