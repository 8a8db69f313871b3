package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]string{
		"auto": FormatAuto,
		"TEXT": FormatText,
		"json": FormatJSON,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, bad := range []string{"", "bogus", "xml"} {
		_, err := ParseFormat(bad)
		assert.Error(t, err, bad)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, slog.LevelInfo, FormatJSON).Info("hello", slog.String("k", "v"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNew_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, slog.LevelWarn, FormatText)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestNew_AutoNonFileIsText(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, slog.LevelInfo, FormatAuto).Info("x")
	assert.Contains(t, buf.String(), "msg=x")
}
