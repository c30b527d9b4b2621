package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitaldrywood/timeexport/internal/logging"
)

func TestNewLogger_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.WithLevel("warn"), logging.WithWriter(&buf), logging.WithJSON())
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("name", "toggl_time_entries_latest").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "toggl_time_entries_latest", entry["name"])
}

func TestNewLogger_ConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.WithWriter(&buf))
	require.NoError(t, err)

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "INF")
}

func TestNewLogger_EmptyLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.WithLevel(""), logging.WithWriter(&buf), logging.WithJSON())
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := logging.NewLogger(logging.WithLevel("loud"))
	assert.Error(t, err)
}
