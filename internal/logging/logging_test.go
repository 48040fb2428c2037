package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, zerolog.DebugLevel), "session")
	l.Warn().Str("file", "a.txt").Msg("could not remove")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "a.txt", entry["file"])
	assert.Contains(t, entry, "time")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.WarnLevel)
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	l := Component(Console(&buf, zerolog.InfoLevel), "elastixbin")
	l.Info().Str("dir", "/tmp/elastix-1").Msg("keeping elastix work directory")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "keeping elastix work directory")
	assert.Contains(t, out, "component=elastixbin")
	assert.Contains(t, out, "dir=/tmp/elastix-1")
}
