package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/config"
)

func TestNew_LevelsPerEnv(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.EnvProd, "", &buf)
	require.NoError(t, err)
	log.Debug().Msg("hidden")
	log.Info().Str("user_id", "u1").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "pid")
}

func TestNew_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.EnvDev, "warn", &buf)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	_, err = New(config.EnvDev, "loud", &buf)
	assert.Error(t, err)
}

func TestNew_LocalIsConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.EnvLocal, "", &buf)
	require.NoError(t, err)
	log.Trace().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_UnknownEnv(t *testing.T) {
	_, err := New("staging", "", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tada.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("x\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}
