package fsys

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *StateFile {
	t.Helper()
	return NewStateFile(filepath.Join(t.TempDir(), "state.json"))
}

func TestStateSetGet(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.Set("last_pipeline_id", "p-123"))

	got, err := state.Get("last_pipeline_id")
	require.NoError(t, err)
	assert.Equal(t, "p-123", got)
}

func TestStateGetUnset(t *testing.T) {
	state := newTestState(t)

	got, err := state.Get("never-set")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestStateOverwrite(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.Set("destination", "Old"))
	require.NoError(t, state.Set("destination", "New"))

	got, err := state.Get("destination")
	require.NoError(t, err)
	assert.Equal(t, "New", got)
}

func TestStateDelete(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.Set("k", "v"))
	require.NoError(t, state.Delete("k"))
	require.NoError(t, state.Delete("k"), "deleting an absent key succeeds")

	got, err := state.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestStateFilePermissionsAndShape(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.Set("client_id", "sb-client-1"))

	info, err := os.Stat(state.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(state.path)
	require.NoError(t, err)
	parsed := map[string]string{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "sb-client-1", parsed["client_id"])
}
