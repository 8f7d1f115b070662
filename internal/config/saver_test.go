package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSave_PreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	initial := []byte(`{
  "teams": [],
  "experimentalFeatureFlag": "should survive"
}`)
	require.NoError(t, os.WriteFile(path, initial, 0o644))

	cfg := Default()
	require.NoError(t, SaveTo(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	_, ok := raw["experimentalFeatureFlag"]
	require.True(t, ok, "Save must not delete unmanaged keys")
	_, ok = raw["tracer"]
	require.True(t, ok, "Save must write managed keys")
}

func TestSave_WorksWithNoExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	require.NoError(t, SaveTo(path, cfg))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Tracer.MaxBatchSize, loaded.Tracer.MaxBatchSize)
}

func TestSave_RoundTripsTeams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Teams = []Team{{Name: "acme", InstanceURL: "https://acme.example.com", UserToken: "tok", UserID: "u1"}}
	require.NoError(t, SaveTo(path, cfg))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Len(t, loaded.Teams, 1)
	require.Equal(t, "acme", loaded.Teams[0].Name)
}

func TestSetTestConfigPath_RedirectsLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	SetTestConfigPath(path)
	defer ResetTestConfigPath()

	cfg := Default()
	cfg.Teams = []Team{{Name: "acme"}}
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	require.Len(t, loaded.Teams, 1)
}
