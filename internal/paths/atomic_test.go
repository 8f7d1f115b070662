package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"a":1}`), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, AtomicWriteFile(path, []byte(`{"a":2}`), 0o644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(data))

	// No leftover temp file.
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestPIDFile_WriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	SetTestDir(dir)
	defer ResetTestDir()

	require.NoError(t, WritePID())
	pid, err := ReadPID()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	require.NoError(t, RemovePIDIfOwned())
	pid, err = ReadPID()
	require.NoError(t, err)
	require.Equal(t, 0, pid)
}

func TestReadPID_MissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	SetTestDir(dir)
	defer ResetTestDir()

	pid, err := ReadPID()
	require.NoError(t, err)
	require.Equal(t, 0, pid)
}

func TestRemovePIDIfOwned_DoesNotClobberNewerOwner(t *testing.T) {
	dir := t.TempDir()
	SetTestDir(dir)
	defer ResetTestDir()

	require.NoError(t, AtomicWriteFile(PIDPath(), []byte("999999"), 0o644))
	require.NoError(t, RemovePIDIfOwned())

	pid, err := ReadPID()
	require.NoError(t, err)
	require.Equal(t, 999999, pid)
}
