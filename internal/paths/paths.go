// Package paths resolves the per-user state directory (spec.md §6) and
// provides the atomic-write and PID-file primitives every durable file in
// this daemon is built on.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const dirName = ".overlap"

var testDir string

// Dir returns the per-user state directory: ~/.overlap on POSIX,
// %USERPROFILE%\.overlap on Windows. It does not create the directory.
func Dir() string {
	if testDir != "" {
		return testDir
	}
	if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			return filepath.Join(profile, dirName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dirName)
}

// EnsureDir creates the state directory (and its logs/ subdirectory) if
// they do not already exist.
func EnsureDir() (string, error) {
	dir := Dir()
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// SetTestDir overrides Dir() for tests, mirroring the teacher's
// config.SetTestConfigPath/projectdir base-override pattern.
func SetTestDir(dir string) { testDir = dir }

// ResetTestDir clears a prior SetTestDir override.
func ResetTestDir() { testDir = "" }

// ConfigPath returns the path to config.json.
func ConfigPath() string { return filepath.Join(Dir(), "config.json") }

// StatePath returns the path to state.json.
func StatePath() string { return filepath.Join(Dir(), "state.json") }

// CachePath returns the path to cache.json.
func CachePath() string { return filepath.Join(Dir(), "cache.json") }

// TeamStatePath returns the path to team-state.json.
func TeamStatePath() string { return filepath.Join(Dir(), "team-state.json") }

// PIDPath returns the path to tracer.pid.
func PIDPath() string { return filepath.Join(Dir(), "tracer.pid") }

// ReloadFlagPath returns the path to the Windows reload trigger file.
func ReloadFlagPath() string { return filepath.Join(Dir(), "reload") }

// LogPath returns the path to the daemon's stdout log.
func LogPath() string { return filepath.Join(Dir(), "logs", "tracer.log") }

// ErrorLogPath returns the path to the daemon's stderr log.
func ErrorLogPath() string { return filepath.Join(Dir(), "logs", "tracer.error.log") }
