//go:build !windows

package paths

import "syscall"

// IsProcessAlive reports whether pid names a live process, using the
// zero-signal probe (spec.md §9's "pidfile lock on implementations whose
// OS supports advisory file locks" note — signal-0 is the POSIX
// equivalent used here since flock is a heavier dependency than this
// advisory check warrants).
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err != syscall.ESRCH
}
