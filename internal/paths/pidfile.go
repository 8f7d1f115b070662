package paths

import (
	"os"
	"strconv"
	"strings"
)

// WritePID writes the current process's PID to tracer.pid, atomically.
func WritePID() error {
	return AtomicWriteFile(PIDPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPID reads the PID recorded in tracer.pid. Returns 0, nil if the file
// does not exist — an advisory file missing a reader is not an error
// (spec.md §5: "a missing mirror file implies no data").
func ReadPID() (int, error) {
	data, err := os.ReadFile(PIDPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, nil
	}
	return pid, nil
}

// RemovePIDIfOwned deletes tracer.pid only if it still holds this
// process's own PID, so a new daemon instance that has already overwritten
// the file is never clobbered by a slow-shutdown old instance.
func RemovePIDIfOwned() error {
	pid, err := ReadPID()
	if err != nil {
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	err = os.Remove(PIDPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
