package event

// Accumulator is the volatile per-session state an adapter mutates while
// walking one journal file's records (spec.md §3). It is rebuilt from the
// persisted TrackedFile at daemon startup, so it carries no information
// that isn't reconstructible from already-seen bytes plus the flags below.
type Accumulator struct {
	TurnNumber   int
	FilesTouched map[string]struct{}

	CWD       string
	GitBranch string
	Model     string

	SessionStartEmitted bool
	BranchEmitted       bool
	ModelEmitted        bool
}

// NewAccumulator returns a zeroed Accumulator ready to parse from the
// start of a journal file.
func NewAccumulator() *Accumulator {
	return &Accumulator{FilesTouched: make(map[string]struct{})}
}

// TouchFile records a file as touched by the session, for the eventual
// SessionEnd's files_touched list.
func (a *Accumulator) TouchFile(path string) {
	if path == "" {
		return
	}
	a.FilesTouched[path] = struct{}{}
}

// FilesTouchedList returns the touched-file set as a slice, in no
// particular order — callers that need determinism should sort it.
func (a *Accumulator) FilesTouchedList() []string {
	out := make([]string, 0, len(a.FilesTouched))
	for p := range a.FilesTouched {
		out = append(out, p)
	}
	return out
}
