// Package domain holds the cross-component persisted data model
// (spec.md §3): TrackedFile, RepoRoster, and the gitCache entry shape.
// Kept separate from state/repomatch/poller so none of them needs to
// import another's package just for a struct definition.
package domain

import "time"

// TrackedFile is the durable per-journal-file record (spec.md §3).
type TrackedFile struct {
	Path          string            `json:"path"`
	ByteOffset    int64             `json:"byte_offset"`
	SessionID     string            `json:"session_id"`
	MatchedTeams  []string          `json:"matched_teams"`
	MatchedRepo   string            `json:"matched_repo"`
	SubDirRepos   map[string]string `json:"sub_dir_repos,omitempty"`
	TurnNumber    int               `json:"turn_number"`
	FilesTouched  []string          `json:"files_touched"`
	CWD           string            `json:"cwd"`
}

// RepoRoster is a team's known repo set, refreshed on an interval.
type RepoRoster struct {
	Repos     map[string]struct{} `json:"repos"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// HasRepo reports whether name is in the roster.
func (r RepoRoster) HasRepo(name string) bool {
	if r.Repos == nil {
		return false
	}
	_, ok := r.Repos[name]
	return ok
}

// GitRemote is one gitCache entry: a cwd's resolved repo name and origin
// URL, memoizing a git subprocess call. FetchedAt drives cache.json
// compaction of entries no longer referenced by any TrackedFile.
type GitRemote struct {
	Name      string    `json:"name"`
	RemoteURL string    `json:"remote_url"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// TeamStateSession is one session reported by a team's /api/v1/team-state
// endpoint, mirrored locally by the poller (spec.md §4.7, §4.9).
type TeamStateSession struct {
	SessionID   string             `json:"session_id"`
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name"`
	RepoName    string             `json:"repo_name"`
	StartedAt   time.Time          `json:"started_at"`
	Summary     string             `json:"summary,omitempty"`
	Regions     []SessionRegion    `json:"regions"`
	InstanceURL string             `json:"instance_url,omitempty"`
}

// SessionRegion is one file region a teammate's session has touched.
type SessionRegion struct {
	FilePath     string     `json:"file_path"`
	StartLine    *int       `json:"start_line,omitempty"`
	EndLine      *int       `json:"end_line,omitempty"`
	FunctionName string     `json:"function_name,omitempty"`
	LastTouchedAt *time.Time `json:"last_touched_at,omitempty"`
}

// TeamRuntimeStatus is the last-known sender state for one team, persisted
// so a separate `tracer status` invocation can report it without taking
// any lock on the running daemon (SPEC_FULL.md's supplemented feature).
type TeamRuntimeStatus struct {
	Suspended  bool `json:"suspended"`
	QueueDepth int  `json:"queue_depth"`
}

// RemoteSnapshot is the merged, locally-mirrored view of all teams'
// team-state responses (spec.md §3, §4.7).
type RemoteSnapshot struct {
	Sessions  []TeamStateSession `json:"sessions"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Fresh reports whether the snapshot is within the 120s staleness window
// relative to now.
func (s RemoteSnapshot) Fresh(now time.Time) bool {
	if s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) <= 120*time.Second
}
