// Package state implements the state store (spec.md §4.5): the durable
// TrackedFile table and gitCache snapshot, each its own atomically
// written file, with the byte_offset advancement gated on sender
// confirmation (the durability invariant in spec.md §4.5 and §8).
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/marcus/tracer/internal/domain"
	"github.com/marcus/tracer/internal/paths"
)

// stateFile is the on-disk shape of state.json.
type stateFile struct {
	TrackedFiles map[string]domain.TrackedFile       `json:"tracked_files"`
	TeamStatus   map[string]domain.TeamRuntimeStatus `json:"team_status,omitempty"`
}

// cacheFile is the on-disk shape of cache.json. GitRemotes accepts the
// legacy bare-string format (spec.md §9's open question) as well as the
// current object shape; Load migrates old entries to the object form.
type cacheFile struct {
	RepoLists  map[string]repoListEntry `json:"repo_lists"`
	GitRemotes map[string]json.RawMessage `json:"git_remotes"`
}

type repoListEntry struct {
	Repos     []string `json:"repos"`
	FetchedAt string   `json:"fetched_at"`
}

// Store holds the supervisor's durable state in memory, flushed to disk
// on a timer and at shutdown.
type Store struct {
	mu           sync.Mutex
	trackedFiles map[string]domain.TrackedFile
	gitRemotes   map[string]domain.GitRemote
	repoLists    map[string]repoListEntry
	teamStatus   map[string]domain.TeamRuntimeStatus

	// pendingOffsets tracks read_head values not yet safe to persist,
	// gated by Commit.
	pendingOffsets map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		trackedFiles:   make(map[string]domain.TrackedFile),
		gitRemotes:     make(map[string]domain.GitRemote),
		repoLists:      make(map[string]repoListEntry),
		teamStatus:     make(map[string]domain.TeamRuntimeStatus),
		pendingOffsets: make(map[string]int64),
	}
}

// Load reads state.json and cache.json from disk, tolerating either
// being missing or corrupt by treating them as empty (spec.md §7's
// "state corruption" policy).
func Load() (*Store, error) {
	s := New()

	if data, err := os.ReadFile(paths.StatePath()); err == nil {
		var sf stateFile
		if err := json.Unmarshal(data, &sf); err == nil {
			if sf.TrackedFiles != nil {
				s.trackedFiles = sf.TrackedFiles
			}
			if sf.TeamStatus != nil {
				s.teamStatus = sf.TeamStatus
			}
		}
	}

	if data, err := os.ReadFile(paths.CachePath()); err == nil {
		var cf cacheFile
		if err := json.Unmarshal(data, &cf); err == nil {
			if cf.RepoLists != nil {
				s.repoLists = cf.RepoLists
			}
			s.gitRemotes = migrateGitRemotes(cf.GitRemotes)
		}
	}

	return s, nil
}

// migrateGitRemotes accepts both the legacy bare-string value
// ({"cwd": "https://github.com/acme/widget.git"}) and the current object
// value ({"cwd": {"name": "widget", "remote_url": "..."}}), migrating
// the former to the latter in memory so the next Save writes only the
// new format.
func migrateGitRemotes(raw map[string]json.RawMessage) map[string]domain.GitRemote {
	out := make(map[string]domain.GitRemote, len(raw))
	for cwd, v := range raw {
		var obj domain.GitRemote
		if err := json.Unmarshal(v, &obj); err == nil && (obj.Name != "" || obj.RemoteURL != "") {
			out[cwd] = obj
			continue
		}
		var legacy string
		if err := json.Unmarshal(v, &legacy); err == nil && legacy != "" {
			out[cwd] = domain.GitRemote{RemoteURL: legacy, FetchedAt: time.Now()}
		}
	}
	return out
}

// Save atomically writes state.json and cache.json.
func (s *Store) Save() error {
	s.mu.Lock()
	sf := stateFile{TrackedFiles: copyTrackedFiles(s.trackedFiles), TeamStatus: copyTeamStatus(s.teamStatus)}
	cf := cacheFile{
		RepoLists:  copyRepoLists(s.repoLists),
		GitRemotes: marshalGitRemotes(s.gitRemotes),
	}
	s.mu.Unlock()

	stateData, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal state.json: %w", err)
	}
	stateData = append(stateData, '\n')
	if err := paths.AtomicWriteFile(paths.StatePath(), stateData, 0o600); err != nil {
		return fmt.Errorf("state: write state.json: %w", err)
	}

	cacheData, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal cache.json: %w", err)
	}
	cacheData = append(cacheData, '\n')
	if err := paths.AtomicWriteFile(paths.CachePath(), cacheData, 0o600); err != nil {
		return fmt.Errorf("state: write cache.json: %w", err)
	}
	return nil
}

func copyTrackedFiles(m map[string]domain.TrackedFile) map[string]domain.TrackedFile {
	out := make(map[string]domain.TrackedFile, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTeamStatus(m map[string]domain.TeamRuntimeStatus) map[string]domain.TeamRuntimeStatus {
	out := make(map[string]domain.TeamRuntimeStatus, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRepoLists(m map[string]repoListEntry) map[string]repoListEntry {
	out := make(map[string]repoListEntry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func marshalGitRemotes(m map[string]domain.GitRemote) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		if b, err := json.Marshal(v); err == nil {
			out[k] = b
		}
	}
	return out
}

// Get returns the TrackedFile for path, if one exists.
func (s *Store) Get(path string) (domain.TrackedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tf, ok := s.trackedFiles[path]
	return tf, ok
}

// Put creates or replaces the TrackedFile for path.
func (s *Store) Put(path string, tf domain.TrackedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tf.Path = path
	s.trackedFiles[path] = tf
}

// Evict removes the TrackedFile for path (used on roster removal).
func (s *Store) Evict(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackedFiles, path)
	delete(s.pendingOffsets, path)
}

// EvictByRepo removes every TrackedFile whose matched_repo equals repo,
// per spec.md §4.8's roster-diff eviction rule. Returns the evicted
// paths.
func (s *Store) EvictByRepo(repo string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for path, tf := range s.trackedFiles {
		if tf.MatchedRepo == repo {
			delete(s.trackedFiles, path)
			delete(s.pendingOffsets, path)
			evicted = append(evicted, path)
		}
	}
	return evicted
}

// All returns every tracked path, for iteration during roster refresh or
// shutdown commit.
func (s *Store) All() map[string]domain.TrackedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTrackedFiles(s.trackedFiles)
}

// SetReadHead records the in-memory read position for path, not yet
// durable until Commit is called for it.
func (s *Store) SetReadHead(path string, offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingOffsets[path] = offset
}

// Commit advances path's durable byte_offset to its current read_head,
// iff ready reports true (the sender has no pending events for this
// file across every matched team). Returns whether it advanced.
func (s *Store) Commit(path string, ready func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, ok := s.pendingOffsets[path]
	if !ok {
		return false
	}
	tf, ok := s.trackedFiles[path]
	if !ok {
		return false
	}
	if offset <= tf.ByteOffset {
		return false
	}
	if !ready() {
		return false
	}
	tf.ByteOffset = offset
	s.trackedFiles[path] = tf
	return true
}

// SetTeamStatus records the last-known sender state for team, so a
// separate `tracer status` invocation can read it without taking any
// lock on the running daemon.
func (s *Store) SetTeamStatus(team string, status domain.TeamRuntimeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamStatus[team] = status
}

// TeamStatusSnapshot returns a copy of the persisted per-team runtime status.
func (s *Store) TeamStatusSnapshot() map[string]domain.TeamRuntimeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTeamStatus(s.teamStatus)
}

// GitCacheSnapshot returns the in-memory gitCache, for repomatch.GitCache
// seeding at startup.
func (s *Store) GitCacheSnapshot() map[string]domain.GitRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.GitRemote, len(s.gitRemotes))
	for k, v := range s.gitRemotes {
		out[k] = v
	}
	return out
}

// PutGitRemote records a resolved git remote for persistence.
func (s *Store) PutGitRemote(cwd string, remote domain.GitRemote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gitRemotes[cwd] = remote
}

// CompactGitCache drops gitRemotes entries older than maxAge that aren't
// in keep (the cwds of currently tracked files), following the 7-day
// unreferenced-entry eviction the teacher's claudecode adapter applies
// to its own session-metadata cache.
func (s *Store) CompactGitCache(keep map[string]struct{}, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for cwd, remote := range s.gitRemotes {
		if _, ok := keep[cwd]; ok {
			continue
		}
		if remote.FetchedAt.IsZero() || remote.FetchedAt.Before(cutoff) {
			delete(s.gitRemotes, cwd)
			removed++
		}
	}
	return removed
}
