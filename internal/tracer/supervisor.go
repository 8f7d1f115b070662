// Package tracer implements the supervisor (C9, spec.md §4.8): the
// single-threaded cooperative core that watches the agent journal root,
// drives the per-file parse/route pipeline, and owns the state store,
// sender, and poller. Directory-watch callbacks follow the teacher's
// gitstatus.Watcher debounce shape, funneled into one serial dispatch
// loop per spec.md §5.
package tracer

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marcus/tracer/internal/adapter"
	"github.com/marcus/tracer/internal/config"
	"github.com/marcus/tracer/internal/domain"
	"github.com/marcus/tracer/internal/event"
	"github.com/marcus/tracer/internal/journal"
	"github.com/marcus/tracer/internal/paths"
	"github.com/marcus/tracer/internal/poller"
	"github.com/marcus/tracer/internal/redact"
	"github.com/marcus/tracer/internal/repomatch"
	"github.com/marcus/tracer/internal/sender"
	"github.com/marcus/tracer/internal/state"
	"github.com/marcus/tracer/internal/symbols"
)

// Phase is the supervisor's lifecycle state.
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseDraining
)

const (
	stateFlushInterval  = 10 * time.Second
	rosterRefreshPeriod = 5 * time.Minute
	reloadFlagPoll      = 2 * time.Second
	drainTimeout        = 5 * time.Second
	rosterFetchTimeout  = 5 * time.Second
	maxCWDProbeLines    = 50
)

type dispatchFunc func()

// Supervisor owns the state store, sender, and poller, and drives the
// per-file dispatch loop. Adapters own only their own parse state.
type Supervisor struct {
	adapter  adapter.Adapter
	log      *slog.Logger
	watchDir string

	mu     sync.Mutex
	phase  Phase
	cfg    *config.Config
	store  *state.Store
	cache  *repomatch.GitCache
	sender *sender.Sender
	poller *poller.Poller

	rosters map[string]domain.RepoRoster

	accMu        sync.Mutex
	accumulators map[string]*event.Accumulator

	dispatch chan dispatchFunc
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a Supervisor for the given adapter. Call Start to begin
// running it.
func New(a adapter.Adapter, log *slog.Logger) *Supervisor {
	return &Supervisor{
		adapter:      a,
		log:          log,
		accumulators: make(map[string]*event.Accumulator),
		rosters:      make(map[string]domain.RepoRoster),
		dispatch:     make(chan dispatchFunc, 256),
	}
}

// Start implements the Stopped→Starting→Running transition.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setPhase(PhaseStarting)

	if err := paths.WritePID(); err != nil {
		s.log.Warn("tracer: failed to write pid file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.setCfg(cfg)

	st, err := state.Load()
	if err != nil {
		return err
	}
	s.store = st

	s.cache = repomatch.NewGitCache()
	s.cache.Seed(st.GitCacheSnapshot())

	s.setSender(sender.New(
		sender.Params{BatchInterval: cfg.BatchInterval(), MaxBatchSize: cfg.Tracer.MaxBatchSize},
		s.onSent,
		s.onAuthFailure,
		s.log,
	))
	s.poller = poller.New(s, s.onAuthFailure, s.log)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.refreshRosters()

	watchDir, err := s.adapter.WatchDir()
	if err != nil {
		return err
	}
	s.watchDir = watchDir

	s.wg.Add(1)
	go s.dispatchLoop(runCtx)

	s.scanExisting(watchDir)

	s.wg.Add(1)
	go s.watchLoop(runCtx, watchDir)

	s.wg.Add(1)
	go s.timerLoop(runCtx)

	if runtime.GOOS != "windows" {
		s.wg.Add(1)
		go s.signalReloadLoop(runCtx)
	} else {
		s.wg.Add(1)
		go s.reloadFlagPollLoop(runCtx)
	}

	s.poller.Start(runCtx)

	s.setPhase(PhaseRunning)
	return nil
}

// Stop implements Draining→Stopped, idempotent per spec.md §4.8.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.phase == PhaseStopped || s.phase == PhaseDraining {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseDraining
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.poller.Stop()
	s.currentSender().FlushAll(drainTimeout)

	s.commitAllBestEffort()
	s.syncGitCache()
	s.syncTeamStatus()
	if err := s.store.Save(); err != nil {
		s.log.Warn("tracer: failed to save state on shutdown", "error", err)
	}

	s.wg.Wait()

	if pid, err := paths.ReadPID(); err == nil && pid == os.Getpid() {
		_ = paths.RemovePIDIfOwned()
	}

	s.setPhase(PhaseStopped)
}

func (s *Supervisor) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Supervisor) setCfg(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Supervisor) currentCfg() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Supervisor) setSender(snd *sender.Sender) {
	s.mu.Lock()
	s.sender = snd
	s.mu.Unlock()
}

func (s *Supervisor) currentSender() *sender.Sender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sender
}

// Teams implements poller.TeamSource: every configured team whose sender
// queue is not currently suspended (spec.md §4.7's shared suspension
// signal with the sender).
func (s *Supervisor) Teams() map[string]poller.TeamCreds {
	cfg := s.currentCfg()
	snd := s.currentSender()
	out := make(map[string]poller.TeamCreds)
	if cfg == nil {
		return out
	}
	for _, t := range cfg.Teams {
		if snd != nil && snd.IsSuspended(t.Name) {
			continue
		}
		out[t.Name] = poller.TeamCreds{InstanceURL: t.InstanceURL, Token: t.UserToken}
	}
	return out
}

// run serializes f onto the dispatch loop, matching spec.md §5's
// requirement that watch callbacks delivered on other threads be
// funneled to one serial executor before touching TrackedFile,
// SessionAccumulator, or sender queues.
func (s *Supervisor) run(f dispatchFunc) {
	select {
	case s.dispatch <- f:
	default:
		// Dispatch queue saturated; drop rather than block the caller
		// indefinitely. The next directory-watch event will re-trigger
		// processing for any file this drops.
		s.log.Warn("tracer: dispatch queue full, dropping scheduled work")
	}
}

func (s *Supervisor) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.dispatch:
			f()
		}
	}
}

func (s *Supervisor) scanExisting(watchDir string) {
	ext := s.adapter.FileExtension()
	_ = filepath.WalkDir(watchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}
		p := path
		s.run(func() { s.processFile(p) })
		return nil
	})
}

func (s *Supervisor) watchLoop(ctx context.Context, watchDir string) {
	defer s.wg.Done()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("tracer: failed to start directory watch, falling back to scan-only mode", "error", err)
		return
	}
	defer w.Close()

	if err := addRecursive(w, watchDir); err != nil {
		s.log.Warn("tracer: failed to watch journal root", "dir", watchDir, "error", err)
	}

	ext := s.adapter.FileExtension()
	debounce := make(map[string]*time.Timer)
	var debounceMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ext {
				if ev.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = w.Add(ev.Name)
					}
				}
				continue
			}

			path := ev.Name
			debounceMu.Lock()
			if t, ok := debounce[path]; ok {
				t.Stop()
			}
			debounce[path] = time.AfterFunc(100*time.Millisecond, func() {
				s.run(func() { s.processFile(path) })
			})
			debounceMu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("tracer: directory watch error", "error", err)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}

func (s *Supervisor) timerLoop(ctx context.Context) {
	defer s.wg.Done()
	flushTicker := time.NewTicker(stateFlushInterval)
	rosterTicker := time.NewTicker(rosterRefreshPeriod)
	defer flushTicker.Stop()
	defer rosterTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flushTicker.C:
			s.run(func() { s.flushState() })
		case <-rosterTicker.C:
			s.run(func() { s.refreshRosters() })
		}
	}
}

const gitCacheMaxAge = 7 * 24 * time.Hour

func (s *Supervisor) flushState() {
	s.commitAllBestEffort()
	s.syncGitCache()
	s.syncTeamStatus()
	if err := s.store.Save(); err != nil {
		s.log.Warn("tracer: periodic state save failed", "error", err)
	}
}

// syncTeamStatus snapshots the sender's current suspension/queue-depth
// state per team into the store, so a separate `tracer status`
// invocation can report it without touching the running daemon.
func (s *Supervisor) syncTeamStatus() {
	cfg := s.currentCfg()
	snd := s.currentSender()
	if cfg == nil || snd == nil {
		return
	}
	for _, t := range cfg.Teams {
		s.store.SetTeamStatus(t.Name, domain.TeamRuntimeStatus{
			Suspended:  snd.IsSuspended(t.Name),
			QueueDepth: snd.Pending(t.Name),
		})
	}
}

// syncGitCache pulls freshly resolved entries from the in-memory
// repomatch.GitCache into the durable store, then compacts entries no
// tracked file's cwd references anymore (spec.md §9's cache.json
// compaction supplement).
func (s *Supervisor) syncGitCache() {
	cwds := make(map[string]struct{})
	for _, tf := range s.store.All() {
		if tf.CWD != "" {
			cwds[tf.CWD] = struct{}{}
		}
	}

	for cwd, remote := range s.cache.Snapshot(cwds) {
		s.store.PutGitRemote(cwd, remote)
	}

	if removed := s.store.CompactGitCache(cwds, gitCacheMaxAge); removed > 0 {
		s.log.Debug("tracer: compacted stale git cache entries", "removed", removed)
	}
}

// commitAllBestEffort advances byte_offset for every file whose matched
// teams currently have nothing pending in the sender, per spec.md §4.5's
// durability gate.
func (s *Supervisor) commitAllBestEffort() {
	snd := s.currentSender()
	for path, tf := range s.store.All() {
		teams := tf.MatchedTeams
		s.store.Commit(path, func() bool {
			for _, team := range teams {
				if snd.Pending(team) > 0 {
					return false
				}
			}
			return true
		})
	}
}

// reload implements spec.md §4.8's config-reload transition: reload
// config, refresh rosters, and replace the sender wholesale.
func (s *Supervisor) reload() {
	cfg, err := config.Load()
	if err != nil {
		s.log.Warn("tracer: reload failed to load config", "error", err)
		return
	}
	s.setCfg(cfg)
	s.setSender(sender.New(
		sender.Params{BatchInterval: cfg.BatchInterval(), MaxBatchSize: cfg.Tracer.MaxBatchSize},
		s.onSent,
		s.onAuthFailure,
		s.log,
	))
	s.refreshRosters()
	s.log.Info("tracer: configuration reloaded")
}

func (s *Supervisor) reloadFlagPollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(reloadFlagPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(paths.ReloadFlagPath()); err == nil {
				_ = os.Remove(paths.ReloadFlagPath())
				s.run(s.reload)
			}
		}
	}
}

type reposResponse struct {
	Data struct {
		Repos []struct {
			Name string `json:"name"`
		} `json:"repos"`
	} `json:"data"`
}

// refreshRosters fetches each non-suspended team's repo list (spec.md
// §6's GET /api/v1/repos), tolerating per-team errors, then computes
// added/removed repos and applies eviction/backfill per spec.md §4.8.
func (s *Supervisor) refreshRosters() {
	cfg := s.currentCfg()
	snd := s.currentSender()
	if cfg == nil {
		return
	}

	client := &http.Client{Timeout: rosterFetchTimeout}
	newRosters := make(map[string]domain.RepoRoster)

	for _, t := range cfg.Teams {
		if snd != nil && snd.IsSuspended(t.Name) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), rosterFetchTimeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.InstanceURL+"/api/v1/repos", nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("Authorization", "Bearer "+t.UserToken)

		resp, err := client.Do(req)
		if err != nil {
			cancel()
			s.log.Warn("tracer: roster fetch failed", "team", t.Name, "error", err)
			continue
		}
		func() {
			defer resp.Body.Close()
			defer cancel()

			if resp.StatusCode == http.StatusUnauthorized {
				s.onAuthFailure(t.Name)
				return
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				s.log.Warn("tracer: roster fetch returned error status", "team", t.Name, "status", resp.StatusCode)
				return
			}

			var out reposResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				s.log.Warn("tracer: roster response decode failed", "team", t.Name, "error", err)
				return
			}
			repos := make(map[string]struct{}, len(out.Data.Repos))
			for _, r := range out.Data.Repos {
				repos[r.Name] = struct{}{}
			}
			newRosters[t.Name] = domain.RepoRoster{Repos: repos, FetchedAt: time.Now()}
		}()
	}

	added, removed := diffRosterRepos(s.rosters, newRosters)
	s.rosters = newRosters

	for _, repo := range removed {
		evicted := s.store.EvictByRepo(repo)
		for _, path := range evicted {
			s.accMu.Lock()
			delete(s.accumulators, path)
			s.accMu.Unlock()
		}
	}
	if len(added) > 0 && s.watchDir != "" {
		s.scanExisting(s.watchDir)
	}
}

// diffRosterRepos returns the set of repo names present in new but not
// old (added) and old but not new (removed), across every team's roster.
func diffRosterRepos(old, new map[string]domain.RepoRoster) (added, removed []string) {
	oldRepos := unionRepos(old)
	newRepos := unionRepos(new)
	for r := range newRepos {
		if _, ok := oldRepos[r]; !ok {
			added = append(added, r)
		}
	}
	for r := range oldRepos {
		if _, ok := newRepos[r]; !ok {
			removed = append(removed, r)
		}
	}
	return added, removed
}

func unionRepos(rosters map[string]domain.RepoRoster) map[string]struct{} {
	out := make(map[string]struct{})
	for _, roster := range rosters {
		for r := range roster.Repos {
			out[r] = struct{}{}
		}
	}
	return out
}

// processFile implements spec.md §4.8's per-file pipeline: look up or
// create the TrackedFile, match its cwd against the current rosters if
// new, then parse and route whatever bytes have been appended since the
// last recorded byte_offset.
func (s *Supervisor) processFile(path string) {
	sessionID := s.adapter.ExtractSessionID(path)

	tf, existed := s.store.Get(path)
	if !existed {
		cwd, ok := firstCWD(path)
		if !ok {
			return
		}
		matches := repomatch.MatchCWD(cwd, s.rosters, s.cache)
		if len(matches) == 0 {
			return
		}

		teams := make([]string, 0, len(matches))
		subdirs := make(map[string]string)
		for _, m := range matches {
			teams = append(teams, m.TeamName)
			if m.SubDir != "" {
				subdirs[m.SubDir] = m.RepoName
			}
		}

		tf = domain.TrackedFile{
			Path:         path,
			SessionID:    sessionID,
			CWD:          cwd,
			MatchedRepo:  matches[0].RepoName,
			MatchedTeams: dedupeStrings(teams),
		}
		if len(subdirs) > 0 {
			tf.SubDirRepos = subdirs
		}
		s.store.Put(path, tf)
	}

	acc := s.accumulatorFor(path, tf)

	reader := journal.NewReader(path)
	records, newOffset, err := reader.Read(tf.ByteOffset)
	if err != nil {
		if err == journal.ErrTruncated {
			s.log.Warn("tracer: journal file shorter than recorded offset, resetting", "path", path)
			tf.ByteOffset = 0
			s.store.Put(path, tf)
			s.accMu.Lock()
			delete(s.accumulators, path)
			s.accMu.Unlock()
			return
		}
		s.log.Warn("tracer: journal read failed", "path", path, "error", err)
		return
	}

	for _, rec := range records {
		events, parseErr := s.adapter.ParseLine(rec.Bytes, sessionID, acc)
		if parseErr != nil {
			continue
		}
		for _, ev := range events {
			enrichFileOp(ev)
			s.routeEvent(tf, sanitizeForTransmission(ev))
		}
	}

	tf.TurnNumber = acc.TurnNumber
	tf.FilesTouched = acc.FilesTouchedList()
	s.store.Put(path, tf)
	s.store.SetReadHead(path, newOffset)
}

// accumulatorFor returns the in-memory Accumulator for path, seeding a
// fresh one from the persisted TrackedFile the first time it's needed
// after a restart. A non-zero byte_offset means the session's base
// SessionStart (and any branch/model backfill) has already been
// delivered in a prior run, so those flags are set to avoid resending
// them (an Open Question in spec.md §9 resolved conservatively against
// duplicate SessionStarts).
func (s *Supervisor) accumulatorFor(path string, tf domain.TrackedFile) *event.Accumulator {
	s.accMu.Lock()
	defer s.accMu.Unlock()

	if acc, ok := s.accumulators[path]; ok {
		return acc
	}

	acc := event.NewAccumulator()
	acc.TurnNumber = tf.TurnNumber
	acc.CWD = tf.CWD
	for _, f := range tf.FilesTouched {
		acc.TouchFile(f)
	}
	if tf.ByteOffset > 0 {
		acc.SessionStartEmitted = true
		acc.BranchEmitted = true
		acc.ModelEmitted = true
	}
	s.accumulators[path] = acc
	return acc
}

// routeEvent implements spec.md §4.4/§4.8's routing rule: a FileOp
// inside a registered subdirectory of a parent-of-subrepos cwd is routed
// only to the teams owning that subdirectory's repo, with its
// session_id rewritten to "<session>:<repo>"; everything else (and any
// FileOp outside a registered subdirectory when none are registered)
// routes to every team the cwd itself matched. In both cases a FileOp's
// file_path is rewritten from its absolute on-disk form to repo-relative
// (spec.md §3, §4.4) before it reaches enqueueForTeam.
func (s *Supervisor) routeEvent(tf domain.TrackedFile, ev event.Event) {
	if ev.FileOp != nil && len(tf.SubDirRepos) > 0 {
		repo, relPath, ok := subdirRepoFor(tf, ev.FileOp.FilePath)
		if !ok {
			return
		}
		ev.RepoName = repo
		ev.SessionID = tf.SessionID + ":" + repo
		fo := *ev.FileOp
		if relPath != "" {
			fo.FilePath = relPath
		}
		ev.FileOp = &fo
		for _, team := range s.teamsForRepo(repo) {
			s.enqueueForTeam(team, ev)
		}
		return
	}

	var relPath string
	if ev.FileOp != nil {
		relPath = repoRelativeFilePath(tf.CWD, ev.FileOp.FilePath)
	}

	for _, team := range tf.MatchedTeams {
		clone := ev
		clone.RepoName = tf.MatchedRepo
		if ev.FileOp != nil {
			fo := *ev.FileOp
			fo.FilePath = relPath
			clone.FileOp = &fo
		}
		s.enqueueForTeam(team, clone)
	}
}

// subdirRepoFor resolves filePath's registered subdirectory repo along
// with the remainder of the path past that subdirectory, the file_path
// spec.md §4.4 expects ("stripped relative to <subdir>").
func subdirRepoFor(tf domain.TrackedFile, filePath string) (repo, relPath string, ok bool) {
	if filePath == "" || tf.CWD == "" {
		return "", "", false
	}
	rel, err := filepath.Rel(tf.CWD, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", false
	}
	parts := strings.SplitN(rel, string(filepath.Separator), 2)
	repo, ok = tf.SubDirRepos[parts[0]]
	if !ok {
		return "", "", false
	}
	if len(parts) == 2 {
		relPath = parts[1]
	}
	return repo, relPath, true
}

// repoRelativeFilePath strips root from filePath, matching spec.md §3's
// "file_path (repo-relative after routing)". A sentinel path (bash/grep/
// glob with no underlying file) or one that doesn't resolve cleanly under
// root is returned unchanged.
func repoRelativeFilePath(root, filePath string) string {
	if root == "" || filePath == "" {
		return filePath
	}
	rel, err := filepath.Rel(root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filePath
	}
	return rel
}

func (s *Supervisor) teamsForRepo(repo string) []string {
	var out []string
	for team, roster := range s.rosters {
		if roster.HasRepo(repo) {
			out = append(out, team)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Supervisor) enqueueForTeam(team string, ev event.Event) {
	cfg := s.currentCfg()
	snd := s.currentSender()
	if cfg == nil || snd == nil {
		return
	}
	for _, t := range cfg.Teams {
		if t.Name != team {
			continue
		}
		ev.UserID = t.UserID
		snd.Add(team, t.InstanceURL, t.UserToken, ev)
		return
	}
}

func (s *Supervisor) onSent(team string, processed []event.Event) {
	s.run(s.commitAllBestEffort)
}

func (s *Supervisor) onAuthFailure(team string) {
	s.log.Warn("tracer: team authentication failed, suspending", "team", team)
	if snd := s.currentSender(); snd != nil {
		snd.Suspend(team)
	}
}

// firstCWD scans the first lines of a newly-seen journal file for a
// record carrying a top-level "cwd" field, the minimum needed to run the
// repo matcher before a TrackedFile can be created (spec.md §4.8).
func firstCWD(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for i := 0; i < maxCWDProbeLines && scanner.Scan(); i++ {
		if cwd := peekCWD(scanner.Bytes()); cwd != "" {
			return cwd, true
		}
	}
	return "", false
}

func peekCWD(line []byte) string {
	var probe struct {
		CWD string `json:"cwd"`
	}
	if json.Unmarshal(line, &probe) != nil {
		return ""
	}
	return probe.CWD
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// enrichFileOp implements the C4 enrichment step of spec.md §2's control
// flow (C2→C3→C4→C5): a FileOp carrying an old_string excerpt has its
// enclosing line range and symbol name resolved against the file still on
// disk, before old_string/new_string are stripped by
// sanitizeForTransmission and file_path is rewritten to repo-relative by
// routeEvent.
func enrichFileOp(ev event.Event) {
	if ev.FileOp == nil || ev.FileOp.OldString == "" || isSentinelFilePath(ev.FileOp.FilePath) {
		return
	}
	region, err := symbols.Resolve(ev.FileOp.FilePath, ev.FileOp.OldString)
	if err != nil || region == nil {
		return
	}
	startLine, endLine := region.StartLine, region.EndLine
	ev.FileOp.StartLine = &startLine
	ev.FileOp.EndLine = &endLine
	ev.FileOp.FunctionName = region.EnclosingSymbol
}

func isSentinelFilePath(p string) bool {
	switch p {
	case event.SentinelBash, event.SentinelGrep, event.SentinelGlob:
		return true
	default:
		return false
	}
}

// sanitizeForTransmission strips the fields spec.md §7 forbids from
// crossing the wire: raw old/new string diffs and any high-sensitivity
// secret pattern embedded in free text.
func sanitizeForTransmission(e event.Event) event.Event {
	if e.FileOp != nil {
		clone := *e.FileOp
		clone.OldString = ""
		clone.NewString = ""
		if result := redact.Text(clone.BashCommand); result.Changed {
			clone.BashCommand = result.Text
		}
		e.FileOp = &clone
	}
	if e.Prompt != nil {
		clone := *e.Prompt
		if result := redact.Text(clone.PromptText); result.Changed {
			clone.PromptText = result.Text
		}
		e.Prompt = &clone
	}
	if e.AgentResponse != nil {
		clone := *e.AgentResponse
		if result := redact.Text(clone.ResponseText); result.Changed {
			clone.ResponseText = result.Text
		}
		e.AgentResponse = &clone
	}
	return e
}
