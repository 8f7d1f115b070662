package tracer

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcus/tracer/internal/adapter/claudecode"
	"github.com/marcus/tracer/internal/config"
	"github.com/marcus/tracer/internal/domain"
	"github.com/marcus/tracer/internal/event"
	"github.com/marcus/tracer/internal/paths"
	"github.com/marcus/tracer/internal/repomatch"
	"github.com/marcus/tracer/internal/sender"
	"github.com/marcus/tracer/internal/state"
)

func eventForTest() event.Event {
	return event.Event{
		Type:      event.TypePrompt,
		SessionID: "S1",
		AgentType: claudecode.AgentType,
		Prompt:    &event.Prompt{PromptText: "hi", TurnNumber: 1},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withTestDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	paths.SetTestDir(dir)
	t.Cleanup(paths.ResetTestDir)
}

func newTestSupervisor(t *testing.T, cfg *config.Config, params sender.Params) *Supervisor {
	t.Helper()
	withTestDir(t)

	s := New(claudecode.New(), discardLogger())
	s.store = state.New()
	s.cache = repomatch.NewGitCache()
	s.setCfg(cfg)
	s.setSender(sender.New(params, s.onSent, s.onAuthFailure, discardLogger()))
	return s
}

func writeJournal(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile_NewMatchCreatesTrackedFileAndRoutesEvents(t *testing.T) {
	received := make(chan int, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- 1
		_, _ = w.Write([]byte(`{"data":{"processed":1,"errors":[]}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{Teams: []config.Team{{Name: "T", InstanceURL: srv.URL, UserToken: "tok", UserID: "me"}}}
	s := newTestSupervisor(t, cfg, sender.Params{BatchInterval: time.Hour, MaxBatchSize: 1})
	s.rosters = map[string]domain.RepoRoster{
		"T": {Repos: map[string]struct{}{"repo": {}}},
	}

	dir := t.TempDir()
	journalDir := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(journalDir, 0o755))
	path := writeJournal(t, dir, "S1.jsonl", []string{
		`{"type":"user","sessionId":"S1","cwd":"` + journalDir + `","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"fix it"}}`,
	})

	s.processFile(path)

	tf, ok := s.store.Get(path)
	require.True(t, ok)
	require.Equal(t, "repo", tf.MatchedRepo)
	require.Equal(t, []string{"T"}, tf.MatchedTeams)

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected ingest request for the matched team")
	}
}

func TestProcessFile_NoRosterMatchSkipsFile(t *testing.T) {
	cfg := &config.Config{Teams: []config.Team{{Name: "T", InstanceURL: "http://unused", UserToken: "tok"}}}
	s := newTestSupervisor(t, cfg, sender.Params{BatchInterval: time.Hour, MaxBatchSize: 10})
	s.rosters = map[string]domain.RepoRoster{"T": {Repos: map[string]struct{}{"other": {}}}}

	dir := t.TempDir()
	path := writeJournal(t, dir, "S1.jsonl", []string{
		`{"type":"user","sessionId":"S1","cwd":"` + filepath.Join(dir, "repo") + `","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"fix it"}}`,
	})

	s.processFile(path)

	_, ok := s.store.Get(path)
	require.False(t, ok)
}

func TestAccumulatorFor_RestoresFlagsWhenOffsetNonZero(t *testing.T) {
	cfg := &config.Config{}
	s := newTestSupervisor(t, cfg, sender.Params{})

	tf := domain.TrackedFile{ByteOffset: 500, TurnNumber: 3, FilesTouched: []string{"a.ts"}}
	acc := s.accumulatorFor("/repo/a.jsonl", tf)

	require.True(t, acc.SessionStartEmitted)
	require.True(t, acc.BranchEmitted)
	require.True(t, acc.ModelEmitted)
	require.Equal(t, 3, acc.TurnNumber)

	again := s.accumulatorFor("/repo/a.jsonl", tf)
	require.Same(t, acc, again)
}

func TestCommitAllBestEffort_GatedBySenderPending(t *testing.T) {
	var allowRespond chan struct{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowRespond != nil {
			<-allowRespond
		}
		_, _ = w.Write([]byte(`{"data":{"processed":1,"errors":[]}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{Teams: []config.Team{{Name: "T", InstanceURL: srv.URL, UserToken: "tok"}}}
	s := newTestSupervisor(t, cfg, sender.Params{BatchInterval: time.Hour, MaxBatchSize: 10})

	s.store.Put("/repo/a.jsonl", domain.TrackedFile{MatchedTeams: []string{"T"}})
	s.store.SetReadHead("/repo/a.jsonl", 42)

	s.currentSender().Add("T", srv.URL, "tok", eventForTest())
	require.Greater(t, s.currentSender().Pending("T"), 0)

	s.commitAllBestEffort()
	tf, _ := s.store.Get("/repo/a.jsonl")
	require.Equal(t, int64(0), tf.ByteOffset, "commit must not advance while events are pending")

	s.currentSender().Flush("T")
	require.Eventually(t, func() bool { return s.currentSender().Pending("T") == 0 }, time.Second, 10*time.Millisecond)

	s.commitAllBestEffort()
	tf, _ = s.store.Get("/repo/a.jsonl")
	require.Equal(t, int64(42), tf.ByteOffset)
}

func TestDiffRosterRepos_AddedAndRemoved(t *testing.T) {
	old := map[string]domain.RepoRoster{
		"T": {Repos: map[string]struct{}{"a": {}, "b": {}}},
	}
	new := map[string]domain.RepoRoster{
		"T": {Repos: map[string]struct{}{"b": {}, "c": {}}},
	}

	added, removed := diffRosterRepos(old, new)
	require.ElementsMatch(t, []string{"c"}, added)
	require.ElementsMatch(t, []string{"a"}, removed)
}

func TestSubdirRepoFor(t *testing.T) {
	tf := domain.TrackedFile{CWD: "/w/mono", SubDirRepos: map[string]string{"a": "repo-a", "b": "repo-b"}}

	repo, relPath, ok := subdirRepoFor(tf, "/w/mono/a/x.ts")
	require.True(t, ok)
	require.Equal(t, "repo-a", repo)
	require.Equal(t, "x.ts", relPath)

	_, _, ok = subdirRepoFor(tf, "/w/mono/c/y.ts")
	require.False(t, ok)

	_, _, ok = subdirRepoFor(tf, "/elsewhere/x.ts")
	require.False(t, ok)
}

func TestRepoRelativeFilePath(t *testing.T) {
	require.Equal(t, "a.ts", repoRelativeFilePath("/w/repo", "/w/repo/a.ts"))
	require.Equal(t, "(bash)", repoRelativeFilePath("/w/repo", "(bash)"))
	require.Equal(t, "/elsewhere/a.ts", repoRelativeFilePath("/w/repo", "/elsewhere/a.ts"))
}

func TestDedupeStrings(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, dedupeStrings([]string{"a", "b", "a"}))
}

func TestFirstCWD_FindsFieldWithinProbeWindow(t *testing.T) {
	dir := t.TempDir()
	path := writeJournal(t, dir, "S1.jsonl", []string{
		`{"type":"summary"}`,
		`{"type":"user","cwd":"/w/repo"}`,
	})

	cwd, ok := firstCWD(path)
	require.True(t, ok)
	require.Equal(t, "/w/repo", cwd)
}

func TestFirstCWD_NoCWDFieldReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeJournal(t, dir, "S1.jsonl", []string{`{"type":"summary"}`})

	_, ok := firstCWD(path)
	require.False(t, ok)
}
