package repomatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marcus/tracer/internal/domain"
)

func roster(repos ...string) domain.RepoRoster {
	set := make(map[string]struct{}, len(repos))
	for _, r := range repos {
		set[r] = struct{}{}
	}
	return domain.RepoRoster{Repos: set}
}

func TestMatchCWD_BasenameMatch(t *testing.T) {
	dir := t.TempDir()
	repoDir := filepath.Join(dir, "widget")
	require.NoError(t, os.Mkdir(repoDir, 0o755))

	rosters := map[string]domain.RepoRoster{"acme": roster("widget")}
	matches := MatchCWD(repoDir, rosters, NewGitCache())
	require.Len(t, matches, 1)
	require.Equal(t, "acme", matches[0].TeamName)
	require.Equal(t, "widget", matches[0].RepoName)
	require.Empty(t, matches[0].SubDir)
}

func TestMatchCWD_ParentOfSubrepos(t *testing.T) {
	dir := t.TempDir()
	mono := filepath.Join(dir, "mono")
	require.NoError(t, os.Mkdir(mono, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(mono, "a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(mono, "b"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(mono, ".hidden"), 0o755))

	rosters := map[string]domain.RepoRoster{
		"teamA": roster("a"),
		"teamB": roster("b"),
	}
	matches := MatchCWD(mono, rosters, NewGitCache())
	require.Len(t, matches, 2)

	byTeam := map[string]Match{}
	for _, m := range matches {
		byTeam[m.TeamName] = m
	}
	require.Equal(t, "a", byTeam["teamA"].SubDir)
	require.Equal(t, "b", byTeam["teamB"].SubDir)
}

func TestMatchCWD_NoMatchReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	rosters := map[string]domain.RepoRoster{"acme": roster("something-else")}
	matches := MatchCWD(dir, rosters, NewGitCache())
	require.Empty(t, matches)
}

func TestExtractRepoName_StripsGitSuffixAndPath(t *testing.T) {
	require.Equal(t, "widget", extractRepoName("git@github.com:acme/widget.git"))
	require.Equal(t, "widget", extractRepoName("https://github.com/acme/widget"))
	require.Equal(t, "widget", extractRepoName("https://github.com/acme/widget.git"))
}

func TestGitCache_MemoizesLookup(t *testing.T) {
	dir := t.TempDir()
	cache := NewGitCache()

	first := cache.Lookup(dir)
	require.Empty(t, first.Name)

	cache.Seed(map[string]domain.GitRemote{dir: {Name: "seeded", RemoteURL: "git@example.com:x/seeded.git"}})
	second := cache.Lookup(dir)
	require.Equal(t, "seeded", second.Name, "a seeded/cached entry must be returned instead of re-resolving")
}
