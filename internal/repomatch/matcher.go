// Package repomatch implements the repo matcher (spec.md §4.4): deciding
// which team(s) a journal's cwd belongs to, by basename, git origin, or
// (for a parent-of-subrepos layout) per-subdirectory resolution.
package repomatch

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/marcus/tracer/internal/domain"
)

// Match is one resolved routing target.
type Match struct {
	TeamName string
	RepoName string
	SubDir   string // empty unless this came from the parent-of-subrepos case
}

var repoNameFromURL = regexp.MustCompile(`[/:]([^/:]+?)(?:\.git)?$`)

func extractRepoName(remoteURL string) string {
	if remoteURL == "" {
		return ""
	}
	m := repoNameFromURL.FindStringSubmatch(remoteURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Match implements the full resolution order of spec.md §4.4 against cwd.
func MatchCWD(cwd string, rosters map[string]domain.RepoRoster, cache *GitCache) []Match {
	if matches := matchDirect(cwd, rosters, cache); len(matches) > 0 {
		return matches
	}
	return matchSubdirs(cwd, rosters, cache)
}

// matchDirect implements steps 1-2: basename, then git origin.
func matchDirect(cwd string, rosters map[string]domain.RepoRoster, cache *GitCache) []Match {
	base := filepath.Base(cwd)
	if matches := matchesForRepo(base, rosters); len(matches) > 0 {
		return matches
	}

	remote := cache.Lookup(cwd)
	if remote.Name == "" {
		return nil
	}
	return matchesForRepo(remote.Name, rosters)
}

func matchesForRepo(repo string, rosters map[string]domain.RepoRoster) []Match {
	if repo == "" {
		return nil
	}
	var matches []Match
	for team, roster := range rosters {
		if roster.HasRepo(repo) {
			matches = append(matches, Match{TeamName: team, RepoName: repo})
		}
	}
	return matches
}

// matchSubdirs implements step 3: inspect each direct non-hidden
// subdirectory, matching basename then git origin against the union of
// all rosters.
func matchSubdirs(cwd string, rosters map[string]domain.RepoRoster, cache *GitCache) []Match {
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return nil
	}

	var matches []Match
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		subPath := filepath.Join(cwd, e.Name())

		repo := e.Name()
		found := matchesForRepo(repo, rosters)
		if len(found) == 0 {
			remote := cache.Lookup(subPath)
			if remote.Name != "" {
				repo = remote.Name
				found = matchesForRepo(repo, rosters)
			}
		}
		for _, m := range found {
			matches = append(matches, Match{TeamName: m.TeamName, RepoName: m.RepoName, SubDir: e.Name()})
		}
	}
	return matches
}
