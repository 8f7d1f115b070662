package repomatch

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/marcus/tracer/internal/domain"
)

// GitCache memoizes the git-origin lookup per cwd, per spec.md §4.4's
// "matchRepo is a function of its inputs only (any git lookup it
// performs must be memoized in gitCache)" property. Keys are hashed with
// xxhash, the fast non-cryptographic hash the teacher's go.mod already
// carries for this kind of memoization key.
type GitCache struct {
	mu      sync.RWMutex
	entries map[uint64]domain.GitRemote
}

// NewGitCache returns an empty cache.
func NewGitCache() *GitCache {
	return &GitCache{entries: make(map[uint64]domain.GitRemote)}
}

func cacheKey(cwd string) uint64 {
	return xxhash.Sum64String(cwd)
}

// Lookup resolves cwd's git origin remote, using the cache if present.
// A cwd with no git origin (or no git at all) caches an empty GitRemote
// so repeated calls against a non-repo don't repeatedly shell out.
func (c *GitCache) Lookup(cwd string) domain.GitRemote {
	key := cacheKey(cwd)

	c.mu.RLock()
	if v, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	remote := resolveGitRemote(cwd)

	c.mu.Lock()
	c.entries[key] = remote
	c.mu.Unlock()

	return remote
}

// Snapshot returns a copy of the cache's entries, keyed by the original
// cwd strings rather than their hashes, for persistence.
func (c *GitCache) Snapshot(cwds map[string]struct{}) map[string]domain.GitRemote {
	out := make(map[string]domain.GitRemote, len(cwds))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for cwd := range cwds {
		if v, ok := c.entries[cacheKey(cwd)]; ok {
			out[cwd] = v
		}
	}
	return out
}

// Seed preloads entries, used when restoring a persisted cache.json.
func (c *GitCache) Seed(byCWD map[string]domain.GitRemote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cwd, v := range byCWD {
		c.entries[cacheKey(cwd)] = v
	}
}

func resolveGitRemote(cwd string) domain.GitRemote {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "--no-optional-locks", "remote", "get-url", "origin")
	cmd.Dir = cwd
	output, err := cmd.Output()
	if err != nil {
		return domain.GitRemote{}
	}
	remoteURL := strings.TrimSpace(string(output))
	return domain.GitRemote{Name: extractRepoName(remoteURL), RemoteURL: remoteURL, FetchedAt: time.Now()}
}
