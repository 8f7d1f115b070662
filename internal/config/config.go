// Package config loads and saves the daemon's ~/.overlap/config.json
// (spec.md §6), preserving any keys it doesn't itself manage the way the
// teacher's config package round-trips unknown top-level keys on save.
package config

import (
	"net/url"
	"strings"
	"time"
)

// Team is one configured remote team instance.
type Team struct {
	Name        string `json:"name"`
	InstanceURL string `json:"instance_url"`
	UserToken   string `json:"user_token"`
	UserID      string `json:"user_id"`
}

// TracerConfig holds the daemon's own tunables.
type TracerConfig struct {
	BatchIntervalMS    int `json:"batch_interval_ms"`
	MaxBatchSize       int `json:"max_batch_size"`
	RepoSyncIntervalMS int `json:"repo_sync_interval_ms"`
}

// Config is the root of config.json.
type Config struct {
	Teams  []Team       `json:"teams"`
	Tracer TracerConfig `json:"tracer"`
}

const (
	defaultBatchIntervalMS    = 2000
	defaultMaxBatchSize       = 25
	defaultRepoSyncIntervalMS = 5 * 60 * 1000
	serverMaxBatchSize        = 100
)

// Default returns the configuration used when no config.json exists yet.
func Default() *Config {
	return &Config{
		Teams: nil,
		Tracer: TracerConfig{
			BatchIntervalMS:    defaultBatchIntervalMS,
			MaxBatchSize:       defaultMaxBatchSize,
			RepoSyncIntervalMS: defaultRepoSyncIntervalMS,
		},
	}
}

// Validate clamps out-of-range values rather than rejecting the config
// outright, matching the teacher's Validate on its own config struct.
func (c *Config) Validate() error {
	if c.Tracer.BatchIntervalMS <= 0 {
		c.Tracer.BatchIntervalMS = defaultBatchIntervalMS
	}
	if c.Tracer.MaxBatchSize <= 0 {
		c.Tracer.MaxBatchSize = defaultMaxBatchSize
	}
	if c.Tracer.MaxBatchSize > serverMaxBatchSize {
		c.Tracer.MaxBatchSize = serverMaxBatchSize
	}
	if c.Tracer.RepoSyncIntervalMS <= 0 {
		c.Tracer.RepoSyncIntervalMS = defaultRepoSyncIntervalMS
	}
	return nil
}

// BatchInterval is Tracer.BatchIntervalMS as a time.Duration.
func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.Tracer.BatchIntervalMS) * time.Millisecond
}

// CanonicalURL lowercases the scheme/host and strips a trailing slash, so
// two configured teams whose instance_url differ only by case or trailing
// slash compare equal (spec.md §8's URL-canonicalization property). A
// malformed URL is returned with only the trailing slash stripped.
func CanonicalURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return strings.TrimRight(parsed.String(), "/")
}
