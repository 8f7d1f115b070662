package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/marcus/tracer/internal/paths"
)

// Save writes cfg to config.json, preserving any top-level key this
// package doesn't manage (e.g. a future field written by a newer daemon
// version, or a hand-edited key) rather than clobbering it.
func Save(cfg *Config) error {
	return SaveTo(configPath(), cfg)
}

// SaveTo writes cfg to path, merging it over whatever unmanaged keys
// already exist there.
func SaveTo(path string, cfg *Config) error {
	merged := map[string]json.RawMessage{}
	if existing, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(existing, &merged)
	}

	managed, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	var managedMap map[string]json.RawMessage
	if err := json.Unmarshal(managed, &managedMap); err != nil {
		return fmt.Errorf("config: remarshal: %w", err)
	}
	for k, v := range managedMap {
		merged[k] = v
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal merged: %w", err)
	}
	out = append(out, '\n')

	return paths.AtomicWriteFile(path, out, 0o600)
}
