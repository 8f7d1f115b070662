package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/marcus/tracer/internal/paths"
)

var testConfigPath string

// SetTestConfigPath overrides where Load/Save read and write config.json.
func SetTestConfigPath(path string) { testConfigPath = path }

// ResetTestConfigPath clears a prior SetTestConfigPath override.
func ResetTestConfigPath() { testConfigPath = "" }

func configPath() string {
	if testConfigPath != "" {
		return testConfigPath
	}
	return paths.ConfigPath()
}

// Load reads config.json from its default location.
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads and validates the config at path. A missing file yields
// Default() with no error (spec.md §7: state corruption / missing
// artefacts are treated as empty rather than fatal).
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for i := range cfg.Teams {
		cfg.Teams[i].InstanceURL = CanonicalURL(cfg.Teams[i].InstanceURL)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
