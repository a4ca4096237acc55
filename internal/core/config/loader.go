package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Retry.ReloadDelaysMS) == 0 {
		cfg.Retry.ReloadDelaysMS = []int{1000, 2000, 5000}
	}
	if cfg.Retry.MinTimeBetweenResetsMS == 0 {
		cfg.Retry.MinTimeBetweenResetsMS = 30_000
	}
	if len(cfg.Lazy.DelaysMS) == 0 {
		cfg.Lazy.DelaysMS = []int{500, 1000}
	}
	if cfg.Fallback.Selector == "" {
		cfg.Fallback.Selector = "body"
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 12
	}
	if cfg.Beacon.TimeoutMS == 0 {
		cfg.Beacon.TimeoutMS = 10_000
	}
	if cfg.Poll.IntervalMS == 0 {
		cfg.Poll.IntervalMS = 60_000
	}
}

// BoolOr resolves an optional YAML bool against its default. Flags that
// default to true cannot use the zero value, so they are pointers in the
// config structs.
func BoolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
