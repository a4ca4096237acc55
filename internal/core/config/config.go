package config

import (
	"time"

	redisstore "github.com/vietddude/staleguard/internal/infra/store/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Retry    RetryConfig    `yaml:"retry"`
	Lazy     LazyConfig     `yaml:"lazy"`
	Fallback FallbackConfig `yaml:"fallback"`
	Beacon   BeaconConfig   `yaml:"beacon"`
	Poll     PollConfig     `yaml:"poll"`
	Page     PageConfig     `yaml:"page"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PageConfig describes the supervised page when no bridge is injected by the
// host.
type PageConfig struct {
	URL string `yaml:"url"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SessionConfig selects the session store backend. An empty Redis URL keeps
// records in process memory.
type SessionConfig struct {
	Redis    redisstore.Config `yaml:"redis"`
	TTLHours int               `yaml:"ttl_hours"`
}

// RetryConfig holds the reload schedule. Delays and intervals are plain
// milliseconds in the file.
type RetryConfig struct {
	ReloadDelaysMS         []int    `yaml:"reload_delays_ms"`
	UseRetryID             *bool    `yaml:"use_retry_id"`
	EnableRetryReset       *bool    `yaml:"enable_retry_reset"`
	MinTimeBetweenResetsMS int      `yaml:"min_time_between_resets_ms"`
	IgnoreMessages         []string `yaml:"ignore_messages"`
}

// LazyConfig holds the in-page load retry schedule.
type LazyConfig struct {
	DelaysMS        []int `yaml:"delays_ms"`
	ReloadOnFailure bool  `yaml:"reload_on_failure"`
}

// FallbackConfig holds the static recovery markup.
type FallbackConfig struct {
	HTML     string `yaml:"html"`
	Selector string `yaml:"selector"`
}

// BeaconConfig holds the exhaustion reporting endpoint.
type BeaconConfig struct {
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// PollConfig holds version polling settings.
type PollConfig struct {
	URL        string `yaml:"url"`
	IntervalMS int    `yaml:"interval_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Durations converts a millisecond list into durations.
func Durations(ms []int) []time.Duration {
	if len(ms) == 0 {
		return nil
	}
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	return out
}
