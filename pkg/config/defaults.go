package config

import (
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/matcher"
)

// Default values for configuration.
const (
	DefaultFirstTimestamp = time.Hour
	DefaultWebhookTimeout = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultFailOn         = finding.SeverityError
)

// StartInstantLayout is the datestamp layout the runtime writes, and the
// layout start_instant is read with. RFC 3339 is accepted as well.
const StartInstantLayout = "2006-01-02T15:04:05.000-0700"

// Environment variable names.
const (
	EnvLogSources     = "GCSCAN_LOG_SOURCES"
	EnvRuntimeVersion = "GCSCAN_RUNTIME_VERSION"
	EnvLogLevel       = "GCSCAN_LOG_LEVEL"
	EnvStartInstant   = "GCSCAN_START_INSTANT"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources:     []string{},
		RuntimeVersion: matcher.VersionAuto,
		Thresholds: ThresholdsConfig{
			FirstTimestamp: DefaultFirstTimestamp,
		},
		Rules: RulesConfig{
			FailOn: string(DefaultFailOn),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	// Comma separated, replacing the file's list
	if sources := os.Getenv(EnvLogSources); sources != "" {
		c.LogSources = c.LogSources[:0]
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.LogSources = append(c.LogSources, s)
			}
		}
	}
	if version := os.Getenv(EnvRuntimeVersion); version != "" {
		c.RuntimeVersion = version
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if start := os.Getenv(EnvStartInstant); start != "" {
		c.StartInstant = start
	}
}
