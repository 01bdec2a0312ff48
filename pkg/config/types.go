// Package config provides configuration loading and validation for gcscan.
package config

import (
	"time"

	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/parser"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	LogSources []string `yaml:"log_sources"`

	// RuntimeVersion selects the trigger vocabulary: auto, jdk6, jdk7,
	// jdk8 or unified.
	RuntimeVersion string `yaml:"runtime_version"`

	// StartInstant is the wall-clock time the runtime started at, used to
	// place datestamp-only lines. See StartInstantLayout.
	StartInstant string `yaml:"start_instant,omitempty"`

	// JVMOptions is the declared runtime command line. Options printed in
	// the log header take precedence.
	JVMOptions string `yaml:"jvm_options,omitempty"`

	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Rules      RulesConfig      `yaml:"rules"`
	S3         parser.S3Config  `yaml:"s3,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`

	// MetricsFile, when set, receives the run's Prometheus metrics in the
	// text exposition format.
	MetricsFile string `yaml:"metrics_file,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// startTime is StartInstant parsed (populated during validation).
	startTime time.Time
}

// StartTime returns the parsed start instant, or the zero time when none
// was configured.
func (c *Config) StartTime() time.Time {
	return c.startTime
}

// ThresholdsConfig holds the limits of the threshold rules. A zero value
// disables the rule.
type ThresholdsConfig struct {
	// FirstTimestamp flags captures whose first event comes later than this
	// after runtime start.
	FirstTimestamp time.Duration `yaml:"first_timestamp"`

	// MaxPause flags any blocking collection longer than this.
	MaxPause time.Duration `yaml:"max_pause"`

	// MinThroughput is the lowest acceptable share of wall-clock time spent
	// outside collection pauses, in percent.
	MinThroughput float64 `yaml:"min_throughput"`
}

// RulesConfig selects which analysis rules run.
type RulesConfig struct {
	// Disable lists finding codes that are never reported.
	Disable []string `yaml:"disable,omitempty"`

	// Parallel evaluates rules concurrently.
	Parallel bool `yaml:"parallel,omitempty"`

	// FailOn is the lowest finding severity that makes analyze exit
	// non-zero. Defaults to "error".
	FailOn string `yaml:"fail_on,omitempty"`

	disabled []finding.Code
	failOn   finding.Severity
}

// DisabledCodes returns the parsed Disable list.
func (r *RulesConfig) DisabledCodes() []finding.Code {
	return r.disabled
}

// FailSeverity returns the parsed FailOn severity.
func (r *RulesConfig) FailSeverity() finding.Severity {
	return r.failOn
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFindings fires only when findings are reported (default).
	WebhookTriggerOnFindings WebhookTrigger = "on_findings"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_findings" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
