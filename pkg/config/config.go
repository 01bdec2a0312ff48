package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/matcher"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnvironment returns the default configuration with environment
// overrides applied, for runs without a configuration file.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate checks a configuration for errors and normalizes it. Log sources
// are not required here, since the command line may supply them.
func Validate(cfg *Config) error {
	for i, src := range cfg.LogSources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("log_sources[%d]: empty source", i)
		}
	}

	if cfg.RuntimeVersion == "" {
		cfg.RuntimeVersion = matcher.VersionAuto
	}
	if _, err := matcher.NewVocabulary(cfg.RuntimeVersion); err != nil {
		return fmt.Errorf("runtime_version: %w", err)
	}

	if err := validateStartInstant(cfg); err != nil {
		return fmt.Errorf("start_instant: %w", err)
	}

	if err := validateThresholds(&cfg.Thresholds); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	if err := validateRules(&cfg.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey == "" {
		return errors.New("s3: secret_access_key is required with access_key_id")
	}
	cfg.S3.SecretAccessKey = expandEnvVar(cfg.S3.SecretAccessKey)

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateStartInstant(cfg *Config) error {
	cfg.startTime = time.Time{}
	if cfg.StartInstant == "" {
		return nil
	}
	t, err := ParseStartInstant(cfg.StartInstant)
	if err != nil {
		return err
	}
	cfg.startTime = t
	return nil
}

// ParseStartInstant reads a start instant in StartInstantLayout or RFC 3339.
func ParseStartInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(StartInstantLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q (want %s or RFC 3339)", s, StartInstantLayout)
	}
	return t, nil
}

func validateThresholds(th *ThresholdsConfig) error {
	if th.FirstTimestamp < 0 {
		return errors.New("first_timestamp must not be negative")
	}
	if th.MaxPause < 0 {
		return errors.New("max_pause must not be negative")
	}
	if th.MinThroughput < 0 || th.MinThroughput > 100 {
		return fmt.Errorf("min_throughput must be a percentage, got %v", th.MinThroughput)
	}
	return nil
}

func validateRules(rules *RulesConfig) error {
	rules.disabled = rules.disabled[:0]
	for i, name := range rules.Disable {
		code, err := finding.Parse(name)
		if err != nil {
			return fmt.Errorf("disable[%d]: %w", i, err)
		}
		rules.disabled = append(rules.disabled, code)
	}

	if rules.FailOn == "" {
		rules.FailOn = string(DefaultFailOn)
	}
	sev, err := finding.ParseSeverity(rules.FailOn)
	if err != nil {
		return fmt.Errorf("fail_on: %w", err)
	}
	rules.failOn = sev

	return nil
}

func validateLogging(lc *LoggingConfig) error {
	if lc.Level == "" {
		lc.Level = DefaultLogLevel
	}
	if _, err := zapcore.ParseLevel(lc.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}

	if lc.Format == "" {
		lc.Format = DefaultLogFormat
	}
	switch lc.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid format %q (must be console or json)", lc.Format)
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnFindings, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_findings, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnFindings
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
