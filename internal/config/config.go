package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/torosent/apexload/internal/runner"
	"github.com/torosent/apexload/internal/threshold"
	"github.com/torosent/apexload/internal/tracing"
)

// Output formats accepted by the output key.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Log formats accepted by the log_format key.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config is the complete CLI configuration for one load test.
type Config struct {
	TargetURL   string            `mapstructure:"target"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	BodyFile    string            `mapstructure:"body_file"`
	Concurrency int               `mapstructure:"concurrency"`
	Total       int               `mapstructure:"total"`
	RampUp      time.Duration     `mapstructure:"ramp_up"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	ThinkTime   time.Duration     `mapstructure:"think_time"`
	Output      string            `mapstructure:"output"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	LogErrors   bool              `mapstructure:"log_errors"`
	MetricsAddr string            `mapstructure:"metrics_addr"`
	Thresholds  []string          `mapstructure:"thresholds"`
	Tracing     tracing.Config    `mapstructure:"tracing"`
	ConfigFile  string            `mapstructure:"-"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate reports every problem at once. Values that are merely outside
// the runner's range are not errors; the runner clamps them.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute http or https URL", target))
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Total < 1 {
		issues = append(issues, "total must be >= 1")
	}
	if c.RampUp < 0 {
		issues = append(issues, "ramp_up must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.ThinkTime < 0 {
		issues = append(issues, "think_time must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file are mutually exclusive")
	}

	switch strings.ToLower(c.Output) {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be one of text, json, yaml (got %q)", c.Output))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", LogFormatConsole, LogFormatJSON:
	default:
		issues = append(issues, fmt.Sprintf("log_format must be console or json (got %q)", c.LogFormat))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing.sample_rate must be between 0.0 and 1.0")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing.protocol must be grpc or http (got %q)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// RunnerConfig converts the CLI configuration to the runner's input.
func (c Config) RunnerConfig() runner.Config {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return runner.Config{
		URL:           c.TargetURL,
		Method:        c.Method,
		Headers:       headers,
		Body:          c.Body,
		BodyFile:      c.BodyFile,
		Concurrency:   c.Concurrency,
		TotalRequests: c.Total,
		RampUp:        c.RampUp,
		Timeout:       c.Timeout,
		ThinkTime:     c.ThinkTime,
	}
}
