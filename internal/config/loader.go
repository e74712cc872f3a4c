package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/apexload/internal/tracing"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultMethod      = http.MethodGet
	DefaultConcurrency = 1
	DefaultTotal       = 100
	DefaultTimeout     = 30 * time.Second
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Method:      DefaultMethod,
		Headers:     map[string]string{},
		Concurrency: DefaultConcurrency,
		Total:       DefaultTotal,
		Timeout:     DefaultTimeout,
		Output:      OutputText,
		LogLevel:    "info",
		LogFormat:   LogFormatConsole,
		Tracing:     tracing.Config{Protocol: "grpc", SampleRate: 1.0},
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	return errors.Join(
		fromSetting(settings, asString, trimmedInto(&cfg.TargetURL), "target"),
		fromSetting(settings, asString, func(v string) {
			if v != "" {
				cfg.Method = v
			}
		}, "method"),
		fromSetting(settings, asStringMap, func(hdrs map[string]string) {
			if cfg.Headers == nil {
				cfg.Headers = map[string]string{}
			}
			for k, v := range hdrs {
				cfg.Headers[http.CanonicalHeaderKey(k)] = v
			}
		}, "headers"),
		fromSetting(settings, asString, func(v string) { cfg.Body = v }, "body"),
		fromSetting(settings, asString, func(v string) { cfg.BodyFile = v }, "body_file", "bodyfile", "body-file"),
		fromSetting(settings, asInt, func(v int) { cfg.Concurrency = v }, "concurrency"),
		fromSetting(settings, asInt, func(v int) { cfg.Total = v }, "total", "total_requests", "totalrequests"),
		fromSetting(settings, durationIn(time.Second), func(v time.Duration) { cfg.RampUp = v }, "ramp_up", "rampup", "ramp-up"),
		fromSetting(settings, durationIn(time.Millisecond), func(v time.Duration) { cfg.Timeout = v }, "timeout"),
		fromSetting(settings, durationIn(time.Millisecond), func(v time.Duration) { cfg.ThinkTime = v }, "think_time", "thinktime", "think-time"),
		fromSetting(settings, asString, func(v string) { cfg.Output = v }, "output"),
		fromSetting(settings, asString, trimmedInto(&cfg.LogLevel), "log_level", "loglevel", "log-level"),
		fromSetting(settings, asString, func(v string) { cfg.LogFormat = v }, "log_format", "logformat", "log-format"),
		fromSetting(settings, asBool, func(v bool) { cfg.LogErrors = v }, "log_errors", "logerrors", "log-errors"),
		fromSetting(settings, asString, trimmedInto(&cfg.MetricsAddr), "metrics_addr", "metricsaddr", "metrics-addr"),
		fromSetting(settings, asStringSlice, func(v []string) { cfg.Thresholds = v }, "thresholds"),
		applyTracingSettings(&cfg.Tracing, settings),
	)
}

// fromSetting converts the first matching key with conv and hands the
// result to set. Errors are prefixed with the canonical key name.
func fromSetting[T any](settings map[string]interface{}, conv func(interface{}) (T, error), set func(T), keys ...string) error {
	raw, ok := lookupSetting(settings, keys...)
	if !ok {
		return nil
	}
	v, err := conv(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", keys[0], err)
	}
	set(v)
	return nil
}

func trimmedInto(dst *string) func(string) {
	return func(v string) { *dst = strings.TrimSpace(v) }
}

func durationIn(unit time.Duration) func(interface{}) (time.Duration, error) {
	return func(v interface{}) (time.Duration, error) { return asDuration(v, unit) }
}

// applyTracingSettings reads the nested tracing section, if any.
func applyTracingSettings(tc *tracing.Config, settings map[string]interface{}) error {
	raw, ok := lookupSetting(settings, "tracing")
	if !ok || raw == nil {
		return nil
	}
	m, err := toStringKeyMap(raw)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	err = errors.Join(
		fromSetting(m, asString, trimmedInto(&tc.Endpoint), "endpoint"),
		fromSetting(m, asString, func(v string) { tc.Protocol = strings.ToLower(strings.TrimSpace(v)) }, "protocol"),
		fromSetting(m, asString, trimmedInto(&tc.ServiceName), "service_name", "servicename", "service-name"),
		fromSetting(m, asFloat64, func(v float64) { tc.SampleRate = v }, "sample_rate", "samplerate", "sample-rate"),
		fromSetting(m, asBool, func(v bool) { tc.Insecure = v }, "insecure"),
		fromSetting(m, asBool, func(v bool) { tc.Propagate = &v }, "propagate"),
	)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}
