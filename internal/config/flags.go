package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apexload",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request
	flags.String("target", "", "Target URL to load test")
	flags.String("method", DefaultMethod, "HTTP method to use")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")

	// Load shape
	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of concurrent workers (1-1000)")
	flags.IntP("total", "t", DefaultTotal, "Total number of requests to send (1-100000)")
	flags.Duration("ramp-up", 0, "Window over which worker starts are staggered (e.g. 10s)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Duration("think-time", 0, "Pause between a worker's consecutive requests")

	// Output
	flags.StringP("output", "o", OutputText, "Report format: text, json or yaml")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", LogFormatConsole, "Log encoding: console or json")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Thresholds
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'latency:p95 < 500')")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", true, "Inject W3C traceparent headers into requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides copies every flag the user set onto cfg, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	err := errors.Join(
		override(fs, "target", fs.GetString, trimmedInto(&cfg.TargetURL)),
		override(fs, "method", fs.GetString, trimmedInto(&cfg.Method)),
		override(fs, "body", fs.GetString, func(v string) { cfg.Body, cfg.BodyFile = v, "" }),
		override(fs, "body-file", fs.GetString, func(v string) { cfg.Body, cfg.BodyFile = "", v }),
		override(fs, "concurrency", fs.GetInt, func(v int) { cfg.Concurrency = v }),
		override(fs, "total", fs.GetInt, func(v int) { cfg.Total = v }),
		override(fs, "ramp-up", fs.GetDuration, func(v time.Duration) { cfg.RampUp = v }),
		override(fs, "timeout", fs.GetDuration, func(v time.Duration) { cfg.Timeout = v }),
		override(fs, "think-time", fs.GetDuration, func(v time.Duration) { cfg.ThinkTime = v }),
		override(fs, "output", fs.GetString, trimmedInto(&cfg.Output)),
		override(fs, "log-level", fs.GetString, trimmedInto(&cfg.LogLevel)),
		override(fs, "log-format", fs.GetString, trimmedInto(&cfg.LogFormat)),
		override(fs, "log-errors", fs.GetBool, func(v bool) { cfg.LogErrors = v }),
		override(fs, "metrics-addr", fs.GetString, trimmedInto(&cfg.MetricsAddr)),
		override(fs, "threshold", fs.GetStringSlice, func(v []string) { cfg.Thresholds = v }),
		override(fs, "tracing-endpoint", fs.GetString, trimmedInto(&cfg.Tracing.Endpoint)),
		override(fs, "tracing-protocol", fs.GetString, func(v string) { cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(v)) }),
		override(fs, "tracing-service-name", fs.GetString, trimmedInto(&cfg.Tracing.ServiceName)),
		override(fs, "tracing-sample-rate", fs.GetFloat64, func(v float64) { cfg.Tracing.SampleRate = v }),
		override(fs, "tracing-insecure", fs.GetBool, func(v bool) { cfg.Tracing.Insecure = v }),
		override(fs, "tracing-propagate", fs.GetBool, func(v bool) { cfg.Tracing.Propagate = &v }),
	)
	if err != nil {
		return err
	}

	headers, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	return mergeHeaderFlags(cfg, headers)
}

// override calls set with the flag's value when the user set the flag.
func override[T any](fs *pflag.FlagSet, name string, get func(string) (T, error), set func(T)) error {
	if !fs.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	set(v)
	return nil
}

// mergeHeaderFlags adds key=value entries on top of headers from the file.
func mergeHeaderFlags(cfg *Config, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return fmt.Errorf("header must be in key=value format: %s", entry)
		}
		key = http.CanonicalHeaderKey(strings.TrimSpace(key))
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		cfg.Headers[key] = strings.TrimSpace(value)
	}
	return nil
}
