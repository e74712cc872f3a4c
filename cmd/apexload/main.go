package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/apexload/internal/config"
	"github.com/torosent/apexload/internal/logging"
	"github.com/torosent/apexload/internal/output"
	"github.com/torosent/apexload/internal/prommetrics"
	"github.com/torosent/apexload/internal/runner"
	"github.com/torosent/apexload/internal/threshold"
	"github.com/torosent/apexload/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	opts := []runner.Option{runner.WithLogger(logger)}
	if provider.Enabled() {
		opts = append(opts, runner.WithTracer(provider.Tracer(), provider.ShouldPropagate()))
	}
	r := runner.New(opts...)

	if cfg.Output == config.OutputText {
		r.Subscribe(output.NewProgressReporter(progressInterval, stdout))
	}
	if cfg.LogErrors {
		r.Subscribe(logging.NewFailureLogger(logger))
	}
	if cfg.MetricsAddr != "" {
		exporter := prommetrics.NewExporter()
		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()
		if _, err := exporter.Serve(serveCtx, cfg.MetricsAddr, logger); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		r.Subscribe(exporter)
	}

	if err := r.Start(ctx, cfg.RunnerConfig()); err != nil {
		return err
	}

	stats := r.Stats()
	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	report := output.Report{
		SessionID:  r.SessionID(),
		Target:     cfg.TargetURL,
		Method:     cfg.Method,
		Status:     r.Status(),
		Stats:      stats,
		Thresholds: results,
	}
	if err := output.Write(stdout, cfg.Output, report); err != nil {
		return err
	}

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	if stats.ErrorCount > 0 {
		return fmt.Errorf("%d requests failed", stats.ErrorCount)
	}
	return nil
}
