package logging

import (
	"go.uber.org/zap"

	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/runner"
)

// FailureLogger logs every failed request at warn level and test-wide
// errors at error level.
type FailureLogger struct {
	runner.ObserverFuncs
	logger *zap.Logger
}

func NewFailureLogger(logger *zap.Logger) *FailureLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &FailureLogger{logger: logger.With(zap.String("component", "failures"))}
	f.ObserverFuncs = runner.ObserverFuncs{
		Result: f.logResult,
		Error:  f.logError,
	}
	return f
}

func (f *FailureLogger) logResult(res metrics.RequestResult, _ metrics.Stats) {
	if res.Success {
		return
	}
	f.logger.Warn("request failed",
		zap.Int64("sequence", res.Sequence),
		zap.Int("status", res.StatusCode),
		zap.String("kind", res.ErrorKind),
		zap.String("error", res.Error),
		zap.Duration("latency", res.Latency),
	)
}

func (f *FailureLogger) logError(err error) {
	f.logger.Error("load test error", zap.Error(err))
}
