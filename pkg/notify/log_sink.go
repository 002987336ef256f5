package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to the structured log. Terminal sink for
// deployments without a delivery channel configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "notifications")}
}

// Notify logs the notification at a level matching its severity.
func (s *LogSink) Notify(ctx context.Context, req Request) error {
	level := slog.LevelInfo

	switch req.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}

	s.logger.Log(ctx, level, req.Summary,
		"job_id", req.JobID, "severity", string(req.Severity), "detail", req.Detail)

	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}
