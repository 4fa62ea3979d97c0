package audit

import (
	"context"
	"log/slog"
)

// LogSink writes one warn-level structured record per rejection. It is the
// zero-infrastructure sink: useful on its own for local visibility, and as
// the fallback alongside a durable sink.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Rejected implements Sink.
func (s *LogSink) Rejected(ctx context.Context, ev Event) {
	attrs := []slog.Attr{
		slog.String("event_id", ev.ID),
		slog.String("code", string(ev.Code)),
		slog.Int64("size", ev.Size),
	}
	if ev.Path != "" {
		attrs = append(attrs, slog.String("path", ev.Path))
	}
	if ev.Key != "" {
		attrs = append(attrs, slog.String("key", ev.Key))
	}
	if ev.Depth > 0 {
		attrs = append(attrs, slog.Int("depth", ev.Depth))
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "payload rejected", attrs...)
}
