package notify

import (
	"context"

	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

// Sink receives user-visible notifications. Implementations are
// fire-and-forget; callers never branch on delivery.
type Sink interface {
	Success(ctx context.Context, title, detail string)
	Error(ctx context.Context, title, detail string)
	Warning(ctx context.Context, title, detail string)
	Info(ctx context.Context, title, detail string)
}

// NopSink is the default when no notification channel is wired.
type NopSink struct{}

func (NopSink) Success(context.Context, string, string) {}
func (NopSink) Error(context.Context, string, string)   {}
func (NopSink) Warning(context.Context, string, string) {}
func (NopSink) Info(context.Context, string, string)    {}

// LogSink mirrors notifications into the structured log.
type LogSink struct {
	Logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{Logg: logg}
}

func (s *LogSink) Success(ctx context.Context, title, detail string) {
	s.emit(ctx, "success", title, detail)
}

func (s *LogSink) Error(ctx context.Context, title, detail string) {
	s.emit(ctx, "error", title, detail)
}

func (s *LogSink) Warning(ctx context.Context, title, detail string) {
	s.emit(ctx, "warning", title, detail)
}

func (s *LogSink) Info(ctx context.Context, title, detail string) {
	s.emit(ctx, "info", title, detail)
}

func (s *LogSink) emit(ctx context.Context, kind, title, detail string) {
	if s == nil || s.Logg == nil {
		return
	}
	ctx = s.Logg.WithFields(ctx, map[string]any{
		"notification": kind,
		"title":        title,
		"detail":       detail,
	})
	s.Logg.Info(ctx, "notification")
}

// OrDefault returns the sink, or a no-op when nil was injected.
func OrDefault(sink Sink) Sink {
	if sink == nil {
		return NopSink{}
	}
	return sink
}
