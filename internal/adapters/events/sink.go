// Package events delivers BI events to their sinks.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

// LogSink writes every event as one structured log record.
type LogSink struct {
	logger *slog.Logger
}

var _ ports.BILogger = (*LogSink)(nil)

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode bi event", "event", event.EventName(), "error", err)
		return
	}
	attrs := []any{"event", event.EventName(), "payload", json.RawMessage(payload)}
	if sessionID := domain.SessionIDFromContext(ctx); sessionID != "" {
		attrs = append(attrs, "session_id", sessionID)
	}
	s.logger.InfoContext(ctx, "bi event", attrs...)
}

// Multi fans an event out to several sinks in order.
type Multi []ports.BILogger

func (m Multi) Write(ctx context.Context, event domain.Event) {
	for _, sink := range m {
		sink.Write(ctx, event)
	}
}
