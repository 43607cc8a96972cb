package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
	"github.com/redis/rueidis"
)

const (
	defaultWriteTimeout = 2 * time.Second
	dialTimeout         = 5 * time.Second
)

// RedisStreamSink appends events to a Redis stream with XADD. A failed append
// is logged and dropped.
type RedisStreamSink struct {
	client  rueidis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.BILogger = (*RedisStreamSink)(nil)

func NewRedisStreamSink(cfg config.EventsConfig, logger *slog.Logger) (*RedisStreamSink, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:   []string{cfg.RedisAddress},
		MaxFlushDelay: 100 * time.Microsecond,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	logger.Info("bi events streaming to redis", "address", cfg.RedisAddress, "stream", cfg.Stream)
	return &RedisStreamSink{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		timeout: defaultWriteTimeout,
		logger:  logger,
	}, nil
}

func (s *RedisStreamSink) Write(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode bi event", "event", event.EventName(), "error", err)
		return
	}

	// The caller's cancellation must not drop an event that is already settled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.client.Do(ctx, s.xadd(event.EventName(), string(payload))).Error(); err != nil {
		s.logger.Error("failed to append bi event",
			"event", event.EventName(),
			"stream", s.stream,
			"error", err,
		)
	}
}

func (s *RedisStreamSink) xadd(name, payload string) rueidis.Completed {
	b := s.client.B().Xadd().Key(s.stream)
	if s.maxLen > 0 {
		return b.Maxlen().Almost().Threshold(strconv.FormatInt(s.maxLen, 10)).
			Id("*").FieldValue().FieldValue("name", name).FieldValue("payload", payload).Build()
	}
	return b.Id("*").FieldValue().FieldValue("name", name).FieldValue("payload", payload).Build()
}

func (s *RedisStreamSink) Close() {
	s.client.Close()
}
