package notify

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const defaultStream = "jobflow:notifications"

// RedisSink appends notifications to a Redis stream. Consumers read the
// stream with consumer groups, so notifications survive restarts.
type RedisSink struct {
	client redis.UniversalClient
	stream string
}

// NewRedisSink creates a sink writing to the given stream. An empty stream
// name falls back to jobflow:notifications.
func NewRedisSink(client redis.UniversalClient, stream string) *RedisSink {
	if stream == "" {
		stream = defaultStream
	}

	return &RedisSink{client: client, stream: stream}
}

// NewRedisSinkFromAddr dials Redis and returns a sink.
func NewRedisSinkFromAddr(ctx context.Context, addr, password string, db int, stream string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisSink(client, stream), nil
}

// Notify appends the notification to the stream.
func (s *RedisSink) Notify(ctx context.Context, req Request) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"job_id":   req.JobID,
			"severity": string(req.Severity),
			"summary":  req.Summary,
			"detail":   req.Detail,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append notification to stream %s: %w", s.stream, err)
	}

	return nil
}

// Close closes the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
