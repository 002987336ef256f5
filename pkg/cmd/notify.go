package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sfgfab/jobflow/pkg/notify"
)

// NewTerminalSink picks where delivered notifications land. A Redis address
// routes them to a Redis stream; otherwise they go to the structured log.
func NewTerminalSink(ctx context.Context, logger *slog.Logger, redisAddr, redisPassword string, redisDB int, stream string) (notify.Sink, error) {
	if redisAddr != "" {
		sink, err := notify.NewRedisSinkFromAddr(ctx, redisAddr, redisPassword, redisDB, stream)
		if err != nil {
			return nil, fmt.Errorf("failed to connect notification sink to redis: %w", err)
		}

		return sink, nil
	}

	return notify.NewLogSink(logger), nil
}
