package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStreamDispatcher appends each event to a Redis stream read by the
// mailer.
type RedisStreamDispatcher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamDispatcher creates a dispatcher writing to stream. maxLen > 0
// trims the stream approximately to that length.
func NewRedisStreamDispatcher(client redis.Cmdable, stream string, maxLen int64) *RedisStreamDispatcher {
	return &RedisStreamDispatcher{client: client, stream: stream, maxLen: maxLen}
}

func (d *RedisStreamDispatcher) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"kind":    string(event.Kind),
			"to":      event.RecipientAddress,
			"payload": payload,
		},
	}
	if d.maxLen > 0 {
		args.MaxLen = d.maxLen
		args.Approx = true
	}

	if err := d.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", d.stream, err)
	}
	return nil
}
