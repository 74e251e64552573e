package notify

import (
	"fmt"

	"github.com/kiranshivaraju/jobmarket/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewDispatcher constructs the delivery backend named by cfg.Driver. client is
// only used by the redis driver.
func NewDispatcher(cfg config.NotifyConfig, client redis.Cmdable) (Dispatcher, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisStreamDispatcher(client, cfg.Stream, cfg.StreamMaxLen), nil
	case "webhook":
		return NewWebhookDispatcher(cfg.Webhook.URL, cfg.Webhook.Username, cfg.Webhook.Password, cfg.Webhook.Timeout), nil
	case "log":
		return NewLogDispatcher(nil), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q: must be one of redis, webhook, log", cfg.Driver)
	}
}
