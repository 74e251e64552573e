package middleware

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

type contextKey string

const (
	actorKey     contextKey = "actor"
	keyPrefixKey contextKey = "key_prefix"
)

// SetActor stores the authenticated caller in ctx.
func SetActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the authenticated caller set by Authenticate.
func GetActor(r *http.Request) (models.Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(models.Actor)
	return actor, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// SetKeyPrefix is exported for tests that exercise RateLimit without Authenticate.
func SetKeyPrefix(ctx context.Context, prefix string) context.Context {
	return setKeyPrefix(ctx, prefix)
}
