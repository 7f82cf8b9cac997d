package implementation

import (
	"context"
	"errors"
	"time"

	"whatsapp-orderbot-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	webhookDedupKeyPrefix = "orderbot:webhook:reply:"

	// stored while the first delivery is still being handled; never a valid reply
	webhookPendingMarker = "\x00pending"
)

type WebhookDedupRepositoryImpl struct {
	rdb *redis.Client
}

func NewWebhookDedupRepository(rdb *redis.Client) contract.WebhookDedupRepository {
	return &WebhookDedupRepositoryImpl{rdb: rdb}
}

func webhookDedupKey(messageSid string) string {
	return webhookDedupKeyPrefix + messageSid
}

func (r *WebhookDedupRepositoryImpl) Reserve(ctx context.Context, messageSid string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, webhookDedupKey(messageSid), webhookPendingMarker, ttl).Result()
}

func (r *WebhookDedupRepositoryImpl) Lookup(ctx context.Context, messageSid string) (string, bool, error) {
	reply, err := r.rdb.Get(ctx, webhookDedupKey(messageSid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if reply == webhookPendingMarker {
		return "", false, nil
	}
	return reply, true, nil
}

func (r *WebhookDedupRepositoryImpl) Remember(ctx context.Context, messageSid string, reply string, ttl time.Duration) error {
	return r.rdb.Set(ctx, webhookDedupKey(messageSid), reply, ttl).Err()
}
