package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// pendingReply marks a MessageSid that is reserved but not yet answered.
type pendingReply struct{}

// WebhookDedupRepository is the in-process fallback used when Redis is unreachable.
type WebhookDedupRepository struct {
	cache *cache.Cache
}

func NewWebhookDedupRepository(defaultTTL time.Duration) *WebhookDedupRepository {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &WebhookDedupRepository{
		cache: cache.New(defaultTTL, 10*time.Minute),
	}
}

func (r *WebhookDedupRepository) Reserve(ctx context.Context, messageSid string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	// Add fails when the key exists, which makes the claim atomic.
	return r.cache.Add(messageSid, pendingReply{}, ttl) == nil, nil
}

func (r *WebhookDedupRepository) Lookup(ctx context.Context, messageSid string) (string, bool, error) {
	val, found := r.cache.Get(messageSid)
	if !found {
		return "", false, nil
	}
	reply, ok := val.(string)
	return reply, ok, nil
}

func (r *WebhookDedupRepository) Remember(ctx context.Context, messageSid string, reply string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	r.cache.Set(messageSid, reply, ttl)
	return nil
}
