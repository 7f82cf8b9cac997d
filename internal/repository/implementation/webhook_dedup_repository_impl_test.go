package implementation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a live Redis, e.g. REDIS_TEST_URL=redis://localhost:6379/15.
func TestWebhookDedupRepository_Redis(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	repo := NewWebhookDedupRepository(rdb)
	sid := "SM" + uuid.NewString()
	defer rdb.Del(ctx, webhookDedupKey(sid))

	_, seen, err := repo.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.False(t, seen)

	claimed, err := repo.Reserve(ctx, sid, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Reserve(ctx, sid, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, seen, err = repo.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.False(t, seen, "a pending claim is not a reply")

	require.NoError(t, repo.Remember(ctx, sid, "reply text", time.Minute))

	reply, seen, err := repo.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "reply text", reply)
}
