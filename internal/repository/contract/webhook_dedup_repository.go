package contract

import (
	"context"
	"time"
)

// WebhookDedupRepository remembers the reply sent for each inbound MessageSid
// so a redelivered webhook gets the same answer without re-running the router.
type WebhookDedupRepository interface {
	// Reserve claims messageSid for processing. It returns false when another
	// delivery already holds the claim or has finished. The claim lapses after ttl.
	Reserve(ctx context.Context, messageSid string, ttl time.Duration) (bool, error)

	// Lookup returns the stored reply and true once messageSid has been answered.
	// A reserved but unanswered id reports false.
	Lookup(ctx context.Context, messageSid string) (string, bool, error)

	Remember(ctx context.Context, messageSid string, reply string, ttl time.Duration) error
}
