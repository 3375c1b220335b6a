package lock

import (
	"context"
	"fmt"
	"time"

	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	"github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 50 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token, so an
// expired holder cannot remove a lock taken over by another run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseFunc gives up a held lock.
type ReleaseFunc func(ctx context.Context) error

// QuoteLocker serialises match runs per quote across service instances.
type QuoteLocker struct {
	client        *redis.Client
	ttl           time.Duration
	wait          time.Duration
	retryInterval time.Duration
}

func NewQuoteLocker(client *redis.Client, ttl, wait time.Duration) *QuoteLocker {
	return &QuoteLocker{
		client:        client,
		ttl:           ttl,
		wait:          wait,
		retryInterval: defaultRetryInterval,
	}
}

// NewRedisClient connects to the server at redisURL and verifies it answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func quoteLockKey(quoteID int64) string {
	return fmt.Sprintf("lendmatch:match-lock:quote:%d", quoteID)
}

// Lock blocks until the quote's lock is acquired, the configured wait
// elapses (types.ErrMatchInProgress) or ctx is done.
func (l *QuoteLocker) Lock(ctx context.Context, quoteID int64) (ReleaseFunc, error) {
	key := quoteLockKey(quoteID)
	token := utils.NanoID()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire match lock for quote %d: %w", quoteID, err)
		}

		if acquired {
			return func(ctx context.Context) error {
				err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
				return utils.ErrorWrapOrNil(err, fmt.Sprintf("failed to release match lock for quote %d", quoteID))
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, types.ErrMatchInProgress
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
