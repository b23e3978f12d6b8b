// Package tapguard suppresses repeated taps of the same card within a short
// window. A reader that double-fires, or a passenger who taps twice in quick
// succession, would otherwise start and immediately end a journey.
package tapguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "smartfare:tap:"

// Guard records the most recent tap of each account in Redis.
type Guard struct {
	client redis.UniversalClient
	window time.Duration
}

// New returns a Guard that refuses a second tap within window.
func New(client redis.UniversalClient, window time.Duration) *Guard {
	return &Guard{client: client, window: window}
}

// NewClient connects to the Redis server at addr.
func NewClient(addr string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Acquire reports whether accountID may tap now. The first call in a window
// wins; later calls return false until the key expires.
func (g *Guard) Acquire(ctx context.Context, accountID uuid.UUID) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+accountID.String(), time.Now().UnixMilli(), g.window).Result()
	if err != nil {
		return false, fmt.Errorf("tapguard.Guard.Acquire: %w", err)
	}
	return ok, nil
}

// Release deletes the account's key so its next tap is accepted.
func (g *Guard) Release(ctx context.Context, accountID uuid.UUID) error {
	if err := g.client.Del(ctx, keyPrefix+accountID.String()).Err(); err != nil {
		return fmt.Errorf("tapguard.Guard.Release: %w", err)
	}
	return nil
}
