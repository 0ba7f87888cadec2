// Package rate implements the fixed-window Redis counters that throttle
// challenge creation per destination and per client IP.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited means the window's budget is spent.
var ErrLimited = errors.New("rate: limit exceeded")

// Limiter counts events in fixed windows. The counter key is created with
// the window TTL on first increment and disappears when the window rolls.
type Limiter struct {
	redis     redis.UniversalClient
	keyPrefix string
	limit     int
	window    time.Duration
}

// New creates a limiter allowing limit events per window for each scope.
// A non-positive limit disables the limiter.
func New(client redis.UniversalClient, keyPrefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: client, keyPrefix: keyPrefix, limit: limit, window: window}
}

// allowScript increments the scope counter and stamps the window TTL on the
// first event, in one step so the key can never be left without expiry.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Allow consumes one event from the scope's window. Returns ErrLimited when
// the budget is already spent. Rejected calls still count; a client hammering
// the endpoint keeps its window full.
func (l *Limiter) Allow(ctx context.Context, scope string) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	count, err := allowScript.Run(ctx, l.redis, []string{l.key(scope)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rate: allow: %w", err)
	}
	if count > int64(l.limit) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) key(scope string) string {
	return l.keyPrefix + ":rl:" + scope
}
