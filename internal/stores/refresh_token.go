package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound = errors.New("stores: refresh token not found")
	ErrTokenRevoked  = errors.New("stores: refresh token revoked")
	ErrTokenExpired  = errors.New("stores: refresh token expired")
)

// RefreshToken is the server-side record of one opaque refresh secret. The
// raw secret is never stored; the record is keyed by its sha256 digest.
type RefreshToken struct {
	UserID    string
	DeviceID  string
	ExpiresAt time.Time
	RevokedAt time.Time // zero until consumed or revoked
	CreatedAt time.Time
}

// RefreshTokenStore persists refresh-token records in Redis, one hash per
// token keyed by digest.
type RefreshTokenStore struct {
	redis     redis.UniversalClient
	keyPrefix string
}

// NewRefreshTokenStore creates a refresh-token store.
func NewRefreshTokenStore(client redis.UniversalClient, keyPrefix string) *RefreshTokenStore {
	return &RefreshTokenStore{redis: client, keyPrefix: keyPrefix}
}

func (s *RefreshTokenStore) key(hash string) string {
	return s.keyPrefix + ":rt:" + hash
}

// consumeScript revokes a live token and returns its record in one step, so
// exactly one of any number of concurrent rotations wins. Later calls see the
// revoked flag and fail.
//
// KEYS[1] token key
// ARGV[1] now (unix ms)
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
if (tonumber(redis.call('HGET', KEYS[1], 'revoked') or '0') or 0) > 0 then
  return {err='revoked'}
end
if tonumber(ARGV[1]) >= (tonumber(redis.call('HGET', KEYS[1], 'exp') or '0') or 0) then
  return {err='expired'}
end
redis.call('HSET', KEYS[1], 'revoked', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

// revokeScript marks a token revoked if it is still live. Idempotent: missing
// and already-revoked tokens return 0 without error.
var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if (tonumber(redis.call('HGET', KEYS[1], 'revoked') or '0') or 0) > 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'revoked', ARGV[1])
return 1
`)

// Create persists a new token record. The Redis TTL outlives ExpiresAt by a
// day so late rotation attempts report expired instead of not-found.
func (s *RefreshTokenStore) Create(ctx context.Context, hash string, t *RefreshToken) error {
	fields := map[string]interface{}{
		"user":    t.UserID,
		"exp":     t.ExpiresAt.UnixMilli(),
		"revoked": 0,
		"created": t.CreatedAt.UnixMilli(),
	}
	if t.DeviceID != "" {
		fields["device"] = t.DeviceID
	}
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.key(hash), fields)
	pipe.PExpireAt(ctx, s.key(hash), t.ExpiresAt.Add(24*time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stores: create refresh token: %w", err)
	}
	return nil
}

// Consume atomically revokes a live token and returns its record. The caller
// issues the successor only after this succeeds, so a stolen old secret can
// never produce a second live token.
func (s *RefreshTokenStore) Consume(ctx context.Context, hash string, now time.Time) (*RefreshToken, error) {
	raw, err := consumeScript.Run(ctx, s.redis, []string{s.key(hash)}, now.UnixMilli()).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrTokenNotFound
		case "revoked":
			return nil, ErrTokenRevoked
		case "expired":
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("stores: consume refresh token: %w", err)
	}
	fields, err := hgetallReply(raw)
	if err != nil {
		return nil, fmt.Errorf("stores: consume refresh token: %w", err)
	}
	return decodeRefreshToken(fields), nil
}

// Revoke marks a token revoked. Unknown and already-revoked tokens are not an
// error; logout must not leak whether a guessed secret existed.
func (s *RefreshTokenStore) Revoke(ctx context.Context, hash string, now time.Time) error {
	if err := revokeScript.Run(ctx, s.redis, []string{s.key(hash)}, now.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("stores: revoke refresh token: %w", err)
	}
	return nil
}

// Get loads a token record without mutating it.
func (s *RefreshTokenStore) Get(ctx context.Context, hash string) (*RefreshToken, error) {
	raw, err := s.redis.HGetAll(ctx, s.key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("stores: get refresh token: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrTokenNotFound
	}
	return decodeRefreshToken(raw), nil
}

func decodeRefreshToken(fields map[string]string) *RefreshToken {
	t := &RefreshToken{
		UserID:    fields["user"],
		DeviceID:  fields["device"],
		ExpiresAt: msField(fields, "exp"),
		CreatedAt: msField(fields, "created"),
	}
	if v, _ := strconv.ParseInt(fields["revoked"], 10, 64); v > 0 {
		t.RevokedAt = time.UnixMilli(v)
	}
	return t
}
