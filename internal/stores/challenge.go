package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors surfaced by the challenge store. The engine maps these onto
// its public error taxonomy.
var (
	ErrChallengeNotFound  = errors.New("stores: challenge not found")
	ErrChallengeUsed      = errors.New("stores: challenge already verified")
	ErrChallengeExpired   = errors.New("stores: challenge expired")
	ErrChallengeExhausted = errors.New("stores: challenge attempts exhausted")
	ErrCodeMismatch       = errors.New("stores: code mismatch")
	ErrResendLimit        = errors.New("stores: resend limit reached")
)

// CooldownError reports a resend rejected inside the cooldown window. It
// carries the remaining wait so the engine can tell the client when to retry.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("stores: resend on cooldown for %s", e.Remaining)
}

// Challenge is one OTP login attempt. Exactly one of PhoneNumber or Email is
// set, matching Method.
type Challenge struct {
	ID          string
	Method      string
	PhoneNumber string
	Email       string
	OTPHash     string // hex sha256(code+salt)
	ExpiresAt   time.Time
	ResendAt    time.Time
	Attempts    int
	ResendCount int
	VerifiedAt  time.Time // zero until verified
	Language    string
	Device      Device
	CreatedAt   time.Time
}

// Device is the client device metadata captured at challenge start and
// carried through to the identity record on first login.
type Device struct {
	ID         string
	Platform   string
	AppVersion string
	PushToken  string
}

// Destination returns the identifier the code was sent to.
func (c *Challenge) Destination() string {
	if c.Method == "email" {
		return c.Email
	}
	return c.PhoneNumber
}

// ChallengeStore persists OTP challenges as Redis hashes, one per challenge.
type ChallengeStore struct {
	redis     redis.UniversalClient
	keyPrefix string
	retention time.Duration
}

// NewChallengeStore creates a challenge store. retention bounds how long a
// challenge record stays readable after creation, verified or not.
func NewChallengeStore(client redis.UniversalClient, keyPrefix string, retention time.Duration) *ChallengeStore {
	return &ChallengeStore{redis: client, keyPrefix: keyPrefix, retention: retention}
}

func (s *ChallengeStore) key(id string) string {
	return s.keyPrefix + ":otp:" + id
}

// verifyScript applies the whole verify decision in one atomic step. The
// attempt counter is incremented before the code comparison so a wrong guess
// can never be retried for free, and the verified flag is checked first so a
// challenge is consumable exactly once.
//
// KEYS[1] challenge key
// ARGV[1] provided code digest (hex)
// ARGV[2] now (unix ms)
// ARGV[3] max attempts
// ARGV[4] bypass code digest (hex) or ""
var verifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
if (tonumber(redis.call('HGET', KEYS[1], 'verified') or '0') or 0) > 0 then
  return {err='used'}
end
local now = tonumber(ARGV[2])
if now > (tonumber(redis.call('HGET', KEYS[1], 'exp') or '0') or 0) then
  return {err='expired'}
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0') or 0
if attempts >= tonumber(ARGV[3]) then
  return {err='exhausted'}
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local stored = redis.call('HGET', KEYS[1], 'otp')
local match = stored == ARGV[1]
if not match and ARGV[4] ~= '' and ARGV[4] == ARGV[1] then
  match = true
end
if not match then
  return {err='mismatch'}
end
redis.call('HSET', KEYS[1], 'verified', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

// resendScript atomically re-arms a pending challenge with a fresh code.
// Array replies are used instead of error replies where the caller needs a
// payload back (the cooldown remainder).
//
// KEYS[1] challenge key
// ARGV[1] new code digest (hex)
// ARGV[2] new expiry (unix ms)
// ARGV[3] new resend-available time (unix ms)
// ARGV[4] now (unix ms)
// ARGV[5] max resends
var resendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {'not_found'}
end
if (tonumber(redis.call('HGET', KEYS[1], 'verified') or '0') or 0) > 0 then
  return {'used'}
end
local now = tonumber(ARGV[4])
local resendAt = tonumber(redis.call('HGET', KEYS[1], 'resend') or '0') or 0
if now < resendAt then
  return {'cooldown', tostring(resendAt - now)}
end
if (tonumber(redis.call('HGET', KEYS[1], 'resends') or '0') or 0) >= tonumber(ARGV[5]) then
  return {'max_resends'}
end
redis.call('HSET', KEYS[1], 'otp', ARGV[1], 'exp', ARGV[2], 'resend', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'resends', 1)
return {'ok'}
`)

// Create persists a new challenge and applies the retention TTL.
func (s *ChallengeStore) Create(ctx context.Context, c *Challenge) error {
	fields := map[string]interface{}{
		"method":   c.Method,
		"otp":      c.OTPHash,
		"exp":      c.ExpiresAt.UnixMilli(),
		"resend":   c.ResendAt.UnixMilli(),
		"attempts": 0,
		"resends":  0,
		"verified": 0,
		"created":  c.CreatedAt.UnixMilli(),
	}
	if c.PhoneNumber != "" {
		fields["phone"] = c.PhoneNumber
	}
	if c.Email != "" {
		fields["email"] = c.Email
	}
	if c.Language != "" {
		fields["lang"] = c.Language
	}
	if c.Device.ID != "" {
		fields["dev_id"] = c.Device.ID
	}
	if c.Device.Platform != "" {
		fields["dev_platform"] = c.Device.Platform
	}
	if c.Device.AppVersion != "" {
		fields["dev_appver"] = c.Device.AppVersion
	}
	if c.Device.PushToken != "" {
		fields["dev_push"] = c.Device.PushToken
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.key(c.ID), fields)
	pipe.PExpire(ctx, s.key(c.ID), s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stores: create challenge: %w", err)
	}
	return nil
}

// Get loads a challenge without mutating it.
func (s *ChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	raw, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("stores: get challenge: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrChallengeNotFound
	}
	return decodeChallenge(id, raw), nil
}

// Verify consumes one attempt against the challenge. On success the updated
// record, now carrying VerifiedAt, is returned; the record stays in Redis
// until retention expiry so replays surface as ErrChallengeUsed rather than
// not-found.
//
// The digest comparison happens inside the script; maxAttempts caps total
// guesses per challenge. bypassHash is "" when no bypass code is configured.
func (s *ChallengeStore) Verify(ctx context.Context, id, codeHash, bypassHash string, maxAttempts int, now time.Time) (*Challenge, error) {
	raw, err := verifyScript.Run(ctx, s.redis, []string{s.key(id)},
		codeHash, now.UnixMilli(), maxAttempts, bypassHash).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrChallengeNotFound
		case "used":
			return nil, ErrChallengeUsed
		case "expired":
			return nil, ErrChallengeExpired
		case "exhausted":
			return nil, ErrChallengeExhausted
		case "mismatch":
			return nil, ErrCodeMismatch
		}
		return nil, fmt.Errorf("stores: verify challenge: %w", err)
	}
	fields, err := hgetallReply(raw)
	if err != nil {
		return nil, fmt.Errorf("stores: verify challenge: %w", err)
	}
	return decodeChallenge(id, fields), nil
}

// Resend rotates the code on a pending challenge. The caller generates the
// new digest and window; the script decides atomically whether the rotation
// is allowed.
func (s *ChallengeStore) Resend(ctx context.Context, id, newHash string, newExpiry, newResendAt time.Time, maxResends int, now time.Time) error {
	raw, err := resendScript.Run(ctx, s.redis, []string{s.key(id)},
		newHash, newExpiry.UnixMilli(), newResendAt.UnixMilli(), now.UnixMilli(), maxResends).Result()
	if err != nil {
		return fmt.Errorf("stores: resend challenge: %w", err)
	}
	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return fmt.Errorf("stores: resend challenge: unexpected reply %T", raw)
	}
	switch fmt.Sprint(reply[0]) {
	case "ok":
		return nil
	case "not_found":
		return ErrChallengeNotFound
	case "used":
		return ErrChallengeUsed
	case "max_resends":
		return ErrResendLimit
	case "cooldown":
		remaining := time.Duration(0)
		if len(reply) > 1 {
			ms, _ := strconv.ParseInt(fmt.Sprint(reply[1]), 10, 64)
			remaining = time.Duration(ms) * time.Millisecond
		}
		return &CooldownError{Remaining: remaining}
	}
	return fmt.Errorf("stores: resend challenge: unexpected status %v", reply[0])
}

func decodeChallenge(id string, fields map[string]string) *Challenge {
	c := &Challenge{
		ID:          id,
		Method:      fields["method"],
		PhoneNumber: fields["phone"],
		Email:       fields["email"],
		OTPHash:     fields["otp"],
		ExpiresAt:   msField(fields, "exp"),
		ResendAt:    msField(fields, "resend"),
		Language:    fields["lang"],
		CreatedAt:   msField(fields, "created"),
		Device: Device{
			ID:         fields["dev_id"],
			Platform:   fields["dev_platform"],
			AppVersion: fields["dev_appver"],
			PushToken:  fields["dev_push"],
		},
	}
	c.Attempts, _ = strconv.Atoi(fields["attempts"])
	c.ResendCount, _ = strconv.Atoi(fields["resends"])
	if v, _ := strconv.ParseInt(fields["verified"], 10, 64); v > 0 {
		c.VerifiedAt = time.UnixMilli(v)
	}
	return c
}

// msField parses a unix-millisecond hash field, zero time when absent.
func msField(fields map[string]string, name string) time.Time {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// hgetallReply converts a Lua HGETALL array reply into a field map.
func hgetallReply(raw interface{}) (map[string]string, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply %T", raw)
	}
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		fields[fmt.Sprint(arr[i])] = fmt.Sprint(arr[i+1])
	}
	return fields, nil
}

// normKey lowercases and trims a destination for use in index keys.
func normKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
