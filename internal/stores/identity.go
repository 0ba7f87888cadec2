package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/24digi/authcore/internal"
)

var (
	ErrUserNotFound = errors.New("stores: user not found")
	// ErrIdentityConflict means a concurrent first login claimed the
	// destination but its record could not be read back.
	ErrIdentityConflict = errors.New("stores: identity index conflict")
)

// User is one identity record plus its onboarding profile. Pointer fields
// distinguish "never set" from zero values.
type User struct {
	ID          string
	Method      string
	PhoneNumber string
	Email       string
	CreatedAt   time.Time
	LastLoginAt time.Time

	Name        string
	DateOfBirth string // YYYY-MM-DD
	Gender      string
	HeightCm    *float64
	WeightKg    *float64

	HealthConditions []string
	Allergies        []string
	AllergyNote      string

	DietPreference string
	MealsPerDay    *int

	ActivityLevel   string
	WorkoutsPerWeek *int
	Timezone        string

	Goal           string
	TargetWeightKg *float64

	ConsentTerms      bool
	ConsentPrivacy    bool
	ConsentHealthData bool
	ConsentAt         time.Time

	ProfileComplete bool
}

// IdentityStore persists users and the destination-to-user index that makes
// each phone number or email resolve to exactly one identity.
type IdentityStore struct {
	redis     redis.UniversalClient
	keyPrefix string
}

// NewIdentityStore creates an identity store.
func NewIdentityStore(client redis.UniversalClient, keyPrefix string) *IdentityStore {
	return &IdentityStore{redis: client, keyPrefix: keyPrefix}
}

func (s *IdentityStore) userKey(id string) string {
	return s.keyPrefix + ":user:" + id
}

func (s *IdentityStore) indexKey(method, destination string) string {
	return s.keyPrefix + ":ident:" + method + ":" + normKey(destination)
}

// updateProfileScript merges a sparse set of profile fields into an existing
// user record and returns the merged record. Absent fields are untouched.
//
// ARGV is a flat field/value list.
var updateProfileScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
for i = 1, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
return redis.call('HGETALL', KEYS[1])
`)

// Resolve maps a verified destination to its user, creating the identity on
// first login. The fresh record is written before the SETNX index claim so
// any index entry always points at a readable record; the loser of a
// concurrent first login deletes its provisional record and adopts the
// winner's.
//
// The returned bool is true when this call created the identity.
func (s *IdentityStore) Resolve(ctx context.Context, method, destination string, now time.Time) (*User, bool, error) {
	index := s.indexKey(method, destination)

	id, err := s.redis.Get(ctx, index).Result()
	if err == nil {
		u, err := s.Get(ctx, id)
		return u, false, err
	}
	if !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("stores: resolve identity: %w", err)
	}

	newID := internal.NewUserID()
	u := &User{ID: newID, Method: method, CreatedAt: now, LastLoginAt: now}
	if method == "email" {
		u.Email = normKey(destination)
	} else {
		u.PhoneNumber = destination
	}
	if err := s.redis.HSet(ctx, s.userKey(newID), encodeUser(u)).Err(); err != nil {
		return nil, false, fmt.Errorf("stores: create user: %w", err)
	}

	claimed, err := s.redis.SetNX(ctx, index, newID, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("stores: claim identity index: %w", err)
	}
	if claimed {
		return u, true, nil
	}

	// Lost the race. Drop the provisional record and adopt the winner's.
	s.redis.Del(ctx, s.userKey(newID))
	id, err = s.redis.Get(ctx, index).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, ErrIdentityConflict
		}
		return nil, false, fmt.Errorf("stores: resolve identity: %w", err)
	}
	winner, err := s.Get(ctx, id)
	return winner, false, err
}

// Get loads a user record.
func (s *IdentityStore) Get(ctx context.Context, id string) (*User, error) {
	raw, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("stores: get user: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUser(id, raw), nil
}

// TouchLogin records a successful login time.
func (s *IdentityStore) TouchLogin(ctx context.Context, id string, now time.Time) error {
	if err := s.redis.HSet(ctx, s.userKey(id), "last_login", now.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("stores: touch login: %w", err)
	}
	return nil
}

// UpdateProfile merges the given hash fields into the user record atomically
// and returns the merged user. The engine builds the field list from the
// sparse profile update; this store never interprets profile semantics.
func (s *IdentityStore) UpdateProfile(ctx context.Context, id string, fields map[string]string) (*User, error) {
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	argv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		argv = append(argv, k, v)
	}
	raw, err := updateProfileScript.Run(ctx, s.redis, []string{s.userKey(id)}, argv...).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("stores: update profile: %w", err)
	}
	merged, err := hgetallReply(raw)
	if err != nil {
		return nil, fmt.Errorf("stores: update profile: %w", err)
	}
	return decodeUser(id, merged), nil
}

func encodeUser(u *User) map[string]interface{} {
	fields := map[string]interface{}{
		"method":   u.Method,
		"created":  u.CreatedAt.UnixMilli(),
		"complete": boolField(u.ProfileComplete),
	}
	if u.PhoneNumber != "" {
		fields["phone"] = u.PhoneNumber
	}
	if u.Email != "" {
		fields["email"] = u.Email
	}
	if !u.LastLoginAt.IsZero() {
		fields["last_login"] = u.LastLoginAt.UnixMilli()
	}
	return fields
}

func decodeUser(id string, fields map[string]string) *User {
	u := &User{
		ID:          id,
		Method:      fields["method"],
		PhoneNumber: fields["phone"],
		Email:       fields["email"],
		CreatedAt:   msField(fields, "created"),
		LastLoginAt: msField(fields, "last_login"),

		Name:        fields["name"],
		DateOfBirth: fields["dob"],
		Gender:      fields["gender"],
		HeightCm:    floatField(fields, "height"),
		WeightKg:    floatField(fields, "weight"),

		HealthConditions: listField(fields, "health"),
		Allergies:        listField(fields, "allergies"),
		AllergyNote:      fields["allergy_note"],

		DietPreference: fields["diet"],
		MealsPerDay:    intField(fields, "meals"),

		ActivityLevel:   fields["activity"],
		WorkoutsPerWeek: intField(fields, "workouts"),
		Timezone:        fields["tz"],

		Goal:           fields["goal"],
		TargetWeightKg: floatField(fields, "target_weight"),

		ConsentTerms:      fields["consent_terms"] == "1",
		ConsentPrivacy:    fields["consent_privacy"] == "1",
		ConsentHealthData: fields["consent_health"] == "1",
		ConsentAt:         msField(fields, "consent_at"),

		ProfileComplete: fields["complete"] == "1",
	}
	return u
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func floatField(fields map[string]string, name string) *float64 {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intField(fields map[string]string, name string) *int {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func listField(fields map[string]string, name string) []string {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
