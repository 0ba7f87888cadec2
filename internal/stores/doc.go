// Package stores contains the Redis-backed persistence layer for OTP
// challenges, refresh tokens, and identities.
//
// # Design
//
// Each record is a single Redis hash. Every mutation that participates in a
// security decision (OTP verify, resend, refresh-token consume) runs as one
// Lua script over that one key, so concurrent requests observe a serialized
// view of counters and terminal flags with no check-then-act window.
//
// Identity uniqueness is enforced with a SETNX destination index; the loser
// of a first-login race re-reads the winner's record instead of failing.
//
// # Architecture boundaries
//
// This package owns key layout, record encoding, and atomicity. Policy
// (limits, TTL values, error taxonomy exposed to callers) belongs to the
// engine.
package stores
