// Package authcore provides a passwordless authentication engine for mobile
// backends: OTP challenges over SMS or email, JWT access tokens, rotating
// opaque refresh tokens, federated provider login, and Redis-backed identity
// records with an onboarding profile.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (StartResult, LoginResult, MetricsSnapshot, etc.). All
// internal coordination, challenge storage, rate limiting, and audit dispatch
// lives under internal/ and is never exported. Delivery gateways, federated
// verification, and profile semantics live in their own public sub-packages
// so applications can swap implementations.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key layouts in its public API.
//   - Return or log plaintext OTP codes outside the development delivery-
//     failure path.
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It completes without Redis round-trips;
// revocation is enforced on Refresh only. StartLogin, VerifyOTP, ResendOTP,
// and Refresh are allowed a small constant number of Redis round-trips per
// call, with every security decision made in a single atomic script.
package authcore
