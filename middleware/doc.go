// Package middleware exposes the HTTP adapter that protects routes with
// authcore access tokens.
//
// [Guard] reads the Authorization header, validates the bearer token
// offline through Engine.ValidateAccess, and injects the authenticated user
// ID into the request context for handlers to read with
// [UserIDFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from ValidateAccess.
package middleware
