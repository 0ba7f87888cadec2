// Package internal holds primitives shared by the authcore engine and its
// stores: identifier and secret generation, OTP/refresh hashing, and
// constant-time comparison helpers.
//
// # Architecture boundaries
//
// This package owns randomness and digest construction. It must not touch
// Redis, perform I/O, or import sibling packages.
package internal
