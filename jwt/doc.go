// Package jwt issues and validates the short-lived HS256 access tokens that
// accompany each login and refresh.
//
// Access tokens are stateless: validation needs only the shared secret, never
// a store round-trip. Revocation therefore lives entirely on the refresh
// side; an access token stays valid until its expiry.
package jwt
