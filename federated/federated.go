// Package federated verifies identity-provider tokens for the federated
// login path. The concrete verifier (Firebase Admin, a JWKS validator, a
// test stub) is injected; this package owns lazy initialization and claim
// extraction.
package federated

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrVerifierUnavailable means the verifier could not be initialized.
	ErrVerifierUnavailable = errors.New("federated: verifier unavailable")
	// ErrTokenInvalid means the provider rejected the token.
	ErrTokenInvalid = errors.New("federated: token invalid")
	// ErrPhoneMissing means the token verified but carries no phone number.
	ErrPhoneMissing = errors.New("federated: no phone claim")
)

// Claims is the decoded payload of a verified provider token.
type Claims map[string]interface{}

// TokenVerifier validates a raw ID token with the identity provider.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (Claims, error)
}

// VerifierFactory builds the underlying verifier. Called lazily on first
// use and retried on every call until it succeeds, so a provider outage at
// process start does not wedge the engine permanently.
type VerifierFactory func(ctx context.Context) (TokenVerifier, error)

// Provider wraps a lazily initialized TokenVerifier.
type Provider struct {
	factory VerifierFactory

	mu          sync.Mutex
	verifier    TokenVerifier
	initialized bool
}

// NewProvider creates a Provider around factory.
func NewProvider(factory VerifierFactory) *Provider {
	return &Provider{factory: factory}
}

// NewStaticProvider wraps an already constructed verifier. Used by tests
// and by callers that manage provider setup themselves.
func NewStaticProvider(v TokenVerifier) *Provider {
	return &Provider{verifier: v, initialized: true}
}

// Verify validates idToken, initializing the verifier on first use.
func (p *Provider) Verify(ctx context.Context, idToken string) (Claims, error) {
	v, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := v.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	return claims, nil
}

func (p *Provider) get(ctx context.Context) (TokenVerifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return p.verifier, nil
	}
	if p.factory == nil {
		return nil, ErrVerifierUnavailable
	}
	v, err := p.factory(ctx)
	if err != nil {
		// initialized stays false so the next call retries.
		return nil, errors.Join(ErrVerifierUnavailable, err)
	}
	p.verifier = v
	p.initialized = true
	return v, nil
}

// PhoneFromClaims extracts the phone number a provider attests to. The
// top-level phone_number claim is preferred; tokens minted for multi-method
// accounts carry it nested under firebase.identities.phone instead.
func PhoneFromClaims(claims Claims) (string, error) {
	if phone, ok := claims["phone_number"].(string); ok && phone != "" {
		return phone, nil
	}

	fb, ok := claims["firebase"].(map[string]interface{})
	if !ok {
		return "", ErrPhoneMissing
	}
	identities, ok := fb["identities"].(map[string]interface{})
	if !ok {
		return "", ErrPhoneMissing
	}
	phones, ok := identities["phone"].([]interface{})
	if !ok || len(phones) == 0 {
		return "", ErrPhoneMissing
	}
	phone, ok := phones[0].(string)
	if !ok || phone == "" {
		return "", ErrPhoneMissing
	}
	return phone, nil
}
