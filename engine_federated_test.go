package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/24digi/authcore/federated"
)

// stubVerifier maps known tokens to claim sets and rejects everything else.
type stubVerifier struct {
	tokens map[string]federated.Claims
}

func (v *stubVerifier) VerifyIDToken(_ context.Context, idToken string) (federated.Claims, error) {
	claims, ok := v.tokens[idToken]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

func newFederatedEngine(t *testing.T, verifier federated.TokenVerifier) (*Engine, *captureGateway) {
	t.Helper()

	_, rdb := newTestRedis(t)
	gw := newCaptureGateway()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithDeliveryGateway(gw).
		WithFederatedProvider(federated.NewStaticProvider(verifier)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, gw
}

func TestFederatedLoginSuccess(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]federated.Claims{
		"good-token": {"phone_number": "+971501234567"},
	}}
	engine, _ := newFederatedEngine(t, verifier)
	ctx := context.Background()

	result, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "good-token"})
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if result.UserID == "" || result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("incomplete login result %+v", result)
	}
	if !result.IsNewUser {
		t.Fatal("first federated login must create the identity")
	}

	userID, err := engine.ValidateAccess(result.AccessToken)
	if err != nil || userID != result.UserID {
		t.Fatalf("access token validation failed: %q %v", userID, err)
	}
}

func TestFederatedLoginSharesIdentityWithOTP(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]federated.Claims{
		"good-token": {"phone_number": "+971501234567"},
	}}
	engine, gw := newFederatedEngine(t, verifier)
	ctx := context.Background()

	viaOTP := loginTestUser(t, engine, gw, "+971501234567")

	viaProvider, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "good-token"})
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if viaProvider.IsNewUser {
		t.Fatal("federated login for a known phone must not create a second identity")
	}
	if viaProvider.UserID != viaOTP.UserID {
		t.Fatalf("expected one identity per phone, got %q and %q", viaOTP.UserID, viaProvider.UserID)
	}
}

func TestFederatedLoginNestedPhoneClaim(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]federated.Claims{
		"nested-token": {
			"firebase": map[string]interface{}{
				"identities": map[string]interface{}{
					"phone": []interface{}{"+971501234567"},
				},
			},
		},
	}}
	engine, _ := newFederatedEngine(t, verifier)

	result, err := engine.FederatedLogin(context.Background(), FederatedLoginRequest{IDToken: "nested-token"})
	if err != nil {
		t.Fatalf("expected nested phone claim to resolve, got %v", err)
	}
	if result.UserID == "" {
		t.Fatal("expected a user ID")
	}
}

func TestFederatedLoginRejectsBadTokens(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]federated.Claims{
		"no-phone-token": {"email": "alice@example.com"},
	}}
	engine, _ := newFederatedEngine(t, verifier)
	ctx := context.Background()

	if _, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: ""}); !errors.Is(err, ErrFederatedTokenInvalid) {
		t.Fatalf("expected ErrFederatedTokenInvalid for empty token, got %v", err)
	}
	if _, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "forged"}); !errors.Is(err, ErrFederatedTokenInvalid) {
		t.Fatalf("expected ErrFederatedTokenInvalid for rejected token, got %v", err)
	}
	if _, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "no-phone-token"}); !errors.Is(err, ErrFederatedPhoneMissing) {
		t.Fatalf("expected ErrFederatedPhoneMissing, got %v", err)
	}
}

func TestFederatedLoginWithoutProvider(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	if _, err := engine.FederatedLogin(context.Background(), FederatedLoginRequest{IDToken: "anything"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFederatedLoginProviderInitFailureRetries(t *testing.T) {
	_, rdb := newTestRedis(t)

	attempts := 0
	verifier := &stubVerifier{tokens: map[string]federated.Claims{
		"good-token": {"phone_number": "+971501234567"},
	}}
	provider := federated.NewProvider(func(_ context.Context) (federated.TokenVerifier, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("provider boot failed")
		}
		return verifier, nil
	})

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithFederatedProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	if _, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "good-token"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable on first init failure, got %v", err)
	}

	// The factory is retried; the second call succeeds.
	if _, err := engine.FederatedLogin(ctx, FederatedLoginRequest{IDToken: "good-token"}); err != nil {
		t.Fatalf("expected retried init to succeed, got %v", err)
	}
}
