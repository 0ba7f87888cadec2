package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDestinationRequired is an exported constant or variable used by the authentication engine.
	ErrDestinationRequired = errors.New("destination required")
	// ErrUnsupportedLoginMethod is an exported constant or variable used by the authentication engine.
	ErrUnsupportedLoginMethod = errors.New("unsupported login method")
	// ErrChallengeNotFound is an exported constant or variable used by the authentication engine.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeUsed is an exported constant or variable used by the authentication engine.
	ErrChallengeUsed = errors.New("challenge already used")
	// ErrChallengeExpired is an exported constant or variable used by the authentication engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeExhausted is an exported constant or variable used by the authentication engine.
	ErrChallengeExhausted = errors.New("challenge attempts exceeded")
	// ErrOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrOTPInvalid = errors.New("invalid otp code")
	// ErrResendLimited is an exported constant or variable used by the authentication engine.
	ErrResendLimited = errors.New("resend limit reached")
	// ErrStartRateLimited is an exported constant or variable used by the authentication engine.
	ErrStartRateLimited = errors.New("login start rate limited")
	// ErrRefreshInvalid is an exported constant or variable used by the authentication engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrFederatedTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrFederatedTokenInvalid = errors.New("invalid federated token")
	// ErrFederatedPhoneMissing is an exported constant or variable used by the authentication engine.
	ErrFederatedPhoneMissing = errors.New("federated token carries no phone number")
	// ErrIdentityConflict is an exported constant or variable used by the authentication engine.
	ErrIdentityConflict = errors.New("identity resolution conflict")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrProfileInvalid is an exported constant or variable used by the authentication engine.
	ErrProfileInvalid = errors.New("invalid profile update")
	// ErrProfileIncomplete is an exported constant or variable used by the authentication engine.
	ErrProfileIncomplete = errors.New("profile incomplete")
	// ErrConsentRequired is an exported constant or variable used by the authentication engine.
	ErrConsentRequired = errors.New("consent required")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrProviderUnavailable is an exported constant or variable used by the authentication engine.
	ErrProviderUnavailable = errors.New("federated provider unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind defines a public type used by authcore APIs.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind int

const (
	// KindInternal is an exported constant or variable used by the authentication engine.
	KindInternal Kind = iota
	// KindValidation is an exported constant or variable used by the authentication engine.
	KindValidation
	// KindUnauthorized is an exported constant or variable used by the authentication engine.
	KindUnauthorized
	// KindNotFound is an exported constant or variable used by the authentication engine.
	KindNotFound
	// KindTooManyRequests is an exported constant or variable used by the authentication engine.
	KindTooManyRequests
	// KindConflict is an exported constant or variable used by the authentication engine.
	KindConflict
	// KindUnavailable is an exported constant or variable used by the authentication engine.
	KindUnavailable
)

// Classify describes the classify operation and its observable behavior.
//
// Classify maps any error returned by the Engine onto the coarse Kind a
// transport layer needs for status-code selection. Unknown errors classify
// as KindInternal.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrDestinationRequired),
		errors.Is(err, ErrUnsupportedLoginMethod),
		errors.Is(err, ErrProfileInvalid),
		errors.Is(err, ErrConsentRequired):
		return KindValidation
	case errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrChallengeUsed),
		errors.Is(err, ErrChallengeExpired),
		errors.Is(err, ErrChallengeExhausted),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrFederatedTokenInvalid),
		errors.Is(err, ErrFederatedPhoneMissing),
		errors.Is(err, ErrTokenInvalid):
		return KindUnauthorized
	case errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrStartRateLimited),
		errors.Is(err, ErrResendLimited),
		isCooldown(err):
		return KindTooManyRequests
	case errors.Is(err, ErrIdentityConflict):
		return KindConflict
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrProviderUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// CooldownError defines a public type used by authcore APIs.
//
// CooldownError is returned by ResendOTP while the resend window is closed.
// RetryAfterSec is the whole-second wait reported to clients, rounded up so
// a retry at exactly RetryAfterSec always lands inside the open window.
type CooldownError struct {
	RetryAfterSec int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend available in %d seconds", e.RetryAfterSec)
}

// Is makes the cooldown error match ErrResendLimited for errors.Is callers
// that only care about the coarse class.
func (e *CooldownError) Is(target error) bool {
	return target == ErrResendLimited
}

func isCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}

func newCooldownError(remaining time.Duration) *CooldownError {
	sec := int((remaining + time.Second - 1) / time.Second)
	if sec < 1 {
		sec = 1
	}
	return &CooldownError{RetryAfterSec: sec}
}
