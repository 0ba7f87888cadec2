package authcore

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/24digi/authcore/delivery"
	"github.com/24digi/authcore/internal"
	"github.com/24digi/authcore/internal/rate"
	"github.com/24digi/authcore/internal/stores"
)

var (
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

const deliveryTimeout = 10 * time.Second

// StartLogin describes the startlogin operation and its observable behavior.
//
// StartLogin creates an OTP challenge for the requested destination and
// dispatches the code through the delivery gateway. Delivery runs in the
// background; a provider failure is recorded but never fails the call.
func (e *Engine) StartLogin(ctx context.Context, req StartLoginRequest) (*StartResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}

	destination, err := normalizeDestination(req.Method, req.PhoneNumber, req.Email)
	if err != nil {
		e.metricInc(MetricStartValidationFailed)
		e.emitAudit(ctx, auditEventStartFailure, false, "", "", req.Method, "", err, nil)
		return nil, err
	}
	masked := maskDestination(req.Method, destination)

	if err := e.allowStart(ctx, req.Method, destination); err != nil {
		e.emitRateLimit(ctx, "otp_start", req.Method, masked)
		return nil, err
	}

	code, err := internal.NewOTP()
	if err != nil {
		return nil, err
	}
	digest := internal.HashOTP(code, e.config.OTP.Salt)

	now := e.now()
	challenge := &stores.Challenge{
		ID:        internal.NewChallengeID(),
		Method:    string(req.Method),
		OTPHash:   hex.EncodeToString(digest[:]),
		ExpiresAt: now.Add(e.config.OTP.TTL),
		ResendAt:  now.Add(e.config.OTP.ResendCooldown),
		Language:  req.Language,
		CreatedAt: now,
		Device: stores.Device{
			ID:         req.Device.ID,
			Platform:   req.Device.Platform,
			AppVersion: req.Device.AppVersion,
			PushToken:  req.Device.PushToken,
		},
	}
	if req.Method == MethodEmail {
		challenge.Email = destination
	} else {
		challenge.PhoneNumber = destination
	}

	if err := e.challenges.Create(ctx, challenge); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	e.dispatchDelivery(ctx, challenge.ID, req.Method, destination, masked, code, req.Language)

	e.metricInc(MetricStartSuccess)
	e.emitAudit(ctx, auditEventStartSuccess, true, "", challenge.ID, req.Method, masked, nil, nil)

	return &StartResult{
		ChallengeID: challenge.ID,
		Destination: masked,
		ExpiresIn:   e.config.OTP.TTL,
		ResendAfter: e.config.OTP.ResendCooldown,
	}, nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP consumes one guess against a challenge. On a correct code it
// resolves the destination to an identity, creating one on first login, and
// issues an access/refresh token pair.
func (e *Engine) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if req.ChallengeID == "" {
		return nil, ErrChallengeNotFound
	}
	if !codePattern.MatchString(req.Code) {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", req.ChallengeID, "", "", ErrOTPInvalid, func() map[string]string {
			return map[string]string{
				"reason": "code_format",
			}
		})
		return nil, ErrOTPInvalid
	}

	digest := internal.HashOTP(req.Code, e.config.OTP.Salt)
	codeHash := hex.EncodeToString(digest[:])

	challenge, err := e.challenges.Verify(ctx, req.ChallengeID, codeHash, e.bypassHash, e.config.OTP.MaxAttempts, e.now())
	if err != nil {
		return nil, e.mapVerifyError(ctx, req.ChallengeID, err)
	}

	method := LoginMethod(challenge.Method)
	masked := maskDestination(method, challenge.Destination())

	// The script already compared digests; re-check in constant time on the
	// Go side before trusting the result.
	if !e.verifyDigest(challenge.OTPHash, digest) {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", challenge.ID, method, masked, ErrOTPInvalid, nil)
		return nil, ErrOTPInvalid
	}

	user, created, err := e.resolveIdentity(ctx, method, challenge.Destination(), masked)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", challenge.ID, method, masked, err, nil)
		return nil, err
	}

	result, err := e.issueTokens(ctx, user, created, challenge.Device.ID)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, user.ID, challenge.ID, method, masked, err, nil)
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, user.ID, challenge.ID, method, masked, nil, func() map[string]string {
		return map[string]string{
			"new_user": boolMeta(created),
		}
	})

	return result, nil
}

// ResendOTP describes the resendotp operation and its observable behavior.
//
// ResendOTP rotates the code on a pending challenge once the cooldown has
// passed. The previous code stops working the moment the rotation commits.
func (e *Engine) ResendOTP(ctx context.Context, challengeID string) (*ResendResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" {
		return nil, ErrChallengeNotFound
	}

	code, err := internal.NewOTP()
	if err != nil {
		return nil, err
	}
	digest := internal.HashOTP(code, e.config.OTP.Salt)

	now := e.now()
	err = e.challenges.Resend(ctx, challengeID, hex.EncodeToString(digest[:]),
		now.Add(e.config.OTP.TTL), now.Add(e.config.OTP.ResendCooldown),
		e.config.OTP.MaxResends, now)
	if err != nil {
		return nil, e.mapResendError(ctx, challengeID, err)
	}

	challenge, err := e.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	method := LoginMethod(challenge.Method)
	masked := maskDestination(method, challenge.Destination())

	e.dispatchDelivery(ctx, challenge.ID, method, challenge.Destination(), masked, code, challenge.Language)

	e.metricInc(MetricResendSuccess)
	e.emitAudit(ctx, auditEventResendSuccess, true, "", challenge.ID, method, masked, nil, func() map[string]string {
		return map[string]string{
			"resend_count": strconv.Itoa(challenge.ResendCount),
		}
	})

	return &ResendResult{
		ChallengeID: challenge.ID,
		Destination: masked,
		ExpiresIn:   e.config.OTP.TTL,
		ResendAfter: e.config.OTP.ResendCooldown,
	}, nil
}

func (e *Engine) mapVerifyError(ctx context.Context, challengeID string, err error) error {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", challengeID, "", "", ErrChallengeNotFound, nil)
		return ErrChallengeNotFound
	case errors.Is(err, stores.ErrChallengeUsed):
		e.metricInc(MetricVerifyReplayBlocked)
		e.emitAudit(ctx, auditEventVerifyReplay, false, "", challengeID, "", "", ErrChallengeUsed, nil)
		return ErrChallengeUsed
	case errors.Is(err, stores.ErrChallengeExpired):
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", challengeID, "", "", ErrChallengeExpired, nil)
		return ErrChallengeExpired
	case errors.Is(err, stores.ErrChallengeExhausted):
		e.metricInc(MetricVerifyExhausted)
		e.emitAudit(ctx, auditEventVerifyExhausted, false, "", challengeID, "", "", ErrChallengeExhausted, nil)
		return ErrChallengeExhausted
	case errors.Is(err, stores.ErrCodeMismatch):
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", challengeID, "", "", ErrOTPInvalid, nil)
		return ErrOTPInvalid
	default:
		e.metricInc(MetricVerifyFailure)
		return errors.Join(ErrStoreUnavailable, err)
	}
}

func (e *Engine) mapResendError(ctx context.Context, challengeID string, err error) error {
	var cooldown *stores.CooldownError
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		e.metricInc(MetricResendBlocked)
		e.emitAudit(ctx, auditEventResendBlocked, false, "", challengeID, "", "", ErrChallengeNotFound, nil)
		return ErrChallengeNotFound
	case errors.Is(err, stores.ErrChallengeUsed):
		e.metricInc(MetricResendBlocked)
		e.emitAudit(ctx, auditEventResendBlocked, false, "", challengeID, "", "", ErrChallengeUsed, nil)
		return ErrChallengeUsed
	case errors.Is(err, stores.ErrResendLimit):
		e.metricInc(MetricResendBlocked)
		e.emitAudit(ctx, auditEventResendBlocked, false, "", challengeID, "", "", ErrResendLimited, nil)
		return ErrResendLimited
	case errors.As(err, &cooldown):
		e.metricInc(MetricResendBlocked)
		ce := newCooldownError(cooldown.Remaining)
		e.emitAudit(ctx, auditEventResendBlocked, false, "", challengeID, "", "", ce, func() map[string]string {
			return map[string]string{
				"retry_after_sec": strconv.Itoa(ce.RetryAfterSec),
			}
		})
		return ce
	default:
		return errors.Join(ErrStoreUnavailable, err)
	}
}

func (e *Engine) allowStart(ctx context.Context, method LoginMethod, destination string) error {
	if e.startLimiter == nil {
		return nil
	}
	if e.config.Limits.EnableDestinationThrottle {
		if err := e.startLimiter.Allow(ctx, "start:"+string(method)+":"+strings.ToLower(destination)); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				return ErrStartRateLimited
			}
			return errors.Join(ErrStoreUnavailable, err)
		}
	}
	if e.config.Limits.EnableIPThrottle {
		if ip := clientIPFromContext(ctx); ip != "" {
			if err := e.startLimiter.Allow(ctx, "start:ip:"+ip); err != nil {
				if errors.Is(err, rate.ErrLimited) {
					return ErrStartRateLimited
				}
				return errors.Join(ErrStoreUnavailable, err)
			}
		}
	}
	return nil
}

// dispatchDelivery hands the code to the gateway without blocking the
// caller. The plaintext code lives only in this goroutine's stack.
func (e *Engine) dispatchDelivery(ctx context.Context, challengeID string, method LoginMethod, destination, masked, code, language string) {
	ip := clientIPFromContext(ctx)
	gateway := e.gateway

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		receipt := gateway.Send(sendCtx, delivery.Message{
			Method:      string(method),
			Destination: destination,
			Code:        code,
			Language:    language,
		})
		if receipt.Sent {
			return
		}

		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(WithClientIP(context.Background(), ip), auditEventDeliveryFailure, false, "", challengeID, method, masked, nil, func() map[string]string {
			return map[string]string{
				"reason": receipt.Reason,
			}
		})
		if e.config.Security.LogOTPOnDeliveryFailure {
			log.Printf("authcore: delivery failed for challenge %s, code=%s", challengeID, code)
		}
	}()
}

func (e *Engine) verifyDigest(storedHex string, provided [32]byte) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil || len(stored) != 32 {
		return false
	}
	var storedDigest [32]byte
	copy(storedDigest[:], stored)
	if internal.ConstantTimeEqual(storedDigest, provided) {
		return true
	}
	if e.bypassHash == "" {
		return false
	}
	bypass, err := hex.DecodeString(e.bypassHash)
	if err != nil || len(bypass) != 32 {
		return false
	}
	var bypassDigest [32]byte
	copy(bypassDigest[:], bypass)
	return internal.ConstantTimeEqual(bypassDigest, provided)
}

func (e *Engine) resolveIdentity(ctx context.Context, method LoginMethod, destination, masked string) (*stores.User, bool, error) {
	user, created, err := e.identities.Resolve(ctx, string(method), destination, e.now())
	if err != nil {
		if errors.Is(err, stores.ErrIdentityConflict) {
			e.metricInc(MetricIdentityConflictRetried)
			return nil, false, ErrIdentityConflict
		}
		return nil, false, errors.Join(ErrStoreUnavailable, err)
	}
	if created {
		e.metricInc(MetricIdentityCreated)
		e.emitAudit(ctx, auditEventIdentityCreated, true, user.ID, "", method, masked, nil, nil)
	} else if err := e.identities.TouchLogin(ctx, user.ID, e.now()); err != nil {
		// Login-time bookkeeping must not fail the login.
		log.Print("authcore: last-login update failed")
	}
	return user, created, nil
}

func (e *Engine) issueTokens(ctx context.Context, user *stores.User, created bool, deviceID string) (*LoginResult, error) {
	access, err := e.jwtManager.CreateAccess(user.ID)
	if err != nil {
		return nil, err
	}

	raw := internal.NewRefreshToken()
	digest := internal.HashRefreshToken(raw)
	now := e.now()
	err = e.tokens.Create(ctx, hex.EncodeToString(digest[:]), &stores.RefreshToken{
		UserID:    user.ID,
		DeviceID:  deviceID,
		ExpiresAt: now.Add(e.config.Token.RefreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return &LoginResult{
		UserID:          user.ID,
		AccessToken:     access,
		RefreshToken:    raw,
		IsNewUser:       created,
		ProfileComplete: user.ProfileComplete,
	}, nil
}

func normalizeDestination(method LoginMethod, phone, email string) (string, error) {
	switch method {
	case MethodPhone:
		phone = strings.TrimSpace(phone)
		if phone == "" {
			return "", ErrDestinationRequired
		}
		if !phonePattern.MatchString(phone) {
			return "", ErrDestinationRequired
		}
		return phone, nil
	case MethodEmail:
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return "", ErrDestinationRequired
		}
		if !emailPattern.MatchString(email) {
			return "", ErrDestinationRequired
		}
		return email, nil
	default:
		return "", ErrUnsupportedLoginMethod
	}
}

func boolMeta(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

