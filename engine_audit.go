package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventStartSuccess       = "otp_start_success"
	auditEventStartFailure       = "otp_start_failure"
	auditEventStartRateLimited   = "otp_start_rate_limited"
	auditEventVerifySuccess      = "otp_verify_success"
	auditEventVerifyFailure      = "otp_verify_failure"
	auditEventVerifyReplay       = "otp_verify_replay"
	auditEventVerifyExhausted    = "otp_verify_exhausted"
	auditEventResendSuccess      = "otp_resend_success"
	auditEventResendBlocked      = "otp_resend_blocked"
	auditEventDeliveryFailure    = "otp_delivery_failure"
	auditEventFederatedSuccess   = "federated_login_success"
	auditEventFederatedFailure   = "federated_login_failure"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventLogout             = "logout"
	auditEventIdentityCreated    = "identity_created"
	auditEventProfileUpdated     = "profile_updated"
	auditEventProfileCompleted   = "profile_completed"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrValidation       AuditErrorCode = "validation_failed"
	auditErrChallengeInvalid AuditErrorCode = "challenge_invalid"
	auditErrChallengeReplay  AuditErrorCode = "challenge_replay"
	auditErrAttemptsExceeded AuditErrorCode = "attempts_exceeded"
	auditErrCodeInvalid      AuditErrorCode = "code_invalid"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrRefreshInvalid   AuditErrorCode = "refresh_invalid"
	auditErrFederatedInvalid AuditErrorCode = "federated_invalid"
	auditErrIdentityConflict AuditErrorCode = "identity_conflict"
	auditErrUserNotFound     AuditErrorCode = "user_not_found"
	auditErrConsentRequired  AuditErrorCode = "consent_required"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	challengeID string,
	method LoginMethod,
	maskedDestination string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		UserID:      userID,
		ChallengeID: challengeID,
		Method:      string(method),
		Destination: maskedDestination,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	method LoginMethod,
	maskedDestination string,
) {
	e.metricInc(MetricStartRateLimited)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", method, maskedDestination, nil, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrDestinationRequired),
		errors.Is(err, ErrUnsupportedLoginMethod),
		errors.Is(err, ErrProfileInvalid):
		return auditErrValidation
	case errors.Is(err, ErrChallengeUsed):
		return auditErrChallengeReplay
	case errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeInvalid
	case errors.Is(err, ErrChallengeExhausted):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrOTPInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrStartRateLimited),
		errors.Is(err, ErrResendLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrTokenInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrFederatedTokenInvalid),
		errors.Is(err, ErrFederatedPhoneMissing):
		return auditErrFederatedInvalid
	case errors.Is(err, ErrIdentityConflict):
		return auditErrIdentityConflict
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrConsentRequired):
		return auditErrConsentRequired
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrProviderUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
