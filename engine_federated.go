package authcore

import (
	"context"
	"errors"

	"github.com/24digi/authcore/federated"
)

// FederatedLogin describes the federatedlogin operation and its observable behavior.
//
// FederatedLogin exchanges a provider-verified ID token for an authcore
// session. The provider has already proven possession of the phone number,
// so no OTP challenge is involved; the phone claim resolves straight to an
// identity.
func (e *Engine) FederatedLogin(ctx context.Context, req FederatedLoginRequest) (*LoginResult, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}
	if e.federated == nil {
		return nil, ErrProviderUnavailable
	}
	if req.IDToken == "" {
		e.metricInc(MetricFederatedFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", "", MethodPhone, "", ErrFederatedTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "empty_token",
			}
		})
		return nil, ErrFederatedTokenInvalid
	}

	claims, err := e.federated.Verify(ctx, req.IDToken)
	if err != nil {
		mapped := ErrFederatedTokenInvalid
		if errors.Is(err, federated.ErrVerifierUnavailable) {
			mapped = ErrProviderUnavailable
		}
		e.metricInc(MetricFederatedFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", "", MethodPhone, "", mapped, nil)
		return nil, mapped
	}

	phone, err := federated.PhoneFromClaims(claims)
	if err != nil {
		e.metricInc(MetricFederatedFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", "", MethodPhone, "", ErrFederatedPhoneMissing, nil)
		return nil, ErrFederatedPhoneMissing
	}
	masked := MaskPhone(phone)

	user, created, err := e.resolveIdentity(ctx, MethodPhone, phone, masked)
	if err != nil {
		e.metricInc(MetricFederatedFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, "", "", MethodPhone, masked, err, nil)
		return nil, err
	}

	result, err := e.issueTokens(ctx, user, created, req.Device.ID)
	if err != nil {
		e.metricInc(MetricFederatedFailure)
		e.emitAudit(ctx, auditEventFederatedFailure, false, user.ID, "", MethodPhone, masked, err, nil)
		return nil, err
	}

	e.metricInc(MetricFederatedSuccess)
	e.emitAudit(ctx, auditEventFederatedSuccess, true, user.ID, "", MethodPhone, masked, nil, func() map[string]string {
		return map[string]string{
			"new_user": boolMeta(created),
		}
	})

	return result, nil
}
