package authcore

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/24digi/authcore/internal"
	"github.com/24digi/authcore/internal/stores"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh rotates a refresh token: the presented secret is revoked and a
// fresh pair is issued in its place. Unknown, revoked, and expired secrets
// all report the same ErrRefreshInvalid so a stolen value leaks nothing
// about its state.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}

	digest := internal.HashRefreshToken(refreshToken)
	record, err := e.tokens.Consume(ctx, hex.EncodeToString(digest[:]), e.now())
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrTokenNotFound),
			errors.Is(err, stores.ErrTokenRevoked),
			errors.Is(err, stores.ErrTokenExpired):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", "", ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		default:
			e.metricInc(MetricRefreshFailure)
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}

	user, err := e.identities.Get(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, record.UserID, "", "", "", ErrRefreshInvalid, func() map[string]string {
				return map[string]string{
					"reason": "user_missing",
				}
			})
			return nil, ErrRefreshInvalid
		}
		e.metricInc(MetricRefreshFailure)
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	result, err := e.issueTokens(ctx, user, false, record.DeviceID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, "", "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, "", "", "", nil, nil)

	return result, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes a refresh token. The call is idempotent and succeeds for
// unknown secrets; logout must never reveal whether a guessed value exists.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil
	}

	digest := internal.HashRefreshToken(refreshToken)
	if err := e.tokens.Revoke(ctx, hex.EncodeToString(digest[:]), e.now()); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", "", "", nil, nil)

	return nil
}
