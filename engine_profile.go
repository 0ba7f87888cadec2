package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/24digi/authcore/internal/stores"
	"github.com/24digi/authcore/profile"
)

// Profile describes the profile operation and its observable behavior.
//
// Profile may return an error when input validation, dependency calls, or security checks fail.
// Profile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Profile(ctx context.Context, userID string) (*profile.View, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := profile.NewView(user, e.now())
	return &view, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile merges one wizard step into the user's profile. Absent
// fields are untouched, so clients can submit sections in any order and
// resubmit a section without clobbering the rest.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, upd profile.Update) (*profile.View, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileInvalid, err)
	}

	user, err := e.identities.UpdateProfile(ctx, userID, upd.Fields(e.now()))
	if err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventProfileUpdated, true, userID, "", "", "", nil, nil)

	view := profile.NewView(user, e.now())
	return &view, nil
}

// FinishProfile describes the finishprofile operation and its observable behavior.
//
// FinishProfile marks onboarding done. It requires every mandatory wizard
// field plus all three consents; until it succeeds, login results report
// ProfileComplete false and clients keep routing into the wizard.
func (e *Engine) FinishProfile(ctx context.Context, userID string) (*profile.View, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !profile.Consented(user) {
		return nil, ErrConsentRequired
	}
	if !profile.Complete(user) {
		return nil, ErrProfileIncomplete
	}

	if !user.ProfileComplete {
		user, err = e.identities.UpdateProfile(ctx, userID, map[string]string{"complete": "1"})
		if err != nil {
			if errors.Is(err, stores.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		e.emitAudit(ctx, auditEventProfileCompleted, true, userID, "", "", "", nil, nil)
	}

	view := profile.NewView(user, e.now())
	return &view, nil
}

func (e *Engine) getUser(ctx context.Context, userID string) (*stores.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := e.identities.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return user, nil
}
