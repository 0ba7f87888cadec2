package authcore

import (
	"time"

	"github.com/24digi/authcore/delivery"
	"github.com/24digi/authcore/federated"
	"github.com/24digi/authcore/internal/rate"
	"github.com/24digi/authcore/internal/stores"
	"github.com/24digi/authcore/jwt"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config Config

	challenges *stores.ChallengeStore
	tokens     *stores.RefreshTokenStore
	identities *stores.IdentityStore

	startLimiter *rate.Limiter

	gateway   delivery.Gateway
	federated *federated.Provider

	audit      *auditDispatcher
	metrics    *Metrics
	jwtManager *jwt.Manager

	// hex digest of the bypass code, "" when bypass is disabled
	bypassHash string

	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess checks an access token offline and returns the user ID it
// was issued to. No store round-trip happens; revocation is enforced on the
// refresh path only.
func (e *Engine) ValidateAccess(tokenStr string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}
