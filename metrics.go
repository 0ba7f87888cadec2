package authcore

import "github.com/24digi/authcore/internal/metrics"

// MetricID defines a public type used by authcore APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID = metrics.MetricID

const (
	// MetricStartSuccess is an exported constant or variable used by the authentication engine.
	MetricStartSuccess = metrics.MetricStartSuccess
	// MetricStartValidationFailed is an exported constant or variable used by the authentication engine.
	MetricStartValidationFailed = metrics.MetricStartValidationFailed
	// MetricStartRateLimited is an exported constant or variable used by the authentication engine.
	MetricStartRateLimited = metrics.MetricStartRateLimited
	// MetricVerifySuccess is an exported constant or variable used by the authentication engine.
	MetricVerifySuccess = metrics.MetricVerifySuccess
	// MetricVerifyFailure is an exported constant or variable used by the authentication engine.
	MetricVerifyFailure = metrics.MetricVerifyFailure
	// MetricVerifyReplayBlocked is an exported constant or variable used by the authentication engine.
	MetricVerifyReplayBlocked = metrics.MetricVerifyReplayBlocked
	// MetricVerifyExhausted is an exported constant or variable used by the authentication engine.
	MetricVerifyExhausted = metrics.MetricVerifyExhausted
	// MetricResendSuccess is an exported constant or variable used by the authentication engine.
	MetricResendSuccess = metrics.MetricResendSuccess
	// MetricResendBlocked is an exported constant or variable used by the authentication engine.
	MetricResendBlocked = metrics.MetricResendBlocked
	// MetricFederatedSuccess is an exported constant or variable used by the authentication engine.
	MetricFederatedSuccess = metrics.MetricFederatedSuccess
	// MetricFederatedFailure is an exported constant or variable used by the authentication engine.
	MetricFederatedFailure = metrics.MetricFederatedFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess = metrics.MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure = metrics.MetricRefreshFailure
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout = metrics.MetricLogout
	// MetricIdentityCreated is an exported constant or variable used by the authentication engine.
	MetricIdentityCreated = metrics.MetricIdentityCreated
	// MetricIdentityConflictRetried is an exported constant or variable used by the authentication engine.
	MetricIdentityConflictRetried = metrics.MetricIdentityConflictRetried
	// MetricDeliveryFailure is an exported constant or variable used by the authentication engine.
	MetricDeliveryFailure = metrics.MetricDeliveryFailure
)

// Metrics defines a public type used by authcore APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics = metrics.Metrics

// MetricsSnapshot defines a public type used by authcore APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot = metrics.Snapshot

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics may return an error when input validation, dependency calls, or security checks fail.
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return metrics.New(metrics.Config{Enabled: cfg.Enabled})
}
