package internaldefs

import (
	authcore "github.com/24digi/authcore"
)

// CounterDef defines a public type used by authcore APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricStartSuccess, Name: "authcore_otp_start_success_total", Help: "Created OTP challenges."},
	{ID: authcore.MetricStartValidationFailed, Name: "authcore_otp_start_validation_failed_total", Help: "Challenge starts rejected for invalid input."},
	{ID: authcore.MetricStartRateLimited, Name: "authcore_otp_start_rate_limited_total", Help: "Rate-limited challenge starts."},
	{ID: authcore.MetricVerifySuccess, Name: "authcore_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: authcore.MetricVerifyFailure, Name: "authcore_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: authcore.MetricVerifyReplayBlocked, Name: "authcore_otp_verify_replay_blocked_total", Help: "Verification attempts against already-used challenges."},
	{ID: authcore.MetricVerifyExhausted, Name: "authcore_otp_verify_exhausted_total", Help: "Verification attempts against exhausted challenges."},
	{ID: authcore.MetricResendSuccess, Name: "authcore_otp_resend_success_total", Help: "Successful OTP resends."},
	{ID: authcore.MetricResendBlocked, Name: "authcore_otp_resend_blocked_total", Help: "Blocked OTP resends."},
	{ID: authcore.MetricFederatedSuccess, Name: "authcore_federated_login_success_total", Help: "Successful federated logins."},
	{ID: authcore.MetricFederatedFailure, Name: "authcore_federated_login_failure_total", Help: "Failed federated logins."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricIdentityCreated, Name: "authcore_identity_created_total", Help: "Identities created on first login."},
	{ID: authcore.MetricIdentityConflictRetried, Name: "authcore_identity_conflict_retried_total", Help: "First-login races resolved by adopting the winner."},
	{ID: authcore.MetricDeliveryFailure, Name: "authcore_otp_delivery_failure_total", Help: "OTP deliveries reported failed by the gateway."},
}

// AuditDroppedName is an exported constant or variable used by the authentication engine.
const AuditDroppedName = "authcore_audit_dropped_total"

// AuditDroppedHelp is an exported constant or variable used by the authentication engine.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
