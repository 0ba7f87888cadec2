package authcore

import "time"

// LoginMethod defines a public type used by authcore APIs.
//
// LoginMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginMethod string

const (
	// MethodPhone is an exported constant or variable used by the authentication engine.
	MethodPhone LoginMethod = "phone"
	// MethodEmail is an exported constant or variable used by the authentication engine.
	MethodEmail LoginMethod = "email"
)

// Device defines a public type used by authcore APIs.
//
// Device carries the client device metadata captured at challenge start. All
// fields are optional; empty fields are simply not persisted.
type Device struct {
	ID         string
	Platform   string // "ios" or "android"
	AppVersion string
	PushToken  string
}

// StartLoginRequest defines a public type used by authcore APIs.
//
// StartLoginRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StartLoginRequest struct {
	Method      LoginMethod
	PhoneNumber string
	Email       string
	Language    string
	Device      Device
}

// StartResult defines a public type used by authcore APIs.
//
// StartResult is the client-visible outcome of StartLogin. Destination is
// masked; the OTP code itself never appears here.
type StartResult struct {
	ChallengeID string
	Destination string // masked, e.g. "+971***567" or "a***@example.com"
	ExpiresIn   time.Duration
	ResendAfter time.Duration
}

// VerifyOTPRequest defines a public type used by authcore APIs.
//
// VerifyOTPRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifyOTPRequest struct {
	ChallengeID string
	Code        string
}

// LoginResult defines a public type used by authcore APIs.
//
// LoginResult is returned by every flow that ends in an authenticated
// session: VerifyOTP, FederatedLogin, and Refresh.
type LoginResult struct {
	UserID          string
	AccessToken     string
	RefreshToken    string
	IsNewUser       bool
	ProfileComplete bool
}

// ResendResult defines a public type used by authcore APIs.
//
// ResendResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResendResult struct {
	ChallengeID string
	Destination string // masked
	ExpiresIn   time.Duration
	ResendAfter time.Duration
}

// FederatedLoginRequest defines a public type used by authcore APIs.
//
// FederatedLoginRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FederatedLoginRequest struct {
	IDToken  string
	Language string
	Device   Device
}
