package authcore

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	OTP      OTPConfig
	Token    TokenConfig
	Bypass   BypassConfig
	Limits   LimitsConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by authcore APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	MaxResends     int
	// Salt is mixed into every stored OTP digest. Must be overridden in
	// production.
	Salt string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Secret signs HS256 access tokens. Minimum 32 bytes.
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

/*
====================================
BYPASS CONFIG
====================================
*/

// BypassConfig defines a public type used by authcore APIs.
//
// BypassConfig enables a fixed code that verifies any pending challenge.
// Intended for app-store review accounts; forbidden in production mode.
type BypassConfig struct {
	Enabled bool
	Code    string
}

/*
====================================
LIMITS CONFIG
====================================
*/

// LimitsConfig defines a public type used by authcore APIs.
//
// LimitsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LimitsConfig struct {
	EnableDestinationThrottle bool
	EnableIPThrottle          bool
	StartMaxPerWindow         int
	StartWindow               time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by authcore APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	KeyPrefix string
	// ChallengeRetention bounds how long challenge records stay readable
	// after creation. Verified challenges are kept, not deleted, so replay
	// attempts surface as "already used" until retention expires.
	ChallengeRetention time.Duration
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by authcore APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
	// LogOTPOnDeliveryFailure logs the plaintext code when the delivery
	// gateway reports failure. Development aid; forbidden in production
	// mode.
	LogOTPOnDeliveryFailure bool
}

// defaultSalt is the development-only OTP salt. Validate rejects it when
// ProductionMode is set.
const defaultSalt = "authcore-dev-salt"

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL:            5 * time.Minute,
			ResendCooldown: 30 * time.Second,
			MaxAttempts:    5,
			MaxResends:     5,
			Salt:           defaultSalt,
		},
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "authcore",
			Audience:   "authcore-mobile",
			Leeway:     30 * time.Second,
		},
		Bypass: BypassConfig{
			Enabled: false,
		},
		Limits: LimitsConfig{
			EnableDestinationThrottle: true,
			EnableIPThrottle:          true,
			StartMaxPerWindow:         5,
			StartWindow:               15 * time.Minute,
		},
		Store: StoreConfig{
			KeyPrefix:          "ac",
			ChallengeRetention: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			LogOTPOnDeliveryFailure: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.ResendCooldown <= 0 {
		return errors.New("OTP ResendCooldown must be > 0")
	}
	if c.OTP.ResendCooldown >= c.OTP.TTL {
		return errors.New("OTP ResendCooldown must be < TTL")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.MaxResends < 0 {
		return errors.New("OTP MaxResends must be >= 0")
	}
	if c.OTP.Salt == "" {
		return errors.New("OTP Salt is required")
	}

	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}

	// Bypass
	if c.Bypass.Enabled && len(c.Bypass.Code) != 6 {
		return errors.New("Bypass Code must be exactly 6 digits when enabled")
	}

	// Limits
	if c.Limits.EnableDestinationThrottle || c.Limits.EnableIPThrottle {
		if c.Limits.StartMaxPerWindow <= 0 {
			return errors.New("Limits StartMaxPerWindow must be > 0 when throttling is enabled")
		}
		if c.Limits.StartWindow <= 0 {
			return errors.New("Limits StartWindow must be > 0 when throttling is enabled")
		}
	}

	// Store
	if c.Store.KeyPrefix == "" {
		return errors.New("Store KeyPrefix is required")
	}
	if c.Store.ChallengeRetention < c.OTP.TTL {
		return errors.New("Store ChallengeRetention must be >= OTP TTL")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.Bypass.Enabled {
			return errors.New("ProductionMode forbids bypass codes")
		}
		if c.OTP.Salt == defaultSalt {
			return errors.New("ProductionMode requires a non-default OTP Salt")
		}
		if c.Security.LogOTPOnDeliveryFailure {
			return errors.New("ProductionMode forbids logging OTP codes")
		}
		if c.Token.AccessTTL > time.Hour {
			return errors.New("ProductionMode requires Token AccessTTL <= 1h")
		}
		if c.Token.RefreshTTL > 90*24*time.Hour {
			return errors.New("ProductionMode requires Token RefreshTTL <= 90d")
		}
		if !c.Limits.EnableDestinationThrottle || !c.Limits.EnableIPThrottle {
			return errors.New("ProductionMode requires start throttles")
		}
	}

	return nil
}

/*
====================================
EXPIRY PARSING
====================================
*/

// ParseExpiry describes the parseexpiry operation and its observable behavior.
//
// ParseExpiry reads a duration written as "<n>m", "<n>h", or "<n>d". Any
// value it cannot parse, including an empty string, yields fallback rather
// than an error so a misconfigured environment degrades to defaults.
func ParseExpiry(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if len(raw) < 2 {
		return fallback
	}
	n, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || n <= 0 {
		return fallback
	}
	switch raw[len(raw)-1] {
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return fallback
	}
}
