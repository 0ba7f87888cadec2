package authcore

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv describes the configfromenv operation and its observable behavior.
//
// ConfigFromEnv loads a .env file when present, then overlays environment
// variables onto the default configuration. Unset and unparseable variables
// keep their defaults; the only hard requirement, the signing secret, is
// still enforced later by Config.Validate.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Token.Secret = []byte(v)
	}
	// ACCESS_TOKEN_EXPIRY takes precedence; ACCESS_TOKEN_EXPIRY_DAYS is the
	// legacy day-count knob still set in older deployments.
	if v := os.Getenv("ACCESS_TOKEN_EXPIRY"); v != "" {
		cfg.Token.AccessTTL = ParseExpiry(v, cfg.Token.AccessTTL)
	} else if v := os.Getenv("ACCESS_TOKEN_EXPIRY_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.Token.AccessTTL = time.Duration(days) * 24 * time.Hour
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_EXPIRY"); v != "" {
		cfg.Token.RefreshTTL = ParseExpiry(v, cfg.Token.RefreshTTL)
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.Token.Issuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.Token.Audience = v
	}

	if v := os.Getenv("OTP_SALT"); v != "" {
		cfg.OTP.Salt = v
	}
	if v := os.Getenv("OTP_TTL_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.OTP.TTL = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("OTP_RESEND_COOLDOWN_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.OTP.ResendCooldown = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("OTP_BYPASS_ENABLED"); v != "" {
		cfg.Bypass.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OTP_BYPASS_CODE"); v != "" {
		cfg.Bypass.Code = v
	}

	if v := os.Getenv("REDIS_KEY_PREFIX"); v != "" {
		cfg.Store.KeyPrefix = v
	}

	if os.Getenv("APP_ENV") == "production" {
		cfg.Security.ProductionMode = true
		cfg.Security.LogOTPOnDeliveryFailure = false
	}

	return cfg
}
