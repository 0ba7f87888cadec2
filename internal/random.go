package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const otpDigits = 6

// otpSpan is the size of the 6-digit code space [100000, 999999].
var otpSpan = big.NewInt(900000)

// NewChallengeID returns a fresh opaque challenge identifier. The value is
// shared with clients, so it must carry no information about the code.
func NewChallengeID() string {
	return uuid.NewString()
}

// NewUserID returns a fresh identity record identifier.
func NewUserID() string {
	return uuid.NewString()
}

// NewOTP generates a cryptographically random 6-digit code, uniform over
// 100000–999999.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()+100000), nil
}

// NewRefreshToken generates a raw refresh-token secret: two random UUIDs
// joined by a dot, 256 bits of raw entropy. The raw value is handed to the
// caller exactly once; only its hash is ever persisted.
func NewRefreshToken() string {
	return uuid.NewString() + "." + uuid.NewString()
}

// HashOTP produces the storable digest of an OTP code. The salt prevents
// precomputed lookup of the tiny 1e6 code space.
func HashOTP(code, salt string) [32]byte {
	return sha256.Sum256([]byte(code + salt))
}

// HashRefreshToken produces the storable digest of a raw refresh token.
// Lookup happens by hash equality on an indexed key, so no salt is needed.
func HashRefreshToken(raw string) [32]byte {
	return sha256.Sum256([]byte(raw))
}

// ConstantTimeEqual compares two digests without data-dependent timing.
// The OTP comparison path is attacker-observable per guess and must not
// leak how many bytes matched.
func ConstantTimeEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
