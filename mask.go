package authcore

import "strings"

// MaskPhone describes the maskphone operation and its observable behavior.
//
// MaskPhone hides the middle of a phone number, keeping the country-code
// prefix and the last three digits: "+971501234567" becomes "+971******567".
// Numbers too short to mask meaningfully are fully starred.
func MaskPhone(phone string) string {
	const keepPrefix = 4
	const keepSuffix = 3

	if len(phone) <= keepPrefix+keepSuffix {
		return strings.Repeat("*", len(phone))
	}
	hidden := len(phone) - keepPrefix - keepSuffix
	if hidden > 6 {
		hidden = 6
	}
	return phone[:keepPrefix] + strings.Repeat("*", hidden) + phone[len(phone)-keepSuffix:]
}

// MaskEmail describes the maskemail operation and its observable behavior.
//
// MaskEmail keeps the first character of the local part and the full domain:
// "alice@example.com" becomes "a***@example.com". Strings without "@" are
// fully starred.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}
	return email[:1] + "***" + email[at:]
}

// maskDestination picks the masking rule matching the login method.
func maskDestination(method LoginMethod, destination string) string {
	if method == MethodEmail {
		return MaskEmail(destination)
	}
	return MaskPhone(destination)
}
