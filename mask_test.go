package authcore

import (
	"strings"
	"testing"
)

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+971501234567", "+971******567"},
		{"+15551234", "+155**234"},
		{"+1234567890123456", "+123******456"},
		{"+1234567", "*******"},
		{"12345", "*****"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskPhone(tc.in); got != tc.want {
			t.Fatalf("MaskPhone(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a***@example.com"},
		{"a@b.co", "a***@b.co"},
		{"no-at-sign", "**********"},
		{"@leading.at", "***********"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Fatalf("MaskEmail(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestMaskPhoneNeverLeaksMiddleDigits(t *testing.T) {
	phone := "+971501234567"
	masked := MaskPhone(phone)
	if strings.Contains(masked, "50123") {
		t.Fatalf("masked phone %q leaks middle digits", masked)
	}
}
