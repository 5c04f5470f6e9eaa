package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// PasscodeAlphabet is the character set for hand-off passcodes. Uppercase
// alphanumerics only; submissions are normalized to the same set.
const PasscodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PasscodeLength is the fixed length of a hand-off passcode.
const PasscodeLength = 6

// GenerateSecureToken creates a random, URL-safe string.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GeneratePasscode creates a 6-character uppercase alphanumeric passcode
// using crypto/rand. Rejection sampling keeps the draw uniform over the
// alphabet.
func GeneratePasscode() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	// Largest multiple of len(alphabet) below 256.
	max := byte(256 - 256%len(PasscodeAlphabet))
	for sb.Len() < PasscodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("rand.Read failed: %w", err)
		}
		if buf[0] >= max {
			continue
		}
		sb.WriteByte(PasscodeAlphabet[int(buf[0])%len(PasscodeAlphabet)])
	}
	return sb.String(), nil
}

// GeneratePin creates a 4-digit numeric PIN for consumer-to-courier
// authorization.
func GeneratePin() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for sb.Len() < 4 {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("rand.Read failed: %w", err)
		}
		if buf[0] >= 250 {
			continue
		}
		sb.WriteByte('0' + buf[0]%10)
	}
	return sb.String(), nil
}

// NormalizePasscode upper-cases a submitted code and strips anything outside
// the passcode alphabet, so "ab12cd", "AB-12-CD" and "AB12CD" all compare
// equal.
func NormalizePasscode(code string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
