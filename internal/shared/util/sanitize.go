package util

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when a phone number has too few or too many digits.
var ErrInvalidPhone = errors.New("invalid phone number")

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// NormalizePhone strips spaces, dashes and brackets from a phone number.
// A leading plus is kept. The result is safe to use as a path segment.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	if digits < 6 || digits > 20 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
