package security

import (
	"crypto/rand"
)

const codeDigits = 6

// GenerateCode returns a 6-digit numeric one-time code (e.g. "123456").
// Uses crypto/rand for randomness.
func GenerateCode() (string, error) {
	b := make([]byte, codeDigits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}
