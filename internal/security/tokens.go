package security

import (
	"crypto/rand"
	"encoding/hex"
)

// Byte lengths before hex encoding. Session tokens are bearer credentials and
// get the larger size; verification ids only need to be unguessable within a
// 5-minute window.
const (
	sessionTokenBytes   = 32
	verificationIDBytes = 16
)

// NewSessionToken returns an unguessable opaque session token (64 hex chars).
func NewSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// NewVerificationID returns an opaque client-facing verification id
// (32 hex chars), distinct from any internal row id.
func NewVerificationID() (string, error) {
	return randomHex(verificationIDBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
