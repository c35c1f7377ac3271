package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const tokenBytes = 32

// GenerateToken returns a 256-bit random token encoded as hex.
// Used for session ids, CSRF tokens and invitation tokens.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
