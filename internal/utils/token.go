package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateResetCredential returns a random 32-byte hex string. The plaintext
// is emailed to the user once; only its hash is persisted.
func GenerateResetCredential() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashResetCredential is the at-rest form of a reset credential. A leaked
// database row cannot be replayed without the original random value.
func HashResetCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
