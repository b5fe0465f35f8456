package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResetTokenSize is the entropy, in bytes, of a password reset token.
const ResetTokenSize = 32

// GenerateToken creates a cryptographically random token of size bytes,
// returned hex-encoded. The plaintext is handed to the caller exactly once;
// only its fingerprint is ever stored.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns the deterministic SHA-256 fingerprint of a token,
// hex-encoded. Lookup of a presented token hashes the candidate and compares
// fingerprints, so the database never holds a usable credential.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
