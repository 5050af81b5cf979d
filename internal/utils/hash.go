package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the hex-encoded sha256 digest of s. Version ids
// truncate this digest, so the full 64-character form is always produced.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
