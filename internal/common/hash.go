package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex digests the input with SHA-256 and returns lowercase hex.
func Sha256Hex(input string) string {
	h := sha256.New()
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}
