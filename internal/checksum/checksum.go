// Package checksum compares note files with their stored bodies.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether a content file holds exactly body.
func Matches(file []byte, body string) bool {
	if len(file) != len(body) {
		return false
	}
	return sha256.Sum256(file) == sha256.Sum256([]byte(body))
}
