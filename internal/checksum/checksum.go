// Package checksum computes the content digests used as document ETags
// and as fallback slugs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the number of hex characters returned by Short.
const ShortLen = 8

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first ShortLen hex characters of the digest of s.
func Short(s string) string {
	return Sum([]byte(s))[:ShortLen]
}
