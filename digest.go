package cookielab

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestLen is the number of hex characters kept from the SHA-256 sum.
const digestLen = 16

// Digest reduces a cookie value to a stable short token for change detection.
// Diagnostics carry these tokens instead of raw values to keep PII out of the
// report. Missing values normalize to the digest of "".
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:digestLen]
}
