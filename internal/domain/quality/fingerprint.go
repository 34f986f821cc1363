package quality

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a stable content fingerprint for near-duplicate
// detection. Documents that differ only in casing, punctuation, or
// whitespace collapse to the same fingerprint.
func Fingerprint(body string) string {
	words := splitWords(body)
	sum := sha256.Sum256([]byte(strings.Join(words, " ")))
	return hex.EncodeToString(sum[:])[:16]
}
