package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint digests the request content bound to an idempotency key.
// The simulated outcome is excluded so a failed attempt can be retried
// with a different outcome under the same key.
func Fingerprint(key string, amount int64) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", key, amount)))
	return hex.EncodeToString(hash[:])
}
