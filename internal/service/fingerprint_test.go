package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("k1", 100)

	// Deterministic, hex-encoded sha256
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("k1", 100))

	// Sensitive to both key and amount
	assert.NotEqual(t, fp, Fingerprint("k1", 200))
	assert.NotEqual(t, fp, Fingerprint("k2", 100))

	// Key/amount boundary is unambiguous
	assert.NotEqual(t, Fingerprint("k1:1", 0), Fingerprint("k1", 10))
}
