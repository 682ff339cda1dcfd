// Package util holds small helpers shared across packages.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier, optionally namespaced by prefix
// ("jti" yields "jti_<hex>").
func NewID(prefix string) string {
	return tag(prefix, randomHex(16))
}

// NewToken returns an opaque credential twice as long as an id, for values
// handed to callers such as refresh tokens.
func NewToken(prefix string) string {
	return tag(prefix, randomHex(32))
}

func tag(prefix, value string) string {
	if prefix == "" {
		return value
	}
	return prefix + "_" + value
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
