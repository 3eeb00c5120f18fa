package database

import (
	"math/rand"
)

// Tracking tokens are short public identifiers allowing anonymous status
// lookup, conventionally PMC-XXXXXX.
const tokenPrefix = "PMC-"
const tokenChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const tokenLen = 6

// generateTrackingToken runs on the concurrent submission path, so it uses
// the locked package-level rand source.
func generateTrackingToken() string {
	b := make([]byte, tokenLen)
	for i := range b {
		b[i] = tokenChars[rand.Intn(len(tokenChars))]
	}
	return tokenPrefix + string(b)
}
