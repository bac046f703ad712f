package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex string suitable as an internal identifier
// (user IDs, session tokens). Request identifiers use store.NewRequestID
// instead, which is short enough to share by hand.
func NewID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "id-unknown"
	}
	return hex.EncodeToString(b[:])
}
