// Package uuidutil generates the random identifiers used for the
// monitor identity and journal record IDs.
package uuidutil

import (
	"crypto/rand"
	"encoding/hex"
)

// NewV4 returns a random RFC 4122 version-4 UUID. crypto/rand failing
// means the host's entropy source is broken; there is nothing sensible
// to do with an error at every call site, so it panics.
func NewV4() string {
	var u [16]byte
	if _, err := rand.Read(u[:]); err != nil {
		panic("vigil: crypto/rand failed: " + err.Error())
	}
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80

	h := hex.EncodeToString(u[:])
	return h[:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:]
}
