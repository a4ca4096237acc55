package state

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
)

// GenerateID mints a fresh retry-cycle identifier. It prefers a
// cryptographically random UUID, falls back to raw crypto/rand bytes, and as
// a last resort composes a time + pseudo-random token. The last tier is a
// documented weakness for hosts without a randomness source; the identifier
// is not a security boundary.
func GenerateID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}

	var buf [16]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return hex.EncodeToString(buf[:])
	}

	return fmt.Sprintf("%d-%06d", time.Now().UnixNano(), mrand.Intn(1_000_000))
}
