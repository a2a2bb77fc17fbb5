package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-char hex record id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DeterministicID derives a stable 32-char id from its parts via a
// name-based UUID. Fixture rows use it so reseeding hits the same primary
// keys instead of inserting duplicates.
func DeterministicID(parts ...string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "\x00")))
	return strings.ReplaceAll(id.String(), "-", "")
}
