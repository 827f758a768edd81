// ABOUTME: ULID generation helper using crypto/rand for event IDs.
// ABOUTME: Centralizes creation so all code shares the same entropy source.
package board

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// NewULID generates a new ULID using crypto/rand entropy.
func NewULID() ulid.ULID {
	return ulid.MustNew(ulid.Now(), rand.Reader)
}
