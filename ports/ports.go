// Package ports defines the interfaces between the runtime and its
// infrastructure. Implementations live in adapters/.
package ports

import (
	"time"

	"github.com/artpar/contentgate/core/schema"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers for documents and array rows.
type IDGenerator interface {
	New() string
}

// Hasher provides password hashing for auth collections.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// TokenIssuer issues and verifies bearer tokens for logged in users.
type TokenIssuer interface {
	// Issue creates a token for the user and returns it with its expiry.
	Issue(user schema.User) (string, time.Time, error)

	// Verify parses a token and returns the user it was issued to.
	Verify(token string) (*schema.User, error)
}
