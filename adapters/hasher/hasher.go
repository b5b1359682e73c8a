// Package hasher provides password hashing for auth collections.
package hasher

import (
	"errors"

	"github.com/artpar/contentgate/ports"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost.
// Out of range costs fall back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Cost returns the work factor used for new hashes.
func (h *Bcrypt) Cost() int {
	return h.cost
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	if err := checkPassword(plaintext); err != nil {
		return nil, err
	}
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost.
func (h *Bcrypt) NeedsRehash(hash []byte) bool {
	cost, err := bcrypt.Cost(hash)
	return err != nil || cost != h.cost
}

var _ ports.Hasher = (*Bcrypt)(nil)

// Fake stores plaintext. Tests only.
type Fake struct{}

// Hash returns the plaintext as bytes.
func (Fake) Hash(plaintext string) ([]byte, error) {
	if err := checkPassword(plaintext); err != nil {
		return nil, err
	}
	return []byte(plaintext), nil
}

// Compare does simple equality check.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return len(hash) > 0 && string(hash) == plaintext
}

var _ ports.Hasher = Fake{}

func checkPassword(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrEmptyPassword
	case len(plaintext) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}
