// Package auth issues and verifies the bearer tokens handed out by the
// login endpoint of auth collections. Tokens are stateless HS256 JWTs.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token.
const Issuer = "contentgate"

// DefaultExpiration applies when no token lifetime is configured.
const DefaultExpiration = 24 * time.Hour

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by a token.
type Claims struct {
	UserID     string `json:"uid"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	Collection string `json:"col,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into the caller seen by access rules.
func (c *Claims) User() *schema.User {
	return &schema.User{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// TokenService signs and validates tokens. Safe for concurrent use.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	clock      ports.Clock
	collection string
}

// NewTokenService creates a token service.
// If secret is empty, a random 32-byte secret is generated, which
// invalidates tokens on restart.
func NewTokenService(secret string, expiration time.Duration, clock ports.Clock) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	return &TokenService{
		secret:     secretBytes,
		expiration: expiration,
		clock:      clock,
		collection: "users",
	}
}

// Expiration returns the lifetime of issued tokens.
func (s *TokenService) Expiration() time.Duration {
	return s.expiration
}

// Issue creates a token for the user.
func (s *TokenService) Issue(user schema.User) (string, time.Time, error) {
	if user.ID == "" {
		return "", time.Time{}, errors.New("issue token: user has no id")
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		Collection: s.collection,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Verify validates a token and returns the user it was issued to.
func (s *TokenService) Verify(tokenString string) (*schema.User, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}

// Refresh issues a new token for the holder of a valid one.
func (s *TokenService) Refresh(tokenString string) (string, time.Time, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.Issue(*claims.User())
}

var _ ports.TokenIssuer = (*TokenService)(nil)

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
