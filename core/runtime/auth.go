package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/storage"
)

const (
	emailField    = "email"
	passwordField = "password"
	roleField     = "role"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string         `json:"token"`
	Exp   int64          `json:"exp"`
	User  map[string]any `json:"user"`
}

// Login checks credentials against an auth collection and issues a token.
func (r *Runtime) Login(ctx context.Context, collection, email, password string) (LoginResult, error) {
	col, err := r.Collection(collection)
	if err != nil {
		return LoginResult{}, err
	}
	if !col.Source.Auth || r.tokens == nil {
		return LoginResult{}, fmt.Errorf("%w: %s", ErrNotAuthCollection, collection)
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	doc, err := r.storage.Get(ctx, col.Slug, emailField, email)
	if errors.Is(err, storage.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	hash, _ := doc[passwordField].(string)
	if !r.hasher.Compare([]byte(hash), password) {
		r.logger.Info().
			Str("collection", col.Slug).
			Str("email", email).
			Msg("login failed")
		return LoginResult{}, ErrInvalidCredentials
	}

	user := userFromDoc(doc)
	token, exp, err := r.tokens.Issue(*user)
	if err != nil {
		return LoginResult{}, err
	}

	stripInternal(col, doc)
	r.publish(ctx, col, "login", user.ID, doc, user)

	return LoginResult{Token: token, Exp: exp.Unix(), User: doc}, nil
}

// Authenticate resolves a bearer token to the user it was issued to.
// The user must still exist.
func (r *Runtime) Authenticate(ctx context.Context, collection, token string) (*schema.User, error) {
	if r.tokens == nil {
		return nil, ErrUnauthorized
	}

	claimed, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	doc, err := r.storage.Get(ctx, collection, schema.FieldID, claimed.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	return userFromDoc(doc), nil
}

func userFromDoc(doc map[string]any) *schema.User {
	user := &schema.User{}
	user.ID, _ = doc[schema.FieldID].(string)
	user.Email, _ = doc[emailField].(string)
	user.Role, _ = doc[roleField].(string)
	return user
}
