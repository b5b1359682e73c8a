package http

import (
	"fmt"
	"net/http"

	"github.com/artpar/contentgate/core/runtime"
	"github.com/go-chi/chi/v5"
)

// handleLogin handles POST /api/{slug}/login
func (c *Channel) handleLogin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, ok := c.collection(slug); !ok {
		c.writeError(w, r, slug, fmt.Errorf("%w: %s", runtime.ErrUnknownCollection, slug))
		return
	}

	data, err := decodeBody(w, r)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: err.Error()})
		return
	}
	email, _ := data["email"].(string)
	password, _ := data["password"].(string)

	result, err := c.runtime.Login(r.Context(), slug, email, password)
	if err != nil {
		c.writeError(w, r, slug, err)
		return
	}

	if c.metrics != nil {
		c.metrics.Logins.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Authentication Passed",
		"token":   result.Token,
		"exp":     result.Exp,
		"user":    result.User,
	})
}

// handleMe handles GET /api/{slug}/me
func (c *Channel) handleMe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	user := userFrom(r.Context())
	if user == nil || slug != c.opts.AuthCollection {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	result, err := c.runtime.FindByID(r.Context(), slug, runtime.Input{
		ID:             user.ID,
		User:           user,
		OverrideAccess: true,
	})
	if err != nil {
		c.writeError(w, r, slug, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": result.Doc})
}
