package http

import (
	"errors"
	"net/http"

	"github.com/artpar/contentgate/adapters/auth"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/storage"
	"github.com/go-chi/chi/v5/middleware"
)

// apiError is one entry of an error response.
type apiError struct {
	Field      string `json:"field,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Message    string `json:"message"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Errors []apiError `json:"errors"`
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	writeJSON(w, status, errorResponse{Errors: errs})
}

// writeError maps runtime and storage errors to HTTP responses.
func (c *Channel) writeError(w http.ResponseWriter, r *http.Request, collection string, err error) {
	var (
		validation *runtime.ValidationError
		duplicate  *storage.DuplicateError
		reference  *storage.ReferenceError
	)

	switch {
	case errors.As(err, &validation):
		errs := make([]apiError, 0, len(validation.Result.Errors))
		for _, e := range validation.Result.Errors {
			errs = append(errs, apiError{Field: e.Field, Constraint: e.Constraint, Message: e.Message})
			if c.metrics != nil {
				c.metrics.ValidationFailures.WithLabelValues(collection, e.Constraint).Inc()
			}
		}
		writeErrors(w, http.StatusBadRequest, errs...)

	case errors.As(err, &duplicate):
		if c.metrics != nil {
			c.metrics.ValidationFailures.WithLabelValues(collection, schema.ConstraintUnique).Inc()
		}
		writeErrors(w, http.StatusConflict, apiError{
			Field:      duplicate.Field,
			Constraint: schema.ConstraintUnique,
			Message:    "value must be unique",
		})

	case errors.As(err, &reference):
		if c.metrics != nil {
			c.metrics.ValidationFailures.WithLabelValues(collection, schema.ConstraintReference).Inc()
		}
		writeErrors(w, http.StatusBadRequest, apiError{
			Field:      reference.Field,
			Constraint: schema.ConstraintReference,
			Message:    reference.Error(),
		})

	case errors.Is(err, storage.ErrInvalidQuery):
		writeErrors(w, http.StatusBadRequest, apiError{Message: err.Error()})

	case errors.Is(err, runtime.ErrInvalidCredentials):
		c.authFailed("invalid_credentials")
		writeErrors(w, http.StatusUnauthorized, apiError{Message: err.Error()})

	case errors.Is(err, runtime.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeErrors(w, http.StatusUnauthorized, apiError{Message: err.Error()})

	case errors.Is(err, runtime.ErrForbidden):
		c.authFailed("forbidden")
		writeErrors(w, http.StatusForbidden, apiError{Message: err.Error()})

	case errors.Is(err, runtime.ErrUnknownCollection), errors.Is(err, runtime.ErrNotAuthCollection),
		runtime.IsNotFound(err):
		writeErrors(w, http.StatusNotFound, apiError{Message: err.Error()})

	default:
		c.logger.Error().
			Err(err).
			Str("collection", collection).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeErrors(w, http.StatusInternalServerError, apiError{Message: "something went wrong"})
	}
}
