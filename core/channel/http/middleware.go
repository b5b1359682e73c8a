package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/contentgate/adapters/auth"
	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/core/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type contextKey string

const userKey contextKey = "user"

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *schema.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// userFrom returns the authenticated user, nil for anonymous requests.
func userFrom(ctx context.Context) *schema.User {
	user, _ := ctx.Value(userKey).(*schema.User)
	return user
}

// internal reports whether a path is an operational endpoint that is
// neither logged nor measured.
func internal(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if internal(r.URL.Path) {
				return
			}

			event := logger.Debug()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware creates middleware that records request metrics.
// Routes are labelled by their chi pattern to keep cardinality bounded.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internal(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			route := metrics.Route(pattern)

			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// authenticate resolves an "Authorization: Bearer" (or "JWT") token to a
// user. Requests without a token continue anonymously; a token that does
// not verify is rejected.
func (c *Channel) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := c.runtime.Authenticate(r.Context(), c.opts.AuthCollection, token)
		if err != nil {
			reason := "invalid_token"
			if !errors.Is(err, auth.ErrInvalidToken) {
				reason = "unknown_user"
			}
			c.authFailed(reason)
			c.writeError(w, r, c.opts.AuthCollection, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	for _, scheme := range []string{"Bearer ", "JWT "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}
	return ""
}

func (c *Channel) authFailed(reason string) {
	if c.metrics != nil {
		c.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}
