// Package http provides the REST channel. Every registered collection is
// served under /api/{slug}; auth collections also get a login endpoint and
// /api/_schema describes collections for admin clients.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// reserved query parameters of list requests; everything else is a filter
var listParams = map[string]bool{"limit": true, "page": true, "sort": true, "depth": true}

// Options configures the channel.
type Options struct {
	// Addr is the listen address. Empty means the channel only provides
	// a Handler and Start does not listen.
	Addr string

	// AuthCollection is the collection bearer tokens are resolved against.
	AuthCollection string

	// Metrics records request metrics when set.
	Metrics *metrics.Collector

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	Logger zerolog.Logger
}

// Channel implements the HTTP channel for collections.
type Channel struct {
	router  chi.Router
	runtime *runtime.Runtime
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu          sync.RWMutex
	collections map[string]convention.Derived
	order       []string

	server *http.Server
}

// New creates a new HTTP channel.
func New(rt *runtime.Runtime, opts Options) *Channel {
	if opts.AuthCollection == "" {
		opts.AuthCollection = "users"
	}

	c := &Channel{
		router:      chi.NewRouter(),
		runtime:     rt,
		opts:        opts,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		collections: make(map[string]convention.Derived),
	}

	r := c.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(c.logger))
	r.Use(middleware.Recoverer)
	if c.metrics != nil {
		r.Use(NewMetricsMiddleware(c.metrics))
	}

	r.Get("/health", c.handleHealth)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(c.authenticate)

		r.Mount("/_schema", NewSchemaHandler(c).Routes())

		r.Get("/{slug}", c.handleFind)
		r.Post("/{slug}", c.handleCreate)
		r.Post("/{slug}/login", c.handleLogin)
		r.Get("/{slug}/me", c.handleMe)
		r.Get("/{slug}/{id}", c.handleFindByID)
		r.Patch("/{slug}/{id}", c.handleUpdate)
		r.Delete("/{slug}/{id}", c.handleDelete)
	})

	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Handler returns the HTTP handler.
func (c *Channel) Handler() http.Handler {
	return c.router
}

// Register makes a collection reachable under /api/{slug}.
func (c *Channel) Register(col convention.Derived) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.collections[col.Slug]; !exists {
		c.order = append(c.order, col.Slug)
	}
	c.collections[col.Slug] = col
	return nil
}

// collection returns a registered collection.
func (c *Channel) collection(slug string) (convention.Derived, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.collections[slug]
	return col, ok
}

// list returns the registered collections in registration order.
func (c *Channel) list() []convention.Derived {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cols := make([]convention.Derived, 0, len(c.order))
	for _, slug := range c.order {
		cols = append(cols, c.collections[slug])
	}
	return cols
}

// Start starts the HTTP server.
func (c *Channel) Start(ctx context.Context) error {
	if c.opts.Addr == "" {
		return nil
	}

	c.server = &http.Server{
		Addr:              c.opts.Addr,
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		c.logger.Info().Str("addr", c.opts.Addr).Msg("http channel listening")
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Msg("http server error")
		}
	}()

	return nil
}

// Stop stops the HTTP server.
func (c *Channel) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

func (c *Channel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"collections": len(c.list()),
	})
}

// handleFind handles GET /api/{slug}
func (c *Channel) handleFind(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, ok := c.collection(slug); !ok {
		c.writeError(w, r, slug, fmt.Errorf("%w: %s", runtime.ErrUnknownCollection, slug))
		return
	}

	query, err := parseQuery(r)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: err.Error()})
		return
	}

	result, err := c.runtime.Find(r.Context(), slug, runtime.Input{
		Query: query,
		User:  userFrom(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, slug, err)
		return
	}

	writeJSON(w, http.StatusOK, result.List)
}

// handleFindByID handles GET /api/{slug}/{id}
func (c *Channel) handleFindByID(w http.ResponseWriter, r *http.Request) {
	c.doSingle(w, r, runtime.OpFindByID, http.StatusOK, "")
}

// handleCreate handles POST /api/{slug}
func (c *Channel) handleCreate(w http.ResponseWriter, r *http.Request) {
	c.doSingle(w, r, runtime.OpCreate, http.StatusCreated, "created successfully")
}

// handleUpdate handles PATCH /api/{slug}/{id}
func (c *Channel) handleUpdate(w http.ResponseWriter, r *http.Request) {
	c.doSingle(w, r, runtime.OpUpdate, http.StatusOK, "updated successfully")
}

// handleDelete handles DELETE /api/{slug}/{id}
func (c *Channel) handleDelete(w http.ResponseWriter, r *http.Request) {
	c.doSingle(w, r, runtime.OpDelete, http.StatusOK, "deleted successfully")
}

// doSingle runs a single-document operation and writes {doc, message}.
func (c *Channel) doSingle(w http.ResponseWriter, r *http.Request, op runtime.Operation, status int, message string) {
	slug := chi.URLParam(r, "slug")
	col, ok := c.collection(slug)
	if !ok {
		c.writeError(w, r, slug, fmt.Errorf("%w: %s", runtime.ErrUnknownCollection, slug))
		return
	}

	in := runtime.Input{
		ID:   chi.URLParam(r, "id"),
		User: userFrom(r.Context()),
	}

	if op == runtime.OpCreate || op == runtime.OpUpdate {
		data, err := decodeBody(w, r)
		if err != nil {
			writeErrors(w, http.StatusBadRequest, apiError{Message: err.Error()})
			return
		}
		in.Data = data
	}

	result, err := c.runtime.Execute(r.Context(), slug, op, in)
	if err != nil {
		c.writeError(w, r, slug, err)
		return
	}

	if message == "" {
		writeJSON(w, status, result.Doc)
		return
	}
	writeJSON(w, status, map[string]any{
		"doc":     result.Doc,
		"message": col.Labels.Singular + " " + message,
	})
}

// parseQuery reads limit, page, sort and equality filters from the URL.
// Filters use plain keys (?status=draft) or where[field]=value.
func parseQuery(r *http.Request) (runtime.Query, error) {
	values := r.URL.Query()
	q := runtime.Query{Sort: values.Get("sort")}

	for _, name := range []string{"limit", "page"} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return runtime.Query{}, fmt.Errorf("%s must be a non-negative integer", name)
		}
		if name == "limit" {
			q.Limit = n
		} else {
			q.Page = n
		}
	}

	for key, vals := range values {
		if listParams[key] || len(vals) == 0 {
			continue
		}
		field := key
		if strings.HasPrefix(key, "where[") && strings.HasSuffix(key, "]") {
			field = strings.TrimSuffix(strings.TrimPrefix(key, "where["), "]")
			field = strings.TrimSuffix(field, "][equals")
		}
		if q.Where == nil {
			q.Where = make(map[string]any)
		}
		q.Where[field] = vals[0]
	}

	return q, nil
}

// decodeBody decodes a JSON object body. Numbers stay json.Number.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if data == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
