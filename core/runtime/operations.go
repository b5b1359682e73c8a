package runtime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/events"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/storage"
)

// Operation names a document operation.
type Operation string

const (
	OpFind     Operation = "find"
	OpFindByID Operation = "findByID"
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
)

// accessName maps an operation onto the access rule that guards it.
func (op Operation) accessName() string {
	switch op {
	case OpFind, OpFindByID:
		return "read"
	default:
		return string(op)
	}
}

// Paging limits for Find.
const (
	DefaultLimit = storage.DefaultLimit
	MaxLimit     = 100
)

// Input contains the input of an operation.
type Input struct {
	// Data holds field values for create and update.
	Data map[string]any

	// ID is the target document for findByID, update and delete.
	ID string

	// Query configures find.
	Query Query

	// User is the caller, nil when anonymous.
	User *schema.User

	// OverrideAccess skips access rules. Used for seeding and the CLI.
	OverrideAccess bool
}

// Query configures a find operation.
type Query struct {
	// Limit is the page size. Zero means DefaultLimit.
	Limit int

	// Page is 1-based. Zero means the first page.
	Page int

	// Sort names a field; a leading "-" sorts descending.
	Sort string

	// Where holds equality filters on top-level fields.
	Where map[string]any
}

// Result contains the result of an operation.
type Result struct {
	// ID is the affected document.
	ID string

	// Doc is the single document of findByID, create, update and delete.
	Doc map[string]any

	// List is set by find.
	List *PaginatedDocs
}

// PaginatedDocs is a page of documents.
type PaginatedDocs struct {
	Docs        []map[string]any `json:"docs"`
	TotalDocs   int64            `json:"totalDocs"`
	Limit       int              `json:"limit"`
	Page        int              `json:"page"`
	TotalPages  int              `json:"totalPages"`
	HasNextPage bool             `json:"hasNextPage"`
	HasPrevPage bool             `json:"hasPrevPage"`
}

// Execute runs an operation on a collection.
func (r *Runtime) Execute(ctx context.Context, collection string, op Operation, in Input) (Result, error) {
	switch op {
	case OpFind:
		return r.Find(ctx, collection, in)
	case OpFindByID:
		return r.FindByID(ctx, collection, in)
	case OpCreate:
		return r.Create(ctx, collection, in)
	case OpUpdate:
		return r.Update(ctx, collection, in)
	case OpDelete:
		return r.Delete(ctx, collection, in)
	default:
		return Result{}, fmt.Errorf("unknown operation %q", op)
	}
}

// Find lists documents.
func (r *Runtime) Find(ctx context.Context, collection string, in Input) (Result, error) {
	col, err := r.authorize(collection, OpFind, in)
	if err != nil {
		return Result{}, err
	}

	q := in.Query
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/limit {
		return Result{}, fmt.Errorf("%w: page %d is out of range", storage.ErrInvalidQuery, page)
	}

	opts := storage.ListOptions{
		Limit:   limit,
		Offset:  (page - 1) * limit,
		Filters: q.Where,
	}
	if q.Sort != "" {
		opts.OrderBy = strings.TrimPrefix(q.Sort, "-")
		opts.OrderDesc = strings.HasPrefix(q.Sort, "-")
	}

	docs, total, err := r.storage.List(ctx, col.Slug, opts)
	if err != nil {
		return Result{}, err
	}
	for _, doc := range docs {
		stripInternal(col, doc)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Result{List: &PaginatedDocs{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}}, nil
}

// FindByID returns a single document.
func (r *Runtime) FindByID(ctx context.Context, collection string, in Input) (Result, error) {
	col, err := r.authorize(collection, OpFindByID, in)
	if err != nil {
		return Result{}, err
	}

	doc, err := r.storage.Get(ctx, col.Slug, schema.FieldID, in.ID)
	if err != nil {
		return Result{}, err
	}
	stripInternal(col, doc)

	return Result{ID: in.ID, Doc: doc}, nil
}

// Create builds and stores a new document. Field hooks run first, then
// defaults for absent fields, then validation. Default providers and the
// timestamps share one instant taken from the clock.
func (r *Runtime) Create(ctx context.Context, collection string, in Input) (Result, error) {
	col, err := r.authorize(collection, OpCreate, in)
	if err != nil {
		return Result{}, err
	}

	data := writableCopy(col, in.Data)

	if err := r.hooks.Dispatch(ctx, HookEvent{
		Collection: col.Slug, Operation: OpCreate, Phase: "before", Data: data, User: in.User,
	}); err != nil {
		return Result{}, fmt.Errorf("before hook: %w", err)
	}

	if err := runFieldHooks(col, schema.OperationCreate, data, nil); err != nil {
		return Result{}, err
	}

	now := r.clock.Now()
	applyDefaults(col, data, schema.DefaultContext{Now: now, User: in.User})
	normalizeEmail(col, data)

	if result := r.validator.ValidateCreate(col.Slug, data); !result.Valid {
		return Result{}, &ValidationError{Collection: col.Slug, Result: result}
	}

	if err := r.hashPassword(col, data); err != nil {
		return Result{}, err
	}
	r.assignRowIDs(col, data)

	data[schema.FieldID] = r.ids.New()
	if col.Source.Timestamps {
		data[schema.FieldCreatedAt] = now
		data[schema.FieldUpdatedAt] = now
	}

	id, err := r.storage.Create(ctx, col.Slug, data)
	if err != nil {
		return Result{}, err
	}

	return r.finish(ctx, col, OpCreate, id, in.User)
}

// Update applies a partial update. Only provided fields are validated and
// no defaults are evaluated.
func (r *Runtime) Update(ctx context.Context, collection string, in Input) (Result, error) {
	col, err := r.authorize(collection, OpUpdate, in)
	if err != nil {
		return Result{}, err
	}

	original, err := r.storage.Get(ctx, col.Slug, schema.FieldID, in.ID)
	if err != nil {
		return Result{}, err
	}

	data := writableCopy(col, in.Data)

	if err := r.hooks.Dispatch(ctx, HookEvent{
		Collection: col.Slug, Operation: OpUpdate, Phase: "before", Data: data, User: in.User,
	}); err != nil {
		return Result{}, fmt.Errorf("before hook: %w", err)
	}

	if err := runFieldHooks(col, schema.OperationUpdate, data, original); err != nil {
		return Result{}, err
	}
	normalizeEmail(col, data)

	if result := r.validator.ValidateUpdate(col.Slug, data); !result.Valid {
		return Result{}, &ValidationError{Collection: col.Slug, Result: result}
	}

	if err := r.hashPassword(col, data); err != nil {
		return Result{}, err
	}
	r.assignRowIDs(col, data)

	if col.Source.Timestamps {
		data[schema.FieldUpdatedAt] = r.clock.Now()
	}

	if err := r.storage.Update(ctx, col.Slug, in.ID, data); err != nil {
		return Result{}, err
	}

	return r.finish(ctx, col, OpUpdate, in.ID, in.User)
}

// Delete removes a document and returns it as it was.
func (r *Runtime) Delete(ctx context.Context, collection string, in Input) (Result, error) {
	col, err := r.authorize(collection, OpDelete, in)
	if err != nil {
		return Result{}, err
	}

	doc, err := r.storage.Get(ctx, col.Slug, schema.FieldID, in.ID)
	if err != nil {
		return Result{}, err
	}

	if err := r.hooks.Dispatch(ctx, HookEvent{
		Collection: col.Slug, Operation: OpDelete, Phase: "before", Data: doc, User: in.User,
	}); err != nil {
		return Result{}, fmt.Errorf("before hook: %w", err)
	}

	if err := r.storage.Delete(ctx, col.Slug, in.ID); err != nil {
		return Result{}, err
	}
	stripInternal(col, doc)

	r.publish(ctx, col, OpDelete, in.ID, nil, in.User)

	if err := r.hooks.Dispatch(ctx, HookEvent{
		Collection: col.Slug, Operation: OpDelete, Phase: "after", Data: doc, User: in.User,
	}); err != nil {
		return Result{}, fmt.Errorf("after hook: %w", err)
	}

	return Result{ID: in.ID, Doc: doc}, nil
}

// authorize resolves the collection and checks the access rule for op.
func (r *Runtime) authorize(collection string, op Operation, in Input) (convention.Derived, error) {
	col, err := r.Collection(collection)
	if err != nil {
		return convention.Derived{}, err
	}
	if in.OverrideAccess {
		return col, nil
	}

	rule := col.Source.Access.Rule(op.accessName())
	if rule(schema.AccessArgs{User: in.User, ID: in.ID}) {
		return col, nil
	}

	r.logger.Debug().
		Str("collection", col.Slug).
		Str("operation", string(op)).
		Bool("anonymous", in.User == nil).
		Msg("access denied")

	if in.User == nil {
		return convention.Derived{}, ErrUnauthorized
	}
	return convention.Derived{}, ErrForbidden
}

// finish reads back the written document, publishes the change and runs
// after hooks.
func (r *Runtime) finish(ctx context.Context, col convention.Derived, op Operation, id string, user *schema.User) (Result, error) {
	doc, err := r.storage.Get(ctx, col.Slug, schema.FieldID, id)
	if err != nil {
		return Result{}, fmt.Errorf("read back %s %s: %w", col.Slug, id, err)
	}
	stripInternal(col, doc)

	r.publish(ctx, col, op, id, doc, user)

	if err := r.hooks.Dispatch(ctx, HookEvent{
		Collection: col.Slug, Operation: op, Phase: "after", Data: doc, User: user,
	}); err != nil {
		return Result{}, fmt.Errorf("after hook: %w", err)
	}

	return Result{ID: id, Doc: doc}, nil
}

func (r *Runtime) publish(ctx context.Context, col convention.Derived, op Operation, id string, doc map[string]any, user *schema.User) {
	event := events.Event{
		Name:       events.Name(col.Slug, string(op)),
		Collection: col.Slug,
		Operation:  string(op),
		ID:         id,
		Doc:        doc,
	}
	if user != nil {
		event.UserID = user.ID
	}
	r.events.Publish(ctx, event)
}

// normalizeEmail lower cases the login email of an auth collection document.
func normalizeEmail(col convention.Derived, data map[string]any) {
	if !col.Source.Auth {
		return
	}
	if email, ok := data[emailField].(string); ok {
		data[emailField] = strings.ToLower(strings.TrimSpace(email))
	}
}

// hashPassword replaces a plaintext password of an auth collection
// document with its hash.
func (r *Runtime) hashPassword(col convention.Derived, data map[string]any) error {
	if !col.Source.Auth {
		return nil
	}

	plaintext, ok := data[passwordField].(string)
	if !ok {
		return nil
	}

	hash, err := r.hasher.Hash(plaintext)
	if err != nil {
		result := schema.ValidationResult{Valid: true}
		result.AddError(passwordField, schema.ConstraintType, nil, err.Error())
		return &ValidationError{Collection: col.Slug, Result: result}
	}
	data[passwordField] = string(hash)
	return nil
}

// assignRowIDs gives every array row without an id a fresh one.
func (r *Runtime) assignRowIDs(col convention.Derived, data map[string]any) {
	for _, f := range col.Fields {
		if f.Type != schema.FieldTypeArray {
			continue
		}
		var rows []any
		switch v := data[f.Name].(type) {
		case []any:
			rows = v
		case []map[string]any:
			rows = make([]any, len(v))
			for i := range v {
				rows[i] = v[i]
			}
			data[f.Name] = rows
		default:
			continue
		}
		for _, raw := range rows {
			row, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := row[schema.FieldID].(string); id == "" {
				row[schema.FieldID] = r.ids.New()
			}
		}
	}
}

// writableCopy copies data without the fields only the host may set.
// An empty single reference means no reference and becomes nil.
func writableCopy(col convention.Derived, data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		f, ok := col.Field(k)
		if ok && f.ReadOnly {
			continue
		}
		if ok && f.Ref != "" && !f.HasMany && v == "" {
			v = nil
		}
		out[k] = v
	}
	return out
}

// runFieldHooks runs the BeforeValidate hooks of top-level fields.
func runFieldHooks(col convention.Derived, op schema.Operation, data, original map[string]any) error {
	for _, f := range col.Fields {
		for _, hook := range f.Hooks.BeforeValidate {
			value, err := hook(schema.FieldHookArgs{
				Value:     data[f.Name],
				Data:      data,
				Original:  original,
				Operation: op,
			})
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			if value == nil {
				delete(data, f.Name)
			} else {
				data[f.Name] = value
			}
		}
	}
	return nil
}

// applyDefaults fills absent fields of a new document. Each default
// provider is called exactly once.
func applyDefaults(col convention.Derived, data map[string]any, ctx schema.DefaultContext) {
	for _, f := range col.Writable() {
		if v, ok := data[f.Name]; ok && v != nil {
			continue
		}
		switch {
		case f.DefaultFunc != nil:
			if v := f.DefaultFunc(ctx); v != nil {
				data[f.Name] = v
			}
		case f.Default != nil:
			data[f.Name] = f.Default
		}
	}
}

func stripInternal(col convention.Derived, doc map[string]any) {
	for _, f := range col.Fields {
		if f.Internal {
			delete(doc, f.Name)
		}
	}
}

// IsNotFound reports whether err means the document or collection is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrUnknownCollection)
}

