package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store with SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// collections maps slugs to their derived definitions
	collections map[string]convention.Derived
}

// NewSQLiteStore creates a new SQLite storage.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// every connection to :memory: opens a fresh database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return NewSQLiteStoreFromDB(db), nil
}

// NewSQLiteStoreFromDB creates a SQLite storage from an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:          db,
		collections: make(map[string]convention.Derived),
	}
}

// CreateTable creates a table for a collection.
func (s *SQLiteStore) CreateTable(ctx context.Context, col convention.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[col.Slug] = col

	tables := make(map[string]string, len(s.collections))
	for slug, c := range s.collections {
		tables[slug] = c.Table
	}

	createSQL := BuildCreateTableSQL(col, tables)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", col.Table, err)
	}

	for _, indexSQL := range BuildIndexSQL(col) {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) collection(slug string) (convention.Derived, error) {
	s.mu.RLock()
	col, ok := s.collections[slug]
	s.mu.RUnlock()

	if !ok {
		return convention.Derived{}, fmt.Errorf("collection %q not registered", slug)
	}
	return col, nil
}

// Create inserts a new document.
func (s *SQLiteStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	col, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	if err := s.validateReferences(ctx, col, data); err != nil {
		return "", err
	}

	id, ok := data[schema.FieldID].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		data[schema.FieldID] = id
	}

	var columns []string
	var placeholders []string
	var values []any

	for _, f := range col.Fields {
		val, exists := data[f.Name]
		if !exists || val == nil {
			// the column default applies
			continue
		}

		encoded, err := encodeValue(val, f)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", f.Name, err)
		}

		columns = append(columns, quote(f.Name))
		placeholders = append(placeholders, "?")
		values = append(values, encoded)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(col.Table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, insertSQL, values...); err != nil {
		return "", s.resolveError(ctx, col, "insert", data, err)
	}

	return id, nil
}

// Get retrieves a document by lookup field.
func (s *SQLiteStore) Get(ctx context.Context, collection string, lookup string, value string) (map[string]any, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	if _, ok := col.Field(lookup); !ok {
		return nil, fmt.Errorf("%w: unknown lookup field %q", ErrInvalidQuery, lookup)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		columnList(col),
		quote(col.Table),
		quote(lookup),
	)

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", col.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return scanDocument(rows, col)
}

// List retrieves multiple documents.
func (s *SQLiteStore) List(ctx context.Context, collection string, opts ListOptions) ([]map[string]any, int64, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, 0, err
	}

	var whereClause string
	var args []any

	if len(opts.Filters) > 0 {
		var conditions []string
		for k, v := range opts.Filters {
			f, ok := col.Field(k)
			if !ok || f.Internal {
				return nil, 0, fmt.Errorf("%w: unknown filter field %q", ErrInvalidQuery, k)
			}
			if f.Type == schema.FieldTypeDate {
				formatted, err := FormatTime(v)
				if err != nil {
					return nil, 0, fmt.Errorf("%w: filter %q: %v", ErrInvalidQuery, k, err)
				}
				v = formatted
			}
			conditions = append(conditions, quote(k)+" = ?")
			args = append(args, v)
		}
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quote(col.Table), whereClause)
	var count int64
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", col.Table, err)
	}

	querySQL := fmt.Sprintf("SELECT %s FROM %s%s", columnList(col), quote(col.Table), whereClause)

	// orderBy is checked against field names, never interpolated raw
	orderBy := "rowid"
	if _, ok := col.Field(schema.FieldCreatedAt); ok {
		orderBy = quote(schema.FieldCreatedAt)
	}
	if opts.OrderBy != "" {
		f, ok := col.Field(opts.OrderBy)
		if !ok || f.Internal {
			return nil, 0, fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, opts.OrderBy)
		}
		orderBy = quote(opts.OrderBy)
	}
	direction := "ASC"
	if opts.OrderDesc {
		direction = "DESC"
	}
	querySQL += fmt.Sprintf(" ORDER BY %s %s, rowid %s", orderBy, direction, direction)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	querySQL += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", col.Table, err)
	}
	defer rows.Close()

	results := make([]map[string]any, 0)
	for rows.Next() {
		doc, err := scanDocument(rows, col)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return results, count, nil
}

// Update modifies an existing document.
func (s *SQLiteStore) Update(ctx context.Context, collection string, id string, data map[string]any) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	if err := s.validateReferences(ctx, col, data); err != nil {
		return err
	}

	var sets []string
	var values []any

	for _, f := range col.Fields {
		if f.Name == schema.FieldID || f.Name == schema.FieldCreatedAt {
			continue
		}
		v, ok := data[f.Name]
		if !ok {
			continue
		}

		encoded, err := encodeValue(v, f)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Name, err)
		}
		sets = append(sets, quote(f.Name)+" = ?")
		values = append(values, encoded)
	}

	if len(sets) == 0 {
		return s.exists(ctx, col, id)
	}

	values = append(values, id)
	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ?",
		quote(col.Table),
		strings.Join(sets, ", "),
	)

	result, err := s.db.ExecContext(ctx, updateSQL, values...)
	if err != nil {
		return s.resolveError(ctx, col, "update", data, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, id string) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = ?", quote(col.Table))

	result, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return translateError(col, "delete", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) exists(ctx context.Context, col convention.Derived, id string) error {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", quote(col.Table))
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return fmt.Errorf("query %s: %w", col.Table, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func columnList(col convention.Derived) string {
	columns := make([]string, len(col.Fields))
	for i, f := range col.Fields {
		columns[i] = quote(f.Name)
	}
	return strings.Join(columns, ", ")
}

func scanDocument(rows *sql.Rows, col convention.Derived) (map[string]any, error) {
	values := make([]any, len(col.Fields))
	scanDest := make([]any, len(col.Fields))
	for i := range values {
		scanDest[i] = &values[i]
	}

	if err := rows.Scan(scanDest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", col.Table, err)
	}

	doc := make(map[string]any, len(col.Fields))
	for i, f := range col.Fields {
		val, err := decodeValue(values[i], f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		doc[f.Name] = val
	}
	return doc, nil
}

// translateError maps SQLite constraint failures onto storage errors.
func translateError(col convention.Derived, op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &DuplicateError{Collection: col.Slug, Field: uniqueField(sqliteErr.Error())}
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s %s: %w", op, col.Table, ErrReference)
		}
	}
	return fmt.Errorf("%s %s: %w", op, col.Table, err)
}

// resolveError translates a failed write. A foreign key failure means a
// referenced document vanished after validateReferences ran; checking again
// names the field.
func (s *SQLiteStore) resolveError(ctx context.Context, col convention.Derived, op string, data map[string]any, err error) error {
	err = translateError(col, op, err)
	if errors.Is(err, ErrReference) {
		if refErr := s.validateReferences(ctx, col, data); refErr != nil {
			return refErr
		}
	}
	return err
}

// uniqueField extracts the column from "UNIQUE constraint failed: posts.slug".
func uniqueField(msg string) string {
	i := strings.LastIndex(msg, ".")
	if i < 0 || i == len(msg)-1 {
		return ""
	}
	return msg[i+1:]
}

// encodeValue converts a Go value to a database value.
func encodeValue(val any, f convention.DerivedField) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch {
	case f.Type == schema.FieldTypeRichText,
		f.Type == schema.FieldTypeArray,
		f.Ref != "" && f.HasMany:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case f.Type == schema.FieldTypeDate:
		return FormatTime(val)

	case f.Type == schema.FieldTypeNumber:
		if n, ok := val.(json.Number); ok {
			return n.Float64()
		}
		return val, nil

	default:
		return val, nil
	}
}

// FormatTime normalizes a date value (time.Time or RFC 3339 string) to TimeLayout in UTC.
func FormatTime(val any) (string, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC().Format(TimeLayout), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(TimeLayout), nil
	default:
		return "", fmt.Errorf("unsupported date value %T", val)
	}
}

// decodeValue converts a database value to a Go value.
func decodeValue(val any, f convention.DerivedField) (any, error) {
	if val == nil {
		return nil, nil
	}

	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	switch {
	case f.Type == schema.FieldTypeRichText,
		f.Type == schema.FieldTypeArray,
		f.Ref != "" && f.HasMany:
		str, ok := val.(string)
		if !ok {
			return val, nil
		}
		var out any
		if err := json.Unmarshal([]byte(str), &out); err != nil {
			return nil, err
		}
		return out, nil

	case f.Type == schema.FieldTypeNumber:
		switch n := val.(type) {
		case int64:
			return float64(n), nil
		}
		return val, nil

	default:
		return val, nil
	}
}

// validateReferences checks that all referenced documents exist.
func (s *SQLiteStore) validateReferences(ctx context.Context, col convention.Derived, data map[string]any) error {
	for _, field := range col.References() {
		refValue, exists := data[field.Name]
		if !exists || refValue == nil {
			continue
		}

		var ids []string
		switch v := refValue.(type) {
		case string:
			ids = []string{v}
		case []string:
			ids = v
		case []any:
			for _, id := range v {
				if str, ok := id.(string); ok {
					ids = append(ids, str)
				}
			}
		}

		s.mu.RLock()
		refCol, ok := s.collections[field.Ref]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("referenced collection %q not registered for field %q", field.Ref, field.Name)
		}

		for _, refID := range ids {
			if refID == "" {
				continue
			}
			var count int
			query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", quote(refCol.Table))
			if err := s.db.QueryRowContext(ctx, query, refID).Scan(&count); err != nil {
				return fmt.Errorf("check reference for field %q: %w", field.Name, err)
			}
			if count == 0 {
				return &ReferenceError{Field: field.Name, Target: field.Ref, ID: refID}
			}
		}
	}

	return nil
}
