package http

import (
	"fmt"
	"net/http"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/artpar/contentgate/core/schema"
	"github.com/go-chi/chi/v5"
)

// SchemaHandler serves collection introspection. Clients discover
// collections, their fields and the edit view layout at runtime.
type SchemaHandler struct {
	channel *Channel
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(c *Channel) *SchemaHandler {
	return &SchemaHandler{channel: c}
}

// Routes returns a router with all schema routes.
func (h *SchemaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listCollections)
	r.Get("/{slug}", h.getCollectionSchema)
	return r
}

// listCollections handles GET /api/_schema
func (h *SchemaHandler) listCollections(w http.ResponseWriter, r *http.Request) {
	cols := h.channel.list()

	summaries := make([]schema.CollectionSummary, 0, len(cols))
	for _, col := range cols {
		summaries = append(summaries, schema.CollectionSummary{
			Slug:        col.Slug,
			Labels:      col.Labels,
			Group:       col.Source.Admin.Group,
			Description: col.Source.Description,
		})
	}

	writeJSON(w, http.StatusOK, schema.CollectionListResponse{
		Collections: summaries,
		Count:       len(summaries),
	})
}

// getCollectionSchema handles GET /api/_schema/{slug}
func (h *SchemaHandler) getCollectionSchema(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	col, ok := h.channel.collection(slug)
	if !ok {
		h.channel.writeError(w, r, slug, fmt.Errorf("%w: %s", runtime.ErrUnknownCollection, slug))
		return
	}

	writeJSON(w, http.StatusOK, BuildCollectionSchema(col))
}

// BuildCollectionSchema converts a derived collection to its introspection form.
func BuildCollectionSchema(col convention.Derived) schema.CollectionSchemaResponse {
	return schema.CollectionSchemaResponse{
		Slug:           col.Slug,
		Labels:         col.Labels,
		Description:    col.Source.Description,
		Table:          col.Table,
		UseAsTitle:     col.Source.Admin.UseAsTitle,
		DefaultColumns: col.Source.Admin.DefaultColumns,
		Timestamps:     col.Source.Timestamps,
		Auth:           col.Source.Auth,
		Upload:         col.Source.Upload,
		Fields:         buildFields(col.Fields),
		Layout:         buildLayout(col),
		Lookups:        col.Lookups,
		Endpoints:      buildEndpoints(col),
	}
}

// buildFields converts derived fields, skipping internal ones.
func buildFields(fields []convention.DerivedField) []schema.FieldSchema {
	result := make([]schema.FieldSchema, 0, len(fields))

	for _, f := range fields {
		if f.Internal {
			continue
		}

		fs := schema.FieldSchema{
			Name:        f.Name,
			Type:        string(f.Type),
			Label:       f.Label,
			Required:    f.Required,
			Unique:      f.Unique,
			Lookup:      f.Lookup,
			RelationTo:  f.Ref,
			HasMany:     f.HasMany,
			MinRows:     f.MinRows,
			MaxRows:     f.MaxRows,
			Default:     f.Default,
			DefaultNow:  f.DefaultFunc != nil,
			Editor:      f.Editor,
			Picker:      f.Picker,
			Position:    string(f.Position),
			Tab:         f.Tab,
			Description: f.Description,
			Implicit:    f.Implicit,
			ReadOnly:    f.ReadOnly,
		}
		if f.Source != nil {
			fs.Options = f.Source.Options
		}
		if len(f.Rows) > 0 {
			fs.Fields = buildFields(f.Rows)
		}
		result = append(result, fs)
	}

	return result
}

// buildLayout arranges editable fields the way the edit view shows them:
// untabbed main fields, then the tabs, with sidebar fields on the side.
func buildLayout(col convention.Derived) schema.LayoutSchema {
	layout := schema.LayoutSchema{
		Main:    []string{},
		Tabs:    make([]schema.TabSchema, 0, len(col.Tabs)),
		Sidebar: []string{},
	}

	for _, f := range col.Fields {
		if f.Internal || f.ReadOnly || f.Tab != "" {
			continue
		}
		if f.Position == schema.PositionSidebar {
			layout.Sidebar = append(layout.Sidebar, f.Name)
		} else {
			layout.Main = append(layout.Main, f.Name)
		}
	}

	for _, tab := range col.Tabs {
		layout.Tabs = append(layout.Tabs, schema.TabSchema{
			Label:       tab.Label,
			Description: tab.Description,
			Fields:      tab.Fields,
		})
	}

	return layout
}

func buildEndpoints(col convention.Derived) []schema.EndpointSchema {
	base := "/api/" + col.Slug
	endpoints := []schema.EndpointSchema{
		{Operation: string(runtime.OpFind), Method: http.MethodGet, Path: base},
		{Operation: string(runtime.OpCreate), Method: http.MethodPost, Path: base},
		{Operation: string(runtime.OpFindByID), Method: http.MethodGet, Path: base + "/{id}"},
		{Operation: string(runtime.OpUpdate), Method: http.MethodPatch, Path: base + "/{id}"},
		{Operation: string(runtime.OpDelete), Method: http.MethodDelete, Path: base + "/{id}"},
	}
	if col.Source.Auth {
		endpoints = append(endpoints,
			schema.EndpointSchema{Operation: "login", Method: http.MethodPost, Path: base + "/login"},
			schema.EndpointSchema{Operation: "me", Method: http.MethodGet, Path: base + "/me"},
		)
	}
	return endpoints
}
