package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/collections"
	"github.com/artpar/contentgate/core/events"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/rs/zerolog"
)

// RegisterHooks registers the collection hooks and event subscribers that
// carry business rules outside the collection descriptors.
func RegisterHooks(rt *runtime.Runtime, m *metrics.Collector, logger zerolog.Logger) {
	rt.Events().Subscribe("*", countWrites(m))
	rt.Events().Subscribe("posts.*", logPostChanges(logger))

	if _, err := rt.Collection(collections.Users.Slug); err == nil {
		rt.OnHook(collections.Users.Slug, runtime.OpCreate, "before", guardRole)
		rt.OnHook(collections.Users.Slug, runtime.OpUpdate, "before", guardRole)
		rt.OnHook(collections.Users.Slug, runtime.OpDelete, "before", keepLastAdmin(rt))
	}
}

func countWrites(m *metrics.Collector) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		switch runtime.Operation(event.Operation) {
		case runtime.OpCreate, runtime.OpUpdate, runtime.OpDelete:
		default:
			return nil
		}
		m.DocumentsTotal.WithLabelValues(event.Collection, event.Operation).Inc()
		return nil
	}
}

func logPostChanges(logger zerolog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		e := logger.Info().
			Str("event", event.Name).
			Str("id", event.ID).
			Str("user", event.UserID)
		if event.Doc != nil {
			e = e.Interface("status", event.Doc["status"])
		}
		e.Msg("post changed")
		return nil
	}
}

// guardRole stops non-admin users from assigning roles. Writes without a
// user (seeding, CLI) are trusted.
func guardRole(ctx context.Context, event runtime.HookEvent) error {
	if event.User == nil || event.User.Role == collections.RoleAdmin {
		return nil
	}
	if _, ok := event.Data["role"]; ok {
		return fmt.Errorf("%w: only admins can change roles", runtime.ErrForbidden)
	}
	return nil
}

// keepLastAdmin refuses to delete the only remaining admin.
func keepLastAdmin(rt *runtime.Runtime) runtime.HookHandler {
	return func(ctx context.Context, event runtime.HookEvent) error {
		if event.Data["role"] != collections.RoleAdmin {
			return nil
		}

		admins, err := rt.Find(ctx, event.Collection, runtime.Input{
			Query:          runtime.Query{Limit: 1, Where: map[string]any{"role": collections.RoleAdmin}},
			OverrideAccess: true,
		})
		if err != nil {
			return err
		}
		if admins.List.TotalDocs <= 1 {
			return fmt.Errorf("%w: cannot delete the last admin", runtime.ErrForbidden)
		}
		return nil
	}
}
