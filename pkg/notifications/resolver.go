package notifications

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Resolver computes link and description text for notifications exactly once.
// A populated cache is returned as is. Otherwise concurrent callers for the same
// notification share one computation, and the result is persisted with a
// first-writer-wins write so that every reader converges on the stored value.
type Resolver struct {
	storage  Storage
	registry *Registry
	group    singleflight.Group
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the Resolver.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a presentation resolver.
func NewResolver(storage Storage, registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		storage:  storage,
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveLink returns the notification link, computing and caching it on first use.
func (r *Resolver) ResolveLink(ctx context.Context, notif *Notification) (string, error) {
	return r.resolve(ctx, notif, CacheLink)
}

// ResolveDescription returns the notification description, computing and caching it on first use.
func (r *Resolver) ResolveDescription(ctx context.Context, notif *Notification) (string, error) {
	return r.resolve(ctx, notif, CacheDescription)
}

func (r *Resolver) resolve(ctx context.Context, notif *Notification, field CacheField) (string, error) {
	if cached := cacheOf(notif, field); cached != nil {
		return *cached, nil
	}

	// Waiters share the result, so one caller's cancellation must not fail the others.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(string(field)+":"+notif.ID, func() (any, error) {
		ctx := sharedCtx
		// The record may have been populated since the caller loaded it.
		stored, err := r.storage.Get(ctx, notif.ID)
		if err != nil {
			return nil, errors.Join(ErrResolutionFailed, err)
		}
		if cached := cacheOf(stored, field); cached != nil {
			return *cached, nil
		}

		trigger, err := r.registry.Load(ctx, notif.Trigger)
		if err != nil {
			return nil, errors.Join(ErrResolutionFailed, err)
		}

		var value string
		if field == CacheLink {
			value, err = trigger.ResolveLink(ctx)
		} else {
			value, err = trigger.ResolveDescription(ctx)
		}
		if err != nil {
			return nil, errors.Join(ErrResolutionFailed, err)
		}

		final, err := r.storage.SetCache(ctx, notif.ID, field, value)
		if err != nil {
			return nil, errors.Join(ErrResolutionFailed, err)
		}
		return final, nil
	})
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to resolve notification presentation",
			logger.NotificationID(notif.ID),
			logger.TriggerType(notif.Trigger.Type),
			logger.TriggerID(notif.Trigger.ID),
			slog.String("field", string(field)),
			logger.Error(err),
		)
		return "", err
	}

	value := v.(string)
	if field == CacheLink {
		notif.LinkCache = &value
	} else {
		notif.DescriptionCache = &value
	}
	return value, nil
}

func cacheOf(notif *Notification, field CacheField) *string {
	if field == CacheLink {
		return notif.LinkCache
	}
	return notif.DescriptionCache
}
