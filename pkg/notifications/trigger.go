package notifications

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Trigger is the capability set every trigger type implements.
// Implementations must be JSON serializable: realtime payloads embed them.
type Trigger interface {
	// TypeTag identifies the trigger type, e.g. "message".
	TypeTag() string
	// ID identifies the trigger within its type.
	ID() string

	// SkipPredicate reports whether no notification should be created.
	SkipPredicate(ctx context.Context) (bool, error)
	ResolveLink(ctx context.Context) (string, error)
	ResolveDescription(ctx context.Context) (string, error)

	// EmailTemplateName is a static mapping from trigger type to template.
	EmailTemplateName() string
	// CanSendEmail is evaluated against the live trigger state at send time.
	CanSendEmail(ctx context.Context) (bool, error)
}

// RefOf returns the weak reference for a trigger.
func RefOf(t Trigger) TriggerRef {
	return TriggerRef{Type: t.TypeTag(), ID: t.ID()}
}

// Loader fetches the current state of a trigger by id.
type Loader func(ctx context.Context, id string) (Trigger, error)

// Registry maps trigger type tags to their loaders.
// It is populated at process start; lookups are safe for concurrent use.
type Registry struct {
	loaders map[string]Loader
	mu      sync.RWMutex
}

// NewRegistry creates an empty trigger registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register binds a loader to a trigger type tag.
// Panics on empty tag, nil loader or duplicate registration: misconfiguration
// must stop the process at startup.
func (r *Registry) Register(typeTag string, loader Loader) {
	if typeTag == "" || loader == nil {
		panic("notifications: trigger type tag and loader are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loaders[typeTag]; exists {
		panic(fmt.Sprintf("notifications: trigger type %q already registered", typeTag))
	}
	r.loaders[typeTag] = loader
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.loaders))
}

// Load fetches the live trigger behind ref.
func (r *Registry) Load(ctx context.Context, ref TriggerRef) (Trigger, error) {
	r.mu.RLock()
	loader, ok := r.loaders[ref.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTriggerType, ref.Type)
	}

	t, err := loader(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, ErrTriggerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load %s trigger %s: %w", ref.Type, ref.ID, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrTriggerNotFound, ref.Type, ref.ID)
	}
	return t, nil
}
