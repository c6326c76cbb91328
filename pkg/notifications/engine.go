package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Engine orchestrates notification creation for newly created triggers.
type Engine struct {
	storage  Storage
	registry *Registry
	skip     SkipPolicy
	resolver *Resolver
	read     *ReadState
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine and the components it builds.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new notification engine.
func NewEngine(storage Storage, registry *Registry, opts ...EngineOption) (*Engine, error) {
	if storage == nil {
		return nil, ErrStorageRequired
	}
	if registry == nil {
		registry = NewRegistry()
	}

	e := &Engine{
		storage:  storage,
		registry: registry,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.resolver = NewResolver(storage, registry, WithResolverLogger(e.logger))
	e.read = NewReadState(storage, WithReadStateLogger(e.logger))

	return e, nil
}

// CreateOption tunes a single OnTriggerCreated call.
type CreateOption func(*createOptions)

type createOptions struct {
	skipNotifications bool
	useDefaultEmail   *bool
	recipientID       string
	senderID          string
}

// WithSkipNotifications suppresses creation without consulting the trigger.
func WithSkipNotifications(skip bool) CreateOption {
	return func(o *createOptions) {
		o.skipNotifications = skip
	}
}

// WithUseDefaultEmail sets use_default_email explicitly.
func WithUseDefaultEmail(v bool) CreateOption {
	return func(o *createOptions) {
		o.useDefaultEmail = &v
	}
}

// WithRecipient sets who the notification is for.
func WithRecipient(id string) CreateOption {
	return func(o *createOptions) {
		o.recipientID = id
	}
}

// WithSender sets who caused the notification.
func WithSender(id string) CreateOption {
	return func(o *createOptions) {
		o.senderID = id
	}
}

// OnTriggerCreated creates and stores a notification for trigger unless it is skipped.
// A skipped trigger yields (nil, nil). Channel dispatch is left to the caller.
func (e *Engine) OnTriggerCreated(ctx context.Context, trigger Trigger, opts ...CreateOption) (*Notification, error) {
	if trigger == nil || trigger.TypeTag() == "" || trigger.ID() == "" {
		return nil, ErrInvalidTrigger
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	ref := RefOf(trigger)

	skip, err := e.skip.ShouldSkip(ctx, trigger, o.skipNotifications)
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "Failed to evaluate skip policy, notification not created",
			logger.TriggerType(ref.Type),
			logger.TriggerID(ref.ID),
			logger.Error(err),
		)
		return nil, err
	}
	if skip {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "Notification skipped",
			logger.TriggerType(ref.Type),
			logger.TriggerID(ref.ID),
		)
		return nil, nil
	}

	notif := Notification{
		ID:          uuid.New().String(),
		Trigger:     ref,
		RecipientID: o.recipientID,
		SenderID:    o.senderID,
		Unread:      true,
		CreatedAt:   e.now().UTC(),
	}
	// use_default_email is set once here and never recomputed
	if o.useDefaultEmail != nil {
		notif.UseDefaultEmail = *o.useDefaultEmail
	}

	if err := e.storage.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "Notification created",
		logger.NotificationID(notif.ID),
		logger.TriggerType(ref.Type),
		logger.TriggerID(ref.ID),
		logger.RecipientID(notif.RecipientID),
	)

	return &notif, nil
}

// Get returns a stored notification by id.
func (e *Engine) Get(ctx context.Context, notifID string) (*Notification, error) {
	return e.storage.Get(ctx, notifID)
}

// List returns a recipient's notifications, newest first.
func (e *Engine) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	return e.storage.List(ctx, recipientID, opts)
}

// Storage returns the underlying notification storage.
func (e *Engine) Storage() Storage {
	return e.storage
}

// Registry returns the trigger registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Resolver returns the presentation resolver bound to the engine's storage.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// ReadState returns the read-state manager bound to the engine's storage.
func (e *Engine) ReadState() *ReadState {
	return e.read
}
