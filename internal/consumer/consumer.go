// Package consumer turns trigger-created events into notifications and dispatches them.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

var ErrInvalidEvent = errors.New("consumer: invalid trigger event")

// Event announces that a trigger was created. Trigger optionally carries the
// trigger body for deployments without a shared trigger database.
type Event struct {
	Type              string          `json:"type"`
	ID                string          `json:"id"`
	SkipNotifications bool            `json:"skip_notifications,omitempty"`
	RecipientID       string          `json:"recipient_id,omitempty"`
	SenderID          string          `json:"sender_id,omitempty"`
	UseDefaultEmail   *bool           `json:"use_default_email,omitempty"`
	Data              map[string]any  `json:"data,omitempty"`
	Trigger           json.RawMessage `json:"trigger,omitempty"`
}

// Decode parses and validates an event payload.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, errors.Join(ErrInvalidEvent, err)
	}
	if ev.Type == "" || ev.ID == "" {
		return Event{}, fmt.Errorf("%w: type and id are required", ErrInvalidEvent)
	}
	return ev, nil
}

// Ingester stores a trigger body carried by an event so the registry can load it.
type Ingester func(ctx context.Context, id string, body json.RawMessage) error

// Handler creates a notification for each event and dispatches it.
type Handler struct {
	engine     *notifications.Engine
	dispatcher *notifications.Dispatcher
	ingesters  map[string]Ingester
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for the Handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithIngester stores inline trigger bodies of typeTag events before loading them.
func WithIngester(typeTag string, ingest Ingester) Option {
	return func(h *Handler) {
		h.ingesters[typeTag] = ingest
	}
}

// NewHandler creates an event handler. dispatcher may be nil to only store notifications.
func NewHandler(engine *notifications.Engine, dispatcher *notifications.Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		engine:     engine,
		dispatcher: dispatcher,
		ingesters:  make(map[string]Ingester),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handle stores an inline trigger body when an ingester is registered for its
// type, loads the live trigger, runs notification creation and, unless the
// trigger was skipped, dispatches to every channel. It returns the created
// notification, or nil when skipped. Channel failures are logged by the
// dispatcher and do not fail the event.
func (h *Handler) Handle(ctx context.Context, ev Event) (*notifications.Notification, error) {
	if ingest, ok := h.ingesters[ev.Type]; ok && len(ev.Trigger) > 0 {
		if err := ingest(ctx, ev.ID, ev.Trigger); err != nil {
			return nil, errors.Join(ErrInvalidEvent, err)
		}
	}

	ref := notifications.TriggerRef{Type: ev.Type, ID: ev.ID}
	trigger, err := h.engine.Registry().Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	opts := []notifications.CreateOption{
		notifications.WithSkipNotifications(ev.SkipNotifications),
		notifications.WithRecipient(ev.RecipientID),
		notifications.WithSender(ev.SenderID),
	}
	if ev.UseDefaultEmail != nil {
		opts = append(opts, notifications.WithUseDefaultEmail(*ev.UseDefaultEmail))
	}

	notif, err := h.engine.OnTriggerCreated(ctx, trigger, opts...)
	if err != nil || notif == nil {
		return nil, err
	}

	if h.dispatcher != nil {
		res := h.dispatcher.Dispatch(ctx, notif, ev.Data)
		h.logger.LogAttrs(ctx, slog.LevelDebug, "Notification dispatched",
			logger.NotificationID(notif.ID),
			slog.Bool("realtime_ok", res.RealtimeErr == nil),
			slog.Bool("email_sent", res.EmailSent),
		)
	}
	return notif, nil
}

// HandlePayload decodes payload and handles the event.
func (h *Handler) HandlePayload(ctx context.Context, payload []byte) error {
	ev, err := Decode(payload)
	if err != nil {
		return err
	}
	_, err = h.Handle(ctx, ev)
	return err
}

// Run subscribes to channel and handles events until ctx ends.
// A failing event is logged and skipped.
func (h *Handler) Run(ctx context.Context, client redis.UniversalClient, channel string) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	h.logger.LogAttrs(ctx, slog.LevelInfo, "Consuming trigger events", slog.String("redis_channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if err := h.HandlePayload(ctx, []byte(m.Payload)); err != nil {
				h.logger.LogAttrs(ctx, slog.LevelError, "Failed to handle trigger event",
					slog.String("redis_channel", m.Channel),
					logger.Error(err),
				)
			}
		}
	}
}
