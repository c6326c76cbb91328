package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Payload keys produced by RealtimeAdapter.BuildPayload.
const (
	PayloadNotification = "notification"
	PayloadTrigger      = "trigger"
	PayloadData         = "data"
)

// Payload is the channel-agnostic body of a realtime message.
type Payload map[string]any

// Message is handed to a push transport.
type Message struct {
	Channel      string          `json:"channel"`
	Event        string          `json:"event"`
	Notification json.RawMessage `json:"notification"`
	Trigger      json.RawMessage `json:"trigger"`
	Data         map[string]any  `json:"data"`
}

// Publisher delivers realtime messages over a push transport.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// RealtimeAdapter shapes notifications for the realtime push channel.
// It does not perform the network send itself; Deliver hands the message to a Publisher.
type RealtimeAdapter struct {
	registry  *Registry
	publisher Publisher
}

// NewRealtimeAdapter creates a realtime adapter. publisher may be nil when
// only channel names and payloads are needed.
func NewRealtimeAdapter(registry *Registry, publisher Publisher) *RealtimeAdapter {
	return &RealtimeAdapter{
		registry:  registry,
		publisher: publisher,
	}
}

// ChannelName returns "presence-<type>-<trigger id>".
func (a *RealtimeAdapter) ChannelName(notif *Notification) string {
	return fmt.Sprintf("presence-%s-%s", notif.Trigger.Type, notif.Trigger.ID)
}

// EventName returns "new-<type>-<trigger id>".
func (a *RealtimeAdapter) EventName(notif *Notification) string {
	return fmt.Sprintf("new-%s-%s", notif.Trigger.Type, notif.Trigger.ID)
}

// BuildPayload returns exactly the notification, trigger and data keys.
// data is copied verbatim; nil becomes an empty map.
func (a *RealtimeAdapter) BuildPayload(ctx context.Context, notif *Notification, data map[string]any) (Payload, error) {
	notifJSON, triggerJSON, err := a.serialize(ctx, notif)
	if err != nil {
		return nil, err
	}

	return Payload{
		PayloadNotification: notifJSON,
		PayloadTrigger:      triggerJSON,
		PayloadData:         cloneData(data),
	}, nil
}

// BuildMessage returns the full wire message including channel and event names.
func (a *RealtimeAdapter) BuildMessage(ctx context.Context, notif *Notification, data map[string]any) (Message, error) {
	notifJSON, triggerJSON, err := a.serialize(ctx, notif)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Channel:      a.ChannelName(notif),
		Event:        a.EventName(notif),
		Notification: notifJSON,
		Trigger:      triggerJSON,
		Data:         cloneData(data),
	}, nil
}

// Deliver builds the message and publishes it.
func (a *RealtimeAdapter) Deliver(ctx context.Context, notif *Notification, data map[string]any) error {
	if a.publisher == nil {
		return errors.Join(ErrRealtimeDispatchFailed, errors.New("no publisher configured"))
	}

	msg, err := a.BuildMessage(ctx, notif, data)
	if err != nil {
		return errors.Join(ErrRealtimeDispatchFailed, err)
	}
	if err := a.publisher.Publish(ctx, msg); err != nil {
		return errors.Join(ErrRealtimeDispatchFailed, err)
	}
	return nil
}

func (a *RealtimeAdapter) serialize(ctx context.Context, notif *Notification) (json.RawMessage, json.RawMessage, error) {
	trigger, err := a.registry.Load(ctx, notif.Trigger)
	if err != nil {
		return nil, nil, err
	}

	notifJSON, err := json.Marshal(notif)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize notification %s: %w", notif.ID, err)
	}
	triggerJSON, err := json.Marshal(trigger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize %s trigger %s: %w", notif.Trigger.Type, notif.Trigger.ID, err)
	}
	return notifJSON, triggerJSON, nil
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return maps.Clone(data)
}
