package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// TriggerType records the trigger type tag under the key "trigger_type".
func TriggerType(tag string) slog.Attr {
	return slog.String("trigger_type", tag)
}

// TriggerID records the trigger identifier under the key "trigger_id".
func TriggerID(id string) slog.Attr {
	return slog.String("trigger_id", id)
}

// RecipientID records the recipient under the key "recipient_id".
// An empty id yields an empty Attr, which slog drops.
func RecipientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("recipient_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
