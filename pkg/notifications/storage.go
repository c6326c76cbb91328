package notifications

import (
	"context"
	"time"
)

// CacheField names a compute-once presentation column.
type CacheField string

const (
	CacheLink        CacheField = "link_cache"
	CacheDescription CacheField = "description_cache"
)

// Valid reports whether f is a known cache field.
// Storage backends use the value as a column name, so only these two are accepted.
func (f CacheField) Valid() bool {
	return f == CacheLink || f == CacheDescription
}

// Storage handles notification persistence and retrieval.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, notifID string) (*Notification, error)

	// List returns notifications for a recipient, newest first.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error)

	// SetCache stores value in the given cache field unless it is already
	// populated, and returns whatever value the field holds afterwards.
	// The first writer wins; later writers receive the winner's value.
	SetCache(ctx context.Context, notifID string, field CacheField, value string) (string, error)

	// MarkRead sets unread to false. Returns ErrNotificationNotFound for unknown ids.
	MarkRead(ctx context.Context, notifID string) error

	// MarkAllRead marks every unread notification of a recipient as read,
	// optionally restricted to one trigger. Returns the number of updated rows.
	MarkAllRead(ctx context.Context, recipientID string, trigger *TriggerRef) (int64, error)

	// CountUnread returns unread count for recipient.
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit       int        // Maximum number of notifications to return (0 = no limit)
	Offset      int        // Number of notifications to skip for pagination
	OnlyUnread  bool       // When true, only return unread notifications
	TriggerType string     // If specified, only return notifications for this trigger type
	Since       *time.Time // If specified, only return notifications created at or after this time
}
