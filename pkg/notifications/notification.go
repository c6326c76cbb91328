package notifications

import (
	"time"
)

// TriggerRef is a weak reference to the domain entity that caused a notification.
// It is used for lookup only; the notification never owns its trigger.
type TriggerRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Notification is the core domain model for notifications.
type Notification struct {
	ID               string     `json:"id"`
	Trigger          TriggerRef `json:"trigger"`
	RecipientID      string     `json:"recipient_id,omitempty"`
	SenderID         string     `json:"sender_id,omitempty"`
	Unread           bool       `json:"unread"`
	LinkCache        *string    `json:"link_cache,omitempty"`        // nil until first resolution
	DescriptionCache *string    `json:"description_cache,omitempty"` // nil until first resolution
	UseDefaultEmail  bool       `json:"use_default_email"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return !n.Unread
}

// Link returns the cached link and whether it has been resolved.
func (n *Notification) Link() (string, bool) {
	if n.LinkCache == nil {
		return "", false
	}
	return *n.LinkCache, true
}

// Description returns the cached description and whether it has been resolved.
func (n *Notification) Description() (string, bool) {
	if n.DescriptionCache == nil {
		return "", false
	}
	return *n.DescriptionCache, true
}
