package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// ReadStatus is the read state of a notification.
type ReadStatus string

const (
	StatusUnread ReadStatus = "unread"
	StatusRead   ReadStatus = "read"
)

func (s ReadStatus) Name() string {
	return string(s)
}

// ReadEvent triggers a read-state transition.
type ReadEvent string

const EventMarkRead ReadEvent = "mark_read"

func (e ReadEvent) Name() string {
	return string(e)
}

// readTransitions is the complete transition table: [from][event] -> to.
// Nothing leads back to unread.
var readTransitions = map[ReadStatus]map[ReadEvent]ReadStatus{
	StatusUnread: {EventMarkRead: StatusRead},
	StatusRead:   {EventMarkRead: StatusRead},
}

// NextReadStatus returns the state reached from `from` on event.
func NextReadStatus(from ReadStatus, event ReadEvent) (ReadStatus, error) {
	if to, ok := readTransitions[from][event]; ok {
		return to, nil
	}
	return from, &ErrInvalidReadTransition{State: from.Name(), Event: event.Name()}
}

// StatusOf returns the read status of a notification.
func StatusOf(notif *Notification) ReadStatus {
	if notif.Unread {
		return StatusUnread
	}
	return StatusRead
}

// ReadState tracks and transitions the read state of notifications.
type ReadState struct {
	storage Storage
	logger  *slog.Logger
}

// ReadStateOption configures a ReadState.
type ReadStateOption func(*ReadState)

// WithReadStateLogger sets the logger for the ReadState.
func WithReadStateLogger(logger *slog.Logger) ReadStateOption {
	return func(r *ReadState) {
		r.logger = logger
	}
}

// NewReadState creates a read-state manager over storage.
func NewReadState(storage Storage, opts ...ReadStateOption) *ReadState {
	r := &ReadState{
		storage: storage,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// MarkRead moves the notification to the read state and persists it.
// Marking an already read notification is a no-op.
func (r *ReadState) MarkRead(ctx context.Context, notifID string) error {
	notif, err := r.storage.Get(ctx, notifID)
	if err != nil {
		return err
	}

	from := StatusOf(notif)
	to, err := NextReadStatus(from, EventMarkRead)
	if err != nil {
		return err
	}
	if to == from {
		return nil
	}

	if err := r.storage.MarkRead(ctx, notifID); err != nil {
		return err
	}

	r.logger.LogAttrs(ctx, slog.LevelDebug, "Notification marked as read",
		logger.NotificationID(notifID),
		logger.RecipientID(notif.RecipientID),
	)
	return nil
}

// MarkAllRead marks every unread notification of a recipient as read.
func (r *ReadState) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return r.storage.MarkAllRead(ctx, recipientID, nil)
}

// MarkReadForTrigger marks the recipient's unread notifications for one trigger as read,
// e.g. when the recipient opens the message that caused them.
func (r *ReadState) MarkReadForTrigger(ctx context.Context, recipientID string, ref TriggerRef) (int64, error) {
	return r.storage.MarkAllRead(ctx, recipientID, &ref)
}

// CountUnread returns unread count for recipient.
func (r *ReadState) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return r.storage.CountUnread(ctx, recipientID)
}
