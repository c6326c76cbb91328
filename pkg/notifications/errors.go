package notifications

import (
	"errors"
	"fmt"
)

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	ErrUnknownTriggerType     = errors.New("notifications: unknown trigger type")
	ErrTriggerNotFound        = errors.New("notifications: trigger not found")
	ErrSkipCheckFailed        = errors.New("notifications: skip check failed")
	ErrResolutionFailed       = errors.New("notifications: resolution failed")
	ErrRealtimeDispatchFailed = errors.New("notifications: realtime dispatch failed")
	ErrEmailDispatchFailed    = errors.New("notifications: email dispatch failed")
	ErrMissingPlaceholder     = errors.New("notifications: missing placeholder value")
	ErrInvalidTrigger         = errors.New("notifications: trigger must have a type tag and id")
	ErrStorageRequired        = errors.New("notifications: storage is required")
)

// ErrInvalidReadTransition indicates that no read-state transition exists
// for the given state and event.
type ErrInvalidReadTransition struct {
	State string
	Event string
}

func (e *ErrInvalidReadTransition) Error() string {
	return fmt.Sprintf("notifications: no read-state transition from '%s' for event '%s'", e.State, e.Event)
}

// IsInvalidReadTransitionError reports whether err is an *ErrInvalidReadTransition.
func IsInvalidReadTransitionError(err error) bool {
	var e *ErrInvalidReadTransition
	return errors.As(err, &e)
}
