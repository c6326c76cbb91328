package notifications

import (
	"context"
	"errors"
)

// SkipPolicy decides at creation time whether a trigger warrants a notification.
type SkipPolicy struct{}

// ShouldSkip reports whether notification creation must be suppressed.
// An explicit skipNotifications flag wins without consulting the trigger.
// A failing predicate is returned as ErrSkipCheckFailed so the caller
// aborts creation instead of risking a false notification.
func (SkipPolicy) ShouldSkip(ctx context.Context, t Trigger, skipNotifications bool) (bool, error) {
	if skipNotifications {
		return true, nil
	}

	skip, err := t.SkipPredicate(ctx)
	if err != nil {
		return false, errors.Join(ErrSkipCheckFailed, err)
	}
	return skip, nil
}
