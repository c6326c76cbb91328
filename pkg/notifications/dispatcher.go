package notifications

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Channel names used in logs and dispatch results.
const (
	ChannelRealtime = "realtime"
	ChannelEmail    = "email"
)

// DispatchResult reports the outcome of each channel independently.
type DispatchResult struct {
	RealtimeErr error
	EmailSent   bool
	EmailErr    error
}

// OK reports whether no channel failed.
func (r DispatchResult) OK() bool {
	return r.RealtimeErr == nil && r.EmailErr == nil
}

// Dispatcher fans a notification out to the realtime and email channels concurrently.
// A failing channel never blocks the other one or touches the stored notification.
type Dispatcher struct {
	realtime *RealtimeAdapter
	email    *EmailAdapter
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher. A nil adapter disables its channel.
func NewDispatcher(realtime *RealtimeAdapter, email *EmailAdapter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		realtime: realtime,
		email:    email,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch delivers notif through every enabled channel and waits for both.
func (d *Dispatcher) Dispatch(ctx context.Context, notif *Notification, data map[string]any) DispatchResult {
	var (
		res DispatchResult
		wg  sync.WaitGroup
	)

	if d.realtime != nil {
		// Each channel gets its own copy; adapters must not observe each other's writes.
		rn := *notif
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.RealtimeErr = d.realtime.Deliver(ctx, &rn, data)
			if res.RealtimeErr != nil {
				d.logFailure(ctx, notif, ChannelRealtime, res.RealtimeErr)
			}
		}()
	}

	if d.email != nil {
		en := *notif
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.EmailSent, res.EmailErr = d.email.Deliver(ctx, &en)
			if res.EmailErr != nil {
				d.logFailure(ctx, notif, ChannelEmail, res.EmailErr)
			}
		}()
	}

	wg.Wait()
	return res
}

func (d *Dispatcher) logFailure(ctx context.Context, notif *Notification, channel string, err error) {
	// Log but don't fail - notification is already persisted
	d.logger.LogAttrs(ctx, slog.LevelError, "Failed to dispatch notification",
		logger.NotificationID(notif.ID),
		logger.Channel(channel),
		logger.TriggerType(notif.Trigger.Type),
		logger.TriggerID(notif.Trigger.ID),
		logger.Error(err),
	)
}
