// Package notifications turns domain events ("triggers") into persisted
// notifications and fans them out to realtime and email channels.
//
// # Architecture
//
// The package is split into small cooperating pieces:
//
//   - Trigger: capability set a domain entity implements (skip predicate,
//     link and description resolution, email template, send eligibility).
//   - Registry: maps trigger type tags to loaders so a stored notification
//     can reach the live trigger behind its weak TriggerRef.
//   - Engine: OnTriggerCreated applies the SkipPolicy and stores a new,
//     unread notification.
//   - Resolver: computes link and description once and caches them on the
//     notification record. Later trigger edits never change cached text.
//   - ReadState: unread to read transitions. There is no way back.
//   - RealtimeAdapter and EmailAdapter: per-channel shaping and delivery.
//   - Dispatcher: runs both channels concurrently and reports each outcome
//     separately.
//
// Storage is pluggable. MemoryStorage lives here; PostgreSQL, MongoDB and
// SQLite backends live in sibling packages.
//
// # Basic Usage
//
//	registry := notifications.NewRegistry()
//	message.Register(registry, messages)
//
//	engine, err := notifications.NewEngine(storage, registry, notifications.WithEngineLogger(log))
//	if err != nil {
//		return err
//	}
//
//	notif, err := engine.OnTriggerCreated(ctx, msg, notifications.WithRecipient(msg.RecipientID))
//	if err != nil {
//		return err
//	}
//	if notif == nil {
//		return nil // skipped
//	}
//
//	dispatcher := notifications.NewDispatcher(
//		notifications.NewRealtimeAdapter(registry, hub),
//		notifications.NewEmailAdapter(registry, mailer),
//	)
//	res := dispatcher.Dispatch(ctx, notif, map[string]any{"text": msg.Content})
//
// # Realtime Wire Format
//
// Messages go to channel "presence-<type>-<trigger id>" under event
// "new-<type>-<trigger id>". The payload has exactly three keys:
// "notification", "trigger" and "data". Data is passed through unchanged.
//
// # Email
//
// The template name comes from the trigger type. Eligibility is asked from
// the live trigger on every send and is never cached, unlike link and
// description. TemplateMailer renders through pkg/email and clears the
// sender address when the notification's use_default_email flag is set.
//
// # Error Handling
//
// Errors are sentinel values checked with errors.Is. A failing skip
// predicate aborts creation with ErrSkipCheckFailed. Resolution failures
// leave the cache empty so the next call retries. Channel failures are
// logged and returned in DispatchResult; they never alter the stored
// notification.
package notifications
