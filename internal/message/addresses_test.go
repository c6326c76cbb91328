package message

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestAddressResolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	store.Save(Message{MessageID: "7", Author: Author{Email: "a@b.com"}})
	r := NewAddressResolver(store, "{recipient_id}@example.com")

	t.Run("message trigger", func(t *testing.T) {
		addrs, err := r.ResolveAddresses(ctx, &notifications.Notification{
			RecipientID: "bob",
			Trigger:     notifications.TriggerRef{Type: TypeTag, ID: "7"},
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.Addresses{To: "bob@example.com", From: "a@b.com"}, addrs)
	})

	t.Run("other trigger uses default sender", func(t *testing.T) {
		addrs, err := r.ResolveAddresses(ctx, &notifications.Notification{
			RecipientID: "bob",
			Trigger:     notifications.TriggerRef{Type: "comment", ID: "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.Addresses{To: "bob@example.com"}, addrs)
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := r.ResolveAddresses(ctx, &notifications.Notification{
			RecipientID: "bob",
			Trigger:     notifications.TriggerRef{Type: TypeTag, ID: "8"},
		})
		assert.ErrorIs(t, err, notifications.ErrTriggerNotFound)
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := NewAddressResolver(store, "{user}@example.com").ResolveAddresses(ctx, &notifications.Notification{})
		assert.ErrorIs(t, err, notifications.ErrMissingPlaceholder)
	})
}
