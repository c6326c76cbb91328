package message

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// NewAddressResolver sends message notifications from the message author to
// the address built from recipientTemplate, e.g. "{recipient_id}@example.com".
func NewAddressResolver(store Store, recipientTemplate string) notifications.AddressResolver {
	return notifications.AddressResolverFunc(func(ctx context.Context, notif *notifications.Notification) (notifications.Addresses, error) {
		to, err := notifications.Interpolate(recipientTemplate, notifications.MapLookup(map[string]string{
			"recipient_id": notif.RecipientID,
		}))
		if err != nil {
			return notifications.Addresses{}, err
		}

		if notif.Trigger.Type != TypeTag {
			return notifications.Addresses{To: to}, nil
		}

		msg, err := store.GetMessage(ctx, notif.Trigger.ID)
		if err != nil {
			return notifications.Addresses{}, fmt.Errorf("failed to load message author: %w", err)
		}
		return notifications.Addresses{To: to, From: msg.Author.Email}, nil
	})
}
