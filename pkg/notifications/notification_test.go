package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_Accessors(t *testing.T) {
	t.Parallel()

	n := Notification{ID: "n1", Unread: true}
	assert.False(t, n.IsRead())

	_, ok := n.Link()
	assert.False(t, ok)
	_, ok = n.Description()
	assert.False(t, ok)

	link, desc := "/messages/1", "bob sent you a message."
	n.LinkCache = &link
	n.DescriptionCache = &desc
	n.Unread = false

	assert.True(t, n.IsRead())
	got, ok := n.Link()
	assert.True(t, ok)
	assert.Equal(t, link, got)
	got, ok = n.Description()
	assert.True(t, ok)
	assert.Equal(t, desc, got)
}

func TestNotification_JSON(t *testing.T) {
	t.Parallel()

	n := Notification{
		ID:          "n1",
		Trigger:     TriggerRef{Type: "message", ID: "7"},
		RecipientID: "u1",
		Unread:      true,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, map[string]any{"type": "message", "id": "7"}, fields["trigger"])
	assert.Equal(t, true, fields["unread"])
	assert.Equal(t, false, fields["use_default_email"])
	assert.NotContains(t, fields, "link_cache")
	assert.NotContains(t, fields, "description_cache")
	assert.NotContains(t, fields, "sender_id")
}
