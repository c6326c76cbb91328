package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestListFilter(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		opts notifications.ListOptions
		want bson.D
	}{
		{
			name: "recipient only",
			want: bson.D{{Key: "recipient_id", Value: "u1"}},
		},
		{
			name: "all filters",
			opts: notifications.ListOptions{OnlyUnread: true, TriggerType: "message", Since: &since},
			want: bson.D{
				{Key: "recipient_id", Value: "u1"},
				{Key: "unread", Value: true},
				{Key: "trigger_type", Value: "message"},
				{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, listFilter("u1", tt.opts))
		})
	}
}

func TestMarkAllFilter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bson.D{
		{Key: "recipient_id", Value: "u1"},
		{Key: "unread", Value: true},
	}, markAllFilter("u1", nil))

	assert.Equal(t, bson.D{
		{Key: "recipient_id", Value: "u1"},
		{Key: "unread", Value: true},
		{Key: "trigger_type", Value: "message"},
		{Key: "trigger_id", Value: "7"},
	}, markAllFilter("u1", &notifications.TriggerRef{Type: "message", ID: "7"}))
}

func TestSetCacheUpdate(t *testing.T) {
	t.Parallel()

	pipeline := setCacheUpdate(notifications.CacheLink, "/messages/7")
	require.Len(t, pipeline, 1)

	stage := pipeline[0]
	require.Len(t, stage, 1)
	assert.Equal(t, "$set", stage[0].Key)
	assert.Equal(t, bson.D{
		{Key: "link_cache", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$link_cache", "/messages/7"}}}},
	}, stage[0].Value)
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	link := "/messages/7"
	n := notifications.Notification{
		ID:          "n1",
		Trigger:     notifications.TriggerRef{Type: "message", ID: "7"},
		RecipientID: "u1",
		SenderID:    "u2",
		Unread:      true,
		LinkCache:   &link,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := bson.Marshal(toDocument(n))
	require.NoError(t, err)

	var doc document
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, n, doc.toNotification())
}
