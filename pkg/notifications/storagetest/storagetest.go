// Package storagetest holds behaviour tests shared by every notifications.Storage backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Factory returns an empty storage for one subtest.
type Factory func(t *testing.T) notifications.Storage

// NewNotification returns an unread notification with a fresh uuid.
func NewNotification(recipientID string, ref notifications.TriggerRef, createdAt time.Time) notifications.Notification {
	return notifications.Notification{
		ID:          uuid.New().String(),
		Trigger:     ref,
		RecipientID: recipientID,
		Unread:      true,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}
}

// Run executes the shared suite against storages built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg7 := notifications.TriggerRef{Type: "message", ID: "7"}

	t.Run("create and get", func(t *testing.T) {
		s := newStorage(t)
		n := NewNotification("user-1", msg7, base)
		n.SenderID = "user-2"
		n.UseDefaultEmail = true
		require.NoError(t, s.Create(ctx, n))

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, msg7, got.Trigger)
		assert.Equal(t, "user-1", got.RecipientID)
		assert.Equal(t, "user-2", got.SenderID)
		assert.True(t, got.Unread)
		assert.True(t, got.UseDefaultEmail)
		assert.Nil(t, got.LinkCache)
		assert.Nil(t, got.DescriptionCache)
		assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("get unknown", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("set cache first writer wins", func(t *testing.T) {
		s := newStorage(t)
		n := NewNotification("user-1", msg7, base)
		require.NoError(t, s.Create(ctx, n))

		stored, err := s.SetCache(ctx, n.ID, notifications.CacheLink, "/messages/7")
		require.NoError(t, err)
		assert.Equal(t, "/messages/7", stored)

		stored, err = s.SetCache(ctx, n.ID, notifications.CacheLink, "/other")
		require.NoError(t, err)
		assert.Equal(t, "/messages/7", stored)

		stored, err = s.SetCache(ctx, n.ID, notifications.CacheDescription, "a@b.com sent you a message.")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com sent you a message.", stored)

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LinkCache)
		require.NotNil(t, got.DescriptionCache)
		assert.Equal(t, "/messages/7", *got.LinkCache)
		assert.Equal(t, "a@b.com sent you a message.", *got.DescriptionCache)
	})

	t.Run("set cache concurrent writers converge", func(t *testing.T) {
		s := newStorage(t)
		n := NewNotification("user-1", msg7, base)
		require.NoError(t, s.Create(ctx, n))

		const writers = 10
		results := make([]string, writers)
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := s.SetCache(ctx, n.ID, notifications.CacheLink, fmt.Sprintf("/v/%d", i))
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			assert.Equal(t, results[0], r)
		}
	})

	t.Run("set cache unknown", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.SetCache(ctx, uuid.New().String(), notifications.CacheLink, "/x")
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		s := newStorage(t)
		n := NewNotification("user-1", msg7, base)
		require.NoError(t, s.Create(ctx, n))

		require.NoError(t, s.MarkRead(ctx, n.ID))
		require.NoError(t, s.MarkRead(ctx, n.ID))

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, got.Unread)

		assert.ErrorIs(t, s.MarkRead(ctx, uuid.New().String()), notifications.ErrNotificationNotFound)
	})

	t.Run("concurrent mark read ends read", func(t *testing.T) {
		s := newStorage(t)
		n := NewNotification("user-1", msg7, base)
		require.NoError(t, s.Create(ctx, n))
		other := NewNotification("user-1", msg7, base.Add(time.Second))
		require.NoError(t, s.Create(ctx, other))

		rs := notifications.NewReadState(s)
		const readers = 10
		errs := make([]error, readers)
		var wg sync.WaitGroup
		for i := range readers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = rs.MarkRead(ctx, n.ID)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, got.Unread)

		untouched, err := s.Get(ctx, other.ID)
		require.NoError(t, err)
		assert.True(t, untouched.Unread)

		count, err := rs.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("list, count and mark all read", func(t *testing.T) {
		s := newStorage(t)
		msg8 := notifications.TriggerRef{Type: "message", ID: "8"}
		comment := notifications.TriggerRef{Type: "comment", ID: "1"}

		oldest := NewNotification("user-1", msg7, base)
		middle := NewNotification("user-1", msg8, base.Add(time.Minute))
		newest := NewNotification("user-1", comment, base.Add(2*time.Minute))
		foreign := NewNotification("user-2", msg7, base)
		for _, n := range []notifications.Notification{oldest, middle, newest, foreign} {
			require.NoError(t, s.Create(ctx, n))
		}

		all, err := s.List(ctx, "user-1", notifications.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, ids(all))

		page, err := s.List(ctx, "user-1", notifications.ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{middle.ID}, ids(page))

		messages, err := s.List(ctx, "user-1", notifications.ListOptions{TriggerType: "message"})
		require.NoError(t, err)
		assert.Equal(t, []string{middle.ID, oldest.ID}, ids(messages))

		since := base.Add(time.Minute)
		recent, err := s.List(ctx, "user-1", notifications.ListOptions{Since: &since})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID}, ids(recent))

		count, err := s.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		updated, err := s.MarkAllRead(ctx, "user-1", &msg7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		unread, err := s.List(ctx, "user-1", notifications.ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID}, ids(unread))

		updated, err = s.MarkAllRead(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated)

		count, err = s.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = s.CountUnread(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("list empty", func(t *testing.T) {
		s := newStorage(t)
		got, err := s.List(ctx, "nobody", notifications.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func ids(ns []notifications.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}
