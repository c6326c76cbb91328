package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, storage Storage, triggers ...*testTrigger) *Engine {
	t.Helper()
	e, err := NewEngine(storage, registryWith(triggers...), WithEngineLogger(discardLogger()))
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil, nil)
	assert.ErrorIs(t, err, ErrStorageRequired)

	e, err := NewEngine(NewMemoryStorage(), nil)
	require.NoError(t, err)
	assert.NotNil(t, e.Registry())
	assert.NotNil(t, e.Resolver())
	assert.NotNil(t, e.ReadState())
	assert.NotNil(t, e.Storage())
}

func TestEngine_OnTriggerCreated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	storage := NewMemoryStorage()
	trig := newTestTrigger("7")
	e, err := NewEngine(storage, registryWith(trig),
		WithEngineLogger(discardLogger()),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	notif, err := e.OnTriggerCreated(ctx, trig, WithRecipient("user-1"), WithSender("user-2"))
	require.NoError(t, err)
	require.NotNil(t, notif)

	_, err = uuid.Parse(notif.ID)
	assert.NoError(t, err)
	assert.Equal(t, TriggerRef{Type: "message", ID: "7"}, notif.Trigger)
	assert.Equal(t, "user-1", notif.RecipientID)
	assert.Equal(t, "user-2", notif.SenderID)
	assert.True(t, notif.Unread)
	assert.False(t, notif.UseDefaultEmail)
	assert.Nil(t, notif.LinkCache)
	assert.Nil(t, notif.DescriptionCache)
	assert.Equal(t, now, notif.CreatedAt)

	stored, err := e.Get(ctx, notif.ID)
	require.NoError(t, err)
	assert.Equal(t, *notif, *stored)

	// Presentation is computed lazily, not at creation.
	assert.Zero(t, trig.linkCalls.Load())
	assert.Zero(t, trig.descriptionCalls.Load())

	list, err := e.List(ctx, "user-1", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEngine_OnTriggerCreatedUseDefaultEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	trig := newTestTrigger("7")
	e := newTestEngine(t, storage, trig)

	notif, err := e.OnTriggerCreated(ctx, trig, WithUseDefaultEmail(true))
	require.NoError(t, err)
	assert.True(t, notif.UseDefaultEmail)

	stored, err := storage.Get(ctx, notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.UseDefaultEmail)
}

func TestEngine_OnTriggerCreatedSkips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("explicit flag", func(t *testing.T) {
		storage := NewMemoryStorage()
		trig := newTestTrigger("7")
		e := newTestEngine(t, storage, trig)

		notif, err := e.OnTriggerCreated(ctx, trig, WithRecipient("user-1"), WithSkipNotifications(true))
		require.NoError(t, err)
		assert.Nil(t, notif)
		assert.Zero(t, trig.skipCalls.Load())

		count, err := storage.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("trigger predicate", func(t *testing.T) {
		storage := NewMemoryStorage()
		trig := newTestTrigger("7")
		trig.skip = true
		e := newTestEngine(t, storage, trig)

		notif, err := e.OnTriggerCreated(ctx, trig, WithRecipient("user-1"))
		require.NoError(t, err)
		assert.Nil(t, notif)

		count, err := storage.CountUnread(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("predicate failure aborts creation", func(t *testing.T) {
		storage := new(MockStorage)
		trig := newTestTrigger("7")
		trig.skipErr = errBoom
		e := newTestEngine(t, storage, trig)

		notif, err := e.OnTriggerCreated(ctx, trig)
		assert.ErrorIs(t, err, ErrSkipCheckFailed)
		assert.ErrorIs(t, err, errBoom)
		assert.Nil(t, notif)
		storage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestEngine_OnTriggerCreatedErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("invalid trigger", func(t *testing.T) {
		e := newTestEngine(t, NewMemoryStorage())

		_, err := e.OnTriggerCreated(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidTrigger)

		_, err = e.OnTriggerCreated(ctx, newTestTrigger(""))
		assert.ErrorIs(t, err, ErrInvalidTrigger)
	})

	t.Run("storage failure", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.AnythingOfType("notifications.Notification")).Return(errBoom)

		trig := newTestTrigger("7")
		e := newTestEngine(t, storage, trig)

		notif, err := e.OnTriggerCreated(ctx, trig)
		assert.ErrorIs(t, err, errBoom)
		assert.Nil(t, notif)
		storage.AssertExpectations(t)
	})
}
