package consumer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/internal/consumer"
	"github.com/dmitrymomot/notifykit/internal/message"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    consumer.Event
		wantErr bool
	}{
		{
			name:    "full event",
			payload: `{"type":"message","id":"7","recipient_id":"bob","sender_id":"alice","skip_notifications":true,"data":{"isChat":true}}`,
			want: consumer.Event{
				Type:              "message",
				ID:                "7",
				RecipientID:       "bob",
				SenderID:          "alice",
				SkipNotifications: true,
				Data:              map[string]any{"isChat": true},
			},
		},
		{name: "missing id", payload: `{"type":"message"}`, wantErr: true},
		{name: "malformed", payload: `{"type":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := consumer.Decode([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, consumer.ErrInvalidEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fixture struct {
	engine   *notifications.Engine
	messages *message.MemoryStore
	hub      *push.Hub
	handler  *consumer.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	messages := message.NewMemoryStore()
	registry := notifications.NewRegistry()
	message.Register(registry, messages)

	engine, err := notifications.NewEngine(notifications.NewMemoryStorage(), registry)
	require.NoError(t, err)

	hub := push.NewHub(4)
	t.Cleanup(func() { _ = hub.Close() })

	dispatcher := notifications.NewDispatcher(notifications.NewRealtimeAdapter(registry, hub), nil)
	return &fixture{
		engine:   engine,
		messages: messages,
		hub:      hub,
		handler:  consumer.NewHandler(engine, dispatcher, consumer.WithIngester(message.TypeTag, messages.Ingest)),
	}
}

func TestHandler_Handle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.messages.Save(message.Message{MessageID: "7", Author: message.Author{Email: "a@b.com"}, Content: "hi"})

	sub := f.hub.Subscribe(ctx, "presence-message-7")
	defer sub.Close()

	useDefault := true
	notif, err := f.handler.Handle(ctx, consumer.Event{
		Type:            "message",
		ID:              "7",
		RecipientID:     "bob",
		SenderID:        "alice",
		UseDefaultEmail: &useDefault,
		Data:            map[string]any{"isChat": true},
	})
	require.NoError(t, err)
	require.NotNil(t, notif)
	assert.Equal(t, "bob", notif.RecipientID)
	assert.Equal(t, "alice", notif.SenderID)
	assert.True(t, notif.UseDefaultEmail)

	select {
	case msg := <-sub.Receive():
		assert.Equal(t, "new-message-7", msg.Event)
		assert.Equal(t, map[string]any{"isChat": true}, msg.Data)
	default:
		t.Fatal("expected realtime message")
	}
}

func TestHandler_HandleSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.messages.Save(message.Message{MessageID: "1", Content: "[SKIP] hi"})
	f.messages.Save(message.Message{MessageID: "2", Content: "hi"})

	notif, err := f.handler.Handle(ctx, consumer.Event{Type: "message", ID: "1", RecipientID: "bob"})
	require.NoError(t, err)
	assert.Nil(t, notif)

	notif, err = f.handler.Handle(ctx, consumer.Event{Type: "message", ID: "2", RecipientID: "bob", SkipNotifications: true})
	require.NoError(t, err)
	assert.Nil(t, notif)

	count, err := f.engine.ReadState().CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_HandlePayloadErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.handler.HandlePayload(ctx, []byte(`nope`)), consumer.ErrInvalidEvent)
	assert.ErrorIs(t, f.handler.HandlePayload(ctx, []byte(`{"type":"invoice","id":"1"}`)), notifications.ErrUnknownTriggerType)
	assert.ErrorIs(t, f.handler.HandlePayload(ctx, []byte(`{"type":"message","id":"404"}`)), notifications.ErrTriggerNotFound)
}

func TestHandler_HandleInlineTrigger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	payload := `{"type":"message","id":"7","recipient_id":"u1","trigger":{"author":{"email":"a@b.com"},"content":"hi"}}`
	require.NoError(t, f.handler.HandlePayload(ctx, []byte(payload)))

	msg, err := f.messages.GetMessage(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)

	count, err := f.engine.ReadState().CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A skip marker in the carried body is honoured.
	payload = `{"type":"message","id":"8","recipient_id":"u1","trigger":{"content":"[SKIP] hi"}}`
	require.NoError(t, f.handler.HandlePayload(ctx, []byte(payload)))
	count, err = f.engine.ReadState().CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandler_HandleInlineTriggerErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	err := f.handler.HandlePayload(ctx, []byte(`{"type":"message","id":"7","trigger":{"id":"9"}}`))
	assert.ErrorIs(t, err, consumer.ErrInvalidEvent)
	assert.ErrorIs(t, err, message.ErrIDMismatch)

	// Bodies of types without an ingester are ignored.
	err = f.handler.HandlePayload(ctx, []byte(`{"type":"invoice","id":"1","trigger":{"total":3}}`))
	assert.ErrorIs(t, err, notifications.ErrUnknownTriggerType)
}
