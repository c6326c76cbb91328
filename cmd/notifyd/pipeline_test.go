package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/internal/config"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

func TestConsumerPipeline_LocalDrivers(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "notifications.db"))

	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			log := slog.New(slog.NewTextHandler(io.Discard, nil))

			b, err := openBackend(ctx, driver, log)
			require.NoError(t, err)
			t.Cleanup(b.close)
			require.NotNil(t, b.ingest)

			engine, err := newEngine(b, log)
			require.NoError(t, err)
			assert.Equal(t, []string{"message"}, engine.Registry().Types())

			hub := push.NewHub(4)
			t.Cleanup(func() { _ = hub.Close() })
			sub := hub.Subscribe(ctx, "presence-message-7")
			defer sub.Close()

			dispatcher := notifications.NewDispatcher(
				notifications.NewRealtimeAdapter(engine.Registry(), hub),
				nil,
				notifications.WithDispatcherLogger(log),
			)
			handler := newConsumer(b, engine, dispatcher, log)

			payload := `{"type":"message","id":"7","recipient_id":"u1","sender_id":"u2",` +
				`"trigger":{"author":{"id":"u2","email":"a@b.com"},"recipient_id":"u1","content":"hi"}}`
			require.NoError(t, handler.HandlePayload(ctx, []byte(payload)))

			count, err := engine.ReadState().CountUnread(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			list, err := engine.List(ctx, "u1", notifications.ListOptions{})
			require.NoError(t, err)
			require.Len(t, list, 1)
			desc, err := engine.Resolver().ResolveDescription(ctx, &list[0])
			require.NoError(t, err)
			assert.Equal(t, "a@b.com sent you a message.", desc)

			select {
			case msg := <-sub.Receive():
				assert.Equal(t, "new-message-7", msg.Event)
			default:
				t.Fatal("expected realtime message")
			}

			// Without a body there is nothing to load the trigger from.
			err = handler.HandlePayload(ctx, []byte(`{"type":"message","id":"8","recipient_id":"u1"}`))
			assert.ErrorIs(t, err, notifications.ErrTriggerNotFound)
		})
	}
}
