package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/internal/consumer"
	"github.com/dmitrymomot/notifykit/internal/message"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// newEngine registers the trigger types served by b and builds the engine over its storage.
func newEngine(b *backend, log *slog.Logger) (*notifications.Engine, error) {
	registry := notifications.NewRegistry()
	message.Register(registry, b.messages)

	engine, err := notifications.NewEngine(b.storage, registry, notifications.WithEngineLogger(log))
	if err != nil {
		return nil, err
	}

	log.LogAttrs(context.Background(), slog.LevelInfo, "Trigger types registered",
		slog.Any("trigger_types", registry.Types()),
	)
	return engine, nil
}

// newConsumer builds the trigger event handler. Backends without a shared
// trigger database accept trigger bodies carried by the events.
func newConsumer(b *backend, engine *notifications.Engine, dispatcher *notifications.Dispatcher, log *slog.Logger) *consumer.Handler {
	opts := []consumer.Option{consumer.WithLogger(log.With(logger.Component("consumer")))}
	if b.ingest != nil {
		opts = append(opts, consumer.WithIngester(message.TypeTag, b.ingest))
	}
	return consumer.NewHandler(engine, dispatcher, opts...)
}
