package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/internal/config"
	"github.com/dmitrymomot/notifykit/internal/consumer"
	"github.com/dmitrymomot/notifykit/internal/message"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongostore"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/sqlitestore"
)

// backend bundles the notification storage with the message source it reads triggers from.
type backend struct {
	storage     notifications.Storage
	messages    message.Store
	ingest      consumer.Ingester
	healthcheck func(context.Context) error
	close       func()
}

func noopHealthcheck(context.Context) error { return nil }

// openBackend opens the storage selected by driver. Only postgres has a
// messages table to load triggers from; other drivers keep messages in
// memory, filled from the bodies carried by trigger events.
func openBackend(ctx context.Context, driver string, log *slog.Logger) (*backend, error) {
	log = log.With(logger.Component("storage"), slog.String("driver", driver))

	switch driver {
	case config.DriverPostgres:
		var cfg pgstore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pgstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			storage:     pgstore.NewStorage(pool),
			messages:    message.NewPgStore(pool),
			healthcheck: pgstore.Healthcheck(pool),
			close:       pool.Close,
		}, nil

	case config.DriverMongo:
		var cfg mongostore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := mongostore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := mongostore.NewStorage(client.Database(cfg.Database).Collection(cfg.Collection))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		messages := message.NewMemoryStore()
		return &backend{
			storage:     store,
			messages:    messages,
			ingest:      messages.Ingest,
			healthcheck: mongostore.Healthcheck(client),
			close:       func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverSQLite:
		var cfg sqlitestore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		store, err := sqlitestore.Open(cfg)
		if err != nil {
			return nil, err
		}
		messages := message.NewMemoryStore()
		return &backend{
			storage:     store,
			messages:    messages,
			ingest:      messages.Ingest,
			healthcheck: store.Ping,
			close:       func() { _ = store.Close() },
		}, nil

	case config.DriverMemory:
		messages := message.NewMemoryStore()
		return &backend{
			storage:     notifications.NewMemoryStorage(),
			messages:    messages,
			ingest:      messages.Ingest,
			healthcheck: noopHealthcheck,
			close:       func() {},
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, driver)
}
