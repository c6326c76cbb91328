// Command notifyd runs the notification service: it consumes trigger-created
// events, stores and dispatches notifications, and serves the read API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/internal/api"
	"github.com/dmitrymomot/notifykit/internal/config"
	"github.com/dmitrymomot/notifykit/internal/message"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

func main() {
	if err := run(); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	app, err := config.LoadApp()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(app.Env, app.ServiceName),
		logger.WithLevelName(app.LogLevel),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, app.StorageDriver, log)
	if err != nil {
		return err
	}
	defer backend.close()

	engine, err := newEngine(backend, log)
	if err != nil {
		return err
	}
	registry := engine.Registry()

	hub := push.NewHub(app.RealtimeBufferSize)
	defer hub.Close()

	var (
		publisher   notifications.Publisher = hub
		redisClient *redis.Client
	)
	apiOpts := []api.Option{
		api.WithLogger(log.With(logger.Component("api"))),
		api.WithHealthCheck("storage", backend.healthcheck),
	}
	if app.RedisEnabled {
		var redisCfg push.RedisConfig
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		if err := app.CheckRealtimePrefix(redisCfg.ChannelPrefix); err != nil {
			return err
		}
		redisClient, err = push.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		// Every instance publishes to Redis and relays Redis back into its own hub.
		publisher = push.NewRedisPublisher(redisClient, redisCfg.ChannelPrefix)
		apiOpts = append(apiOpts, api.WithHealthCheck("redis", push.Healthcheck(redisClient)))

		go func() {
			if err := push.Relay(ctx, redisClient, redisCfg.ChannelPrefix, hub, log); err != nil {
				log.LogAttrs(ctx, slog.LevelError, "Realtime relay stopped", logger.Error(err))
			}
		}()
	}

	var emailAdapter *notifications.EmailAdapter
	if app.EmailEnabled {
		var emailCfg email.Config
		if err := config.Load(&emailCfg); err != nil {
			return err
		}
		sender, err := email.New(emailCfg)
		if err != nil {
			return err
		}
		mailer := notifications.NewTemplateMailer(
			backend.storage,
			engine.Resolver(),
			message.NewAddressResolver(backend.messages, app.RecipientEmailTemplate),
			sender,
		)
		emailAdapter = notifications.NewEmailAdapter(registry, mailer)
	}

	dispatcher := notifications.NewDispatcher(
		notifications.NewRealtimeAdapter(registry, publisher),
		emailAdapter,
		notifications.WithDispatcherLogger(log),
	)
	handler := newConsumer(backend, engine, dispatcher, log)

	srv := &http.Server{
		Addr:        app.HTTPAddr,
		Handler:     api.NewServer(engine, hub, apiOpts...).Router(),
		ReadTimeout: app.ReadTimeout,
		IdleTimeout: app.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.LogAttrs(gctx, slog.LevelInfo, "HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		// Close the hub first so open event streams end and Shutdown can finish.
		_ = hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.LogAttrs(shutdownCtx, slog.LevelInfo, "HTTP server stopped")
		return nil
	})

	if redisClient != nil {
		g.Go(func() error {
			return handler.Run(gctx, redisClient, app.TriggerEventsChannel)
		})
	}

	return g.Wait()
}
