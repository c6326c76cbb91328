// Package config loads notifyd settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig        = errors.New("failed to parse environment variables into config")
	ErrNilPointer           = errors.New("nil pointer provided to config loader")
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
	ErrChannelOverlap       = errors.New("trigger events channel is inside the realtime channel namespace")
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// App holds the service-level settings. Backend settings live in their own
// packages and are loaded only when the backend is enabled.
type App struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	RedisEnabled         bool   `env:"REDIS_ENABLED" envDefault:"false"`
	TriggerEventsChannel string `env:"TRIGGER_EVENTS_CHANNEL" envDefault:"notifykit:triggers"`
	RealtimeBufferSize   int    `env:"REALTIME_BUFFER_SIZE" envDefault:"16"`

	EmailEnabled           bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	RecipientEmailTemplate string `env:"RECIPIENT_EMAIL_TEMPLATE" envDefault:"{recipient_id}@example.com"`
}

// Validate checks values env tags cannot express.
func (a App) Validate() error {
	drivers := []string{DriverPostgres, DriverMongo, DriverSQLite, DriverMemory}
	if !slices.Contains(drivers, a.StorageDriver) {
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, a.StorageDriver)
	}
	return nil
}

// CheckRealtimePrefix rejects a realtime channel prefix that would also
// match the trigger events channel.
func (a App) CheckRealtimePrefix(prefix string) error {
	if strings.HasPrefix(a.TriggerEventsChannel, prefix) {
		return fmt.Errorf("%w: %q starts with %q", ErrChannelOverlap, a.TriggerEventsChannel, prefix)
	}
	return nil
}

var dotenvOnce sync.Once

// Load fills v from the environment. The default .env file, if present,
// is read once before the first parse; real environment variables win.
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// LoadApp loads and validates the service-level settings.
func LoadApp() (App, error) {
	var app App
	if err := Load(&app); err != nil {
		return App{}, err
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}
