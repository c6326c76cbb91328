package mongostore

import "time"

// Config represents the configuration for the MongoDB storage.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`                          // ConnectionURL is the URL of the database.
	Database        string        `env:"MONGODB_DATABASE" envDefault:"notifykit"`       // Database holds the notifications collection.
	Collection      string        `env:"MONGODB_COLLECTION" envDefault:"notifications"` // Collection stores notification documents.
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`      // ConnectTimeout is the timeout for connecting to the database.
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`        // MaxPoolSize is the maximum number of pooled connections.
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`          // MinPoolSize is the minimum number of pooled connections.
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`  // MaxConnIdleTime is how long a pooled connection may stay idle.
	RetryWrites     bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`        // RetryWrites specifies whether to retry write operations.
	RetryReads      bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`         // RetryReads specifies whether to retry read operations.
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`         // RetryAttempts is the number of connection attempts.
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`        // RetryInterval is the pause between connection attempts.
}
