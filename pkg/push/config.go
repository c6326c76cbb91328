package push

import "time"

// RedisConfig configures the Redis realtime transport.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`       // ConnectionURL is in the form "redis://:password@localhost:6379/0"
	ChannelPrefix  string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"notifykit:realtime:"` // ChannelPrefix namespaces realtime channels in Redis.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                   // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                  // RetryInterval is the pause between attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                // ConnectTimeout bounds the whole connection phase.
}
