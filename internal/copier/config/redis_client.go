package config

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the optional Redis event sink settings.
type RedisConfig struct {
	Enabled         bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DATABASE" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"4"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	StreamMaxLength int64  `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"10000"`
}

// GetAddr returns host:port
func (c RedisConfig) GetAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultRedisConfig returns the defaults used for local development.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:            "localhost",
		Port:            "6379",
		MaxRetries:      3,
		PoolSize:        4,
		ConnMaxIdleTime: "30m",
		StreamMaxLength: 10000,
	}
}

// NewRedisClient creates a new Redis client using the provided configuration
func NewRedisClient(cfg RedisConfig) *redis.Client {
	connMaxIdleTime, _ := time.ParseDuration(cfg.ConnMaxIdleTime)
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 30 * time.Minute
	}

	options := &redis.Options{
		Addr:       cfg.GetAddr(),
		Password:   cfg.Password,
		DB:         cfg.Database,
		MaxRetries: cfg.MaxRetries,
		PoolSize:   cfg.PoolSize,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,

		ConnMaxIdleTime: connMaxIdleTime,
	}

	if cfg.EnableTLS {
		options.TLSConfig = &tls.Config{
			ServerName: cfg.Host,
		}
	}

	return redis.NewClient(options)
}
