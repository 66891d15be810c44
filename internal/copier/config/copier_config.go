package config

import (
	"fmt"
	"strings"
	"time"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/shared/errors"

	"github.com/caarlos0/env/v6"
)

// Supported backends
const (
	BackendFirestore = "firestore"
	BackendMongoDB   = "mongodb"
	BackendMemory    = "memory"
)

// FirestoreConfig identifies the Cloud Firestore database.
type FirestoreConfig struct {
	ProjectID       string `env:"FIRESTORE_PROJECT_ID" envDefault:"regualtor-wr"`
	DatabaseID      string `env:"FIRESTORE_DATABASE_ID" envDefault:"brand-submitter"`
	CredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE" envDefault:"./sa-key.json"`
}

// MongoDBConfig holds the MongoDB backend settings.
type MongoDBConfig struct {
	URI          string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"MONGODB_DATABASE" envDefault:"brand-submitter"`
	Transactions bool   `env:"MONGODB_TRANSACTIONS" envDefault:"true"`
}

// LogConfig drives the logrus logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Config holds all configuration for the copier.
type Config struct {
	Backend        string        `env:"COPIER_BACKEND" envDefault:"firestore"`
	BatchSize      int           `env:"COPIER_BATCH_SIZE" envDefault:"500"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`

	Firestore FirestoreConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Log       LogConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.NewConfigurationError("failed to load copier configuration from environment").WithCause(err)
	}
	for name, section := range map[string]interface{}{
		"firestore": &cfg.Firestore,
		"mongodb":   &cfg.MongoDB,
		"redis":     &cfg.Redis,
		"log":       &cfg.Log,
	} {
		if err := env.Parse(section); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("failed to load %s configuration from environment", name)).WithCause(err)
		}
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the selected backend depends on.
func (c *Config) Validate() error {
	if !model.ValidBatchSize(c.BatchSize) {
		return errors.NewConfigurationError(fmt.Sprintf("COPIER_BATCH_SIZE must be between 1 and %d", model.MaxBatchSize)).
			WithDetail("batch_size", c.BatchSize)
	}
	if c.ConnectTimeout <= 0 {
		return errors.NewConfigurationError("CONNECT_TIMEOUT must be positive")
	}

	switch c.Backend {
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.NewConfigurationError("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			return errors.NewConfigurationError("MONGODB_URI is required for the mongodb backend")
		}
		if c.MongoDB.DatabaseName == "" {
			return errors.NewConfigurationError("MONGODB_DATABASE is required for the mongodb backend")
		}
	case BackendMemory:
	default:
		return errors.NewConfigurationError(fmt.Sprintf("COPIER_BACKEND %q is not supported", c.Backend)).
			WithCause(errors.ErrUnknownBackend)
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return errors.NewConfigurationError("REDIS_HOST is required when REDIS_ENABLED is true")
	}
	return nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendFirestore,
		BatchSize:      model.DefaultBatchSize,
		ConnectTimeout: 30 * time.Second,
		Firestore: FirestoreConfig{
			ProjectID:       "regualtor-wr",
			DatabaseID:      "brand-submitter",
			CredentialsFile: "./sa-key.json",
		},
		MongoDB: MongoDBConfig{
			URI:          "mongodb://localhost:27017",
			DatabaseName: "brand-submitter",
			Transactions: true,
		},
		Redis: DefaultRedisConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
