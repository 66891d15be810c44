package di

import (
	"context"
	"fmt"
	"sync"

	"firestore-copier/internal/copier/adapter/persistence"
	firestorestore "firestore-copier/internal/copier/adapter/persistence/firestore"
	"firestore-copier/internal/copier/adapter/persistence/memory"
	mongostore "firestore-copier/internal/copier/adapter/persistence/mongodb"
	"firestore-copier/internal/copier/config"
	"firestore-copier/internal/copier/domain/repository"
	"firestore-copier/internal/copier/usecase"
	"firestore-copier/internal/shared/contextkeys"
	"firestore-copier/internal/shared/errors"
	"firestore-copier/internal/shared/eventbus"
	"firestore-copier/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// Container owns the long-lived handles of one process: the backend client,
// the event bus and its optional Redis sink.
type Container struct {
	mu       sync.Mutex
	closed   bool
	Config   *config.Config
	Logger   logger.Logger
	Store    repository.DocumentStore
	EventBus *eventbus.EventBus
	Redis    *redis.Client
	Copier   *usecase.CopyUsecase
}

// openFirestore is swapped out in tests.
var openFirestore = func(ctx context.Context, cfg firestorestore.Config, log logger.Logger) (repository.DocumentStore, error) {
	store, err := firestorestore.NewDocumentStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewContainer connects the configured backend and wires the copier. ctx must
// outlive the container.
func NewContainer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.NewLoggerWithConfig(cfg.Log.Level, cfg.Log.Format)
	}
	log = log.WithComponent("container")

	store, err := NewDocumentStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		EventBus: eventbus.NewEventBus(log),
	}

	if cfg.Redis.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		c.attachRedis(connectCtx)
		cancel()
	}

	c.Copier = usecase.NewCopyUsecase(store, c.EventBus, log, cfg.BatchSize)
	log.WithFields(map[string]interface{}{
		"backend":    cfg.Backend,
		"batch_size": c.Copier.BatchSize(),
		"redis":      c.Redis != nil,
	}).Info("Copier initialized")
	return c, nil
}

// NewDocumentStore opens the backend selected by cfg.Backend.
func NewDocumentStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		// The client keeps ctx for credential refreshes, so it must not be
		// bounded by the connect timeout.
		return openFirestore(ctx, firestorestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			DatabaseID:      cfg.Firestore.DatabaseID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		}, log)
	case config.BackendMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		store, err := mongostore.NewDocumentStore(connectCtx, mongostore.Config{
			URI:          cfg.MongoDB.URI,
			DatabaseName: cfg.MongoDB.DatabaseName,
			Transactions: cfg.MongoDB.Transactions,
		}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		log.Warn("Using in-memory backend, nothing will be persisted")
		return memory.NewDocumentStore(), nil
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("backend %q is not supported", cfg.Backend)).
			WithCause(errors.ErrUnknownBackend)
	}
}

// attachRedis subscribes the Redis event store to every copy event. An
// unreachable Redis only disables the sink.
func (c *Container) attachRedis(ctx context.Context) {
	client := config.NewRedisClient(c.Config.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.WithError(err).Warnf("Redis at %s unreachable, event sink disabled", c.Config.Redis.GetAddr())
		_ = client.Close()
		return
	}

	store := persistence.NewRedisEventStore(client, c.Config.Redis.StreamMaxLength, c.Logger)
	for _, eventType := range eventbus.CopyEventTypes {
		c.EventBus.Subscribe(eventType, store.Handle)
	}
	c.Redis = client
	c.Logger.Infof("Redis event sink attached at %s", c.Config.Redis.GetAddr())
}

// RunContext tags ctx with the project and database the store points at, so
// that run logs carry them.
func (c *Container) RunContext(ctx context.Context) context.Context {
	switch c.Config.Backend {
	case config.BackendFirestore:
		ctx = context.WithValue(ctx, contextkeys.ProjectIDKey, c.Config.Firestore.ProjectID)
		ctx = context.WithValue(ctx, contextkeys.DatabaseIDKey, c.Config.Firestore.DatabaseID)
	case config.BackendMongoDB:
		ctx = context.WithValue(ctx, contextkeys.DatabaseIDKey, c.Config.MongoDB.DatabaseName)
	}
	return ctx
}

// HealthCheck pings the backend and, when attached, Redis. The run calls it
// before reading the source.
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return fmt.Errorf("document store unhealthy: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// Close releases every handle. It is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close redis: %w", err)
		}
	}
	if err := c.Store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close document store: %w", err)
	}
	return firstErr
}
