package firestore

import (
	"context"
	"fmt"
	"os"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/copier/domain/repository"
	"firestore-copier/internal/shared/errors"
	"firestore-copier/internal/shared/logger"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	component = "firestore_store"

	emulatorHostEnv = "FIRESTORE_EMULATOR_HOST"
)

// Config identifies the Firestore database to open.
type Config struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
}

// DocumentStore implements repository.DocumentStore on Cloud Firestore.
type DocumentStore struct {
	client *firestore.Client
	cfg    Config
	logger logger.Logger
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore opens a Firestore client for cfg. When FIRESTORE_EMULATOR_HOST
// is set the credentials file is ignored and the emulator is used.
func NewDocumentStore(ctx context.Context, cfg Config, log logger.Logger) (*DocumentStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.NewConfigurationError("firestore project ID is required").WithComponent(component)
	}
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID, clientOptions(cfg)...)
	if err != nil {
		return nil, errors.NewInfrastructureError("failed to create firestore client").
			WithCause(err).
			WithComponent(component).
			WithDetail("project_id", cfg.ProjectID).
			WithDetail("database_id", databaseID)
	}

	log = log.WithComponent(component).WithFields(map[string]interface{}{
		"project_id":  cfg.ProjectID,
		"database_id": databaseID,
	})
	log.Info("Firestore client created")

	return &DocumentStore{client: client, cfg: cfg, logger: log}, nil
}

func clientOptions(cfg Config) []option.ClientOption {
	if os.Getenv(emulatorHostEnv) != "" || cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// ListDocuments reads the whole collection with a single GetAll.
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	ref := s.client.Collection(collection)
	if ref == nil {
		return nil, invalidCollection(collection)
	}

	snaps, err := ref.Documents(ctx).GetAll()
	if err != nil {
		return nil, backendError("failed to list documents", collection, err)
	}

	docs := make([]*model.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, model.NewDocument(snap.Ref.ID, snap.Data()))
	}
	s.logger.WithFields(map[string]interface{}{
		"collection": collection,
		"documents":  len(docs),
	}).Debug("Read collection snapshot")
	return docs, nil
}

// NewBatch opens a Firestore write batch
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &writeBatch{store: s, batch: s.client.Batch()}
}

// Ping lists root collections to check the database answers.
func (s *DocumentStore) Ping(ctx context.Context) error {
	_, err := s.client.Collections(ctx).Next()
	if err != nil && err != iterator.Done {
		return backendError("firestore ping failed", "", err)
	}
	return nil
}

// Close closes the underlying client
func (s *DocumentStore) Close() error {
	return s.client.Close()
}

type writeBatch struct {
	store *DocumentStore
	batch *firestore.WriteBatch
	size  int
	err   error
}

func (b *writeBatch) Set(collection, documentID string, data map[string]interface{}) {
	ref := b.store.client.Collection(collection)
	if ref == nil {
		if b.err == nil {
			b.err = invalidCollection(collection)
		}
		return
	}
	b.batch.Set(ref.Doc(documentID), data)
	b.size++
}

func (b *writeBatch) Size() int {
	return b.size
}

func (b *writeBatch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if b.size == 0 {
		return nil
	}
	if _, err := b.batch.Commit(ctx); err != nil {
		return backendError("batch commit rejected", "", err).WithDetail("writes", b.size)
	}
	return nil
}

func invalidCollection(collection string) *errors.AppError {
	return errors.NewValidationError(fmt.Sprintf("%q is not a collection path", collection)).
		WithCause(errors.ErrInvalidCollectionPath).
		WithComponent(component)
}

// backendError wraps a client error and records its gRPC code.
func backendError(message, collection string, err error) *errors.AppError {
	appErr := errors.NewInfrastructureError(message).
		WithCause(err).
		WithComponent(component).
		WithDetail("grpc_code", StatusCode(err).String())
	if collection != "" {
		appErr.WithDetail("collection", collection)
	}
	return appErr
}

// StatusCode extracts the gRPC status code of a Firestore error. Context errors
// map to their gRPC equivalents.
func StatusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return status.FromContextError(err).Code()
}
