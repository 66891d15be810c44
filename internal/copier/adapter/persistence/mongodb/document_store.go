package mongodb

import (
	"context"
	"fmt"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/copier/domain/repository"
	"firestore-copier/internal/shared/errors"
	"firestore-copier/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	component = "mongodb_store"
	idField   = "_id"
)

// Config holds the MongoDB connection settings
type Config struct {
	URI          string
	DatabaseName string
	// Transactions wraps every commit in a multi-document transaction.
	// Requires a replica set or sharded cluster.
	Transactions bool
}

// DocumentStore implements repository.DocumentStore on MongoDB. A collection
// path maps to the Mongo collection of the same name and the document ID is
// stored in _id.
type DocumentStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	logger       logger.Logger
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore connects to MongoDB and verifies the connection
func NewDocumentStore(ctx context.Context, cfg Config, log logger.Logger) (*DocumentStore, error) {
	if cfg.URI == "" {
		return nil, errors.NewConfigurationError("MongoDB URI is required").WithComponent(component)
	}
	if cfg.DatabaseName == "" {
		return nil, errors.NewConfigurationError("MongoDB database name is required").WithComponent(component)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.NewInfrastructureError("failed to connect to MongoDB").
			WithCause(err).
			WithComponent(component)
	}

	store := NewDocumentStoreFromClient(client, cfg.DatabaseName, cfg.Transactions, log)
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	store.logger.Info("MongoDB connection established successfully")
	return store, nil
}

// NewDocumentStoreFromClient wraps an already connected client.
func NewDocumentStoreFromClient(client *mongo.Client, databaseName string, transactions bool, log logger.Logger) *DocumentStore {
	store := &DocumentStore{
		client:       client,
		db:           client.Database(databaseName),
		transactions: transactions,
		logger: log.WithComponent(component).WithFields(map[string]interface{}{
			"database_id":  databaseName,
			"transactions": transactions,
		}),
	}
	if !transactions {
		store.logger.Warn("Transactions disabled, a failed commit may leave part of its batch written")
	}
	return store
}

// ListDocuments loads the whole collection with Find + cursor.All.
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, backendError("failed to find documents", collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, backendError("failed to retrieve documents", collection, err)
	}

	docs := make([]*model.Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, documentFromRaw(r))
	}
	s.logger.WithFields(map[string]interface{}{
		"collection": collection,
		"documents":  len(docs),
	}).Debug("Read collection snapshot")
	return docs, nil
}

// NewBatch opens an empty write batch
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &writeBatch{store: s}
}

// Ping checks the primary is reachable
func (s *DocumentStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return backendError("ping to MongoDB failed", "", err)
	}
	return nil
}

// Close disconnects the client
func (s *DocumentStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// commit applies writes as ordered ReplaceOne upserts, grouped per collection.
func (s *DocumentStore) commit(ctx context.Context, writes []model.WriteOperation) error {
	if len(writes) == 0 {
		return nil
	}

	apply := func(ctx context.Context) error {
		var applied int64
		for _, group := range groupByCollection(writes) {
			res, err := s.db.Collection(group.collection).BulkWrite(ctx, group.models, options.BulkWrite().SetOrdered(true))
			if err != nil {
				appErr := backendError("bulk write failed", group.collection, err).WithDetail("writes", len(group.models))
				if !s.transactions {
					// Without a transaction the writes before the failing one stay in place.
					appErr.WithDetail("applied", applied+appliedWrites(res))
				}
				return appErr
			}
			applied += int64(len(group.models))
		}
		return nil
	}

	if !s.transactions {
		return apply(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return backendError("failed to start session", "", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, apply(sc)
	})
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return err
		}
		return backendError("transaction failed", "", err)
	}
	return nil
}

// appliedWrites counts the writes an ordered bulk write completed before it
// stopped.
func appliedWrites(res *mongo.BulkWriteResult) int64 {
	if res == nil {
		return 0
	}
	return res.MatchedCount + res.UpsertedCount
}

type collectionWrites struct {
	collection string
	models     []mongo.WriteModel
}

func groupByCollection(writes []model.WriteOperation) []*collectionWrites {
	var groups []*collectionWrites
	index := make(map[string]*collectionWrites)
	for _, w := range writes {
		group, ok := index[w.Collection]
		if !ok {
			group = &collectionWrites{collection: w.Collection}
			index[w.Collection] = group
			groups = append(groups, group)
		}
		group.models = append(group.models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: idField, Value: w.DocumentID}}).
			SetReplacement(replacementFor(w.DocumentID, w.Data)).
			SetUpsert(true))
	}
	return groups
}

// replacementFor builds the stored form of a document: its payload plus _id.
func replacementFor(id string, data map[string]interface{}) bson.M {
	doc := make(bson.M, len(data)+1)
	for k, v := range data {
		if k == idField {
			continue
		}
		doc[k] = v
	}
	doc[idField] = id
	return doc
}

// documentFromRaw splits _id from the payload. Non-string IDs are rendered as text.
func documentFromRaw(raw bson.M) *model.Document {
	var id string
	switch v := raw[idField].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	case nil:
	default:
		id = fmt.Sprint(v)
	}

	data := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k != idField {
			data[k] = v
		}
	}
	return model.NewDocument(id, data)
}

func backendError(message, collection string, err error) *errors.AppError {
	appErr := errors.NewInfrastructureError(message).
		WithCause(err).
		WithComponent(component)
	if collection != "" {
		appErr.WithDetail("collection", collection)
	}
	return appErr
}

type writeBatch struct {
	store  *DocumentStore
	writes []model.WriteOperation
}

func (b *writeBatch) Set(collection, documentID string, data map[string]interface{}) {
	b.writes = append(b.writes, model.WriteOperation{
		Collection: collection,
		DocumentID: documentID,
		Data:       data,
	})
}

func (b *writeBatch) Size() int {
	return len(b.writes)
}

func (b *writeBatch) Commit(ctx context.Context) error {
	return b.store.commit(ctx, b.writes)
}
