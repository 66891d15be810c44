package repository

import (
	"context"

	"firestore-copier/internal/copier/domain/model"
)

// DocumentStore is the narrow view of a document backend used by the copier.
type DocumentStore interface {
	// ListDocuments reads every document of a collection into memory.
	ListDocuments(ctx context.Context, collection string) ([]*model.Document, error)

	// NewBatch opens an empty write batch.
	NewBatch() WriteBatch

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend handle.
	Close() error
}

// WriteBatch groups writes that are committed as one atomic unit.
// A batch is single use: after Commit it must be discarded.
type WriteBatch interface {
	// Set stages a full overwrite of collection/documentID with data.
	Set(collection, documentID string, data map[string]interface{})

	// Size returns the number of staged writes.
	Size() int

	// Commit submits all staged writes atomically.
	Commit(ctx context.Context) error
}
