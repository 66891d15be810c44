package memory

import (
	"context"
	"sort"
	"sync"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/copier/domain/repository"
)

// DocumentStore is an in-process backend. Documents are deep-copied on the way
// in and out, and each commit is applied under a single lock.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	commits     []int

	// ListHook, when set, runs before every ListDocuments and may fail it.
	ListHook func(collection string) error
	// CommitHook, when set, runs before every commit with the 1-based commit
	// number and the batch size. A non-nil error rejects the whole batch.
	CommitHook func(commit, size int) error
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty in-memory store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

// Seed stores docs in collection, overwriting existing IDs.
func (s *DocumentStore) Seed(collection string, docs ...*model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.put(collection, doc.ID, doc.Data)
	}
}

// ListDocuments returns a snapshot of collection ordered by ID.
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ListHook != nil {
		if err := s.ListHook(collection); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*model.Document, 0, len(s.collections[collection]))
	for id, data := range s.collections[collection] {
		docs = append(docs, model.NewDocument(id, model.CloneData(data)))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Get returns a copy of one stored document.
func (s *DocumentStore) Get(collection, id string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, false
	}
	return model.CloneData(data), true
}

// Count returns the number of documents in collection.
func (s *DocumentStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Commits returns the size of every successful commit, in order.
func (s *DocumentStore) Commits() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, len(s.commits))
	copy(out, s.commits)
	return out
}

// NewBatch opens an empty write batch
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &writeBatch{store: s}
}

// Ping always succeeds
func (s *DocumentStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *DocumentStore) Close() error {
	return nil
}

func (s *DocumentStore) put(collection, id string, data map[string]interface{}) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]interface{})
		s.collections[collection] = coll
	}
	clone := model.CloneData(data)
	if clone == nil {
		clone = map[string]interface{}{}
	}
	coll[id] = clone
}

func (s *DocumentStore) apply(ctx context.Context, writes []model.WriteOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CommitHook != nil {
		if err := s.CommitHook(len(s.commits)+1, len(writes)); err != nil {
			return err
		}
	}
	for _, w := range writes {
		s.put(w.Collection, w.DocumentID, w.Data)
	}
	s.commits = append(s.commits, len(writes))
	return nil
}

type writeBatch struct {
	store  *DocumentStore
	writes []model.WriteOperation
}

func (b *writeBatch) Set(collection, documentID string, data map[string]interface{}) {
	b.writes = append(b.writes, model.WriteOperation{
		Collection: collection,
		DocumentID: documentID,
		Data:       model.CloneData(data),
	})
}

func (b *writeBatch) Size() int {
	return len(b.writes)
}

func (b *writeBatch) Commit(ctx context.Context) error {
	return b.store.apply(ctx, b.writes)
}
