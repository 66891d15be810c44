package usecase

import (
	"context"
	"time"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/copier/domain/repository"
	"firestore-copier/internal/shared/contextkeys"
	"firestore-copier/internal/shared/errors"
	"firestore-copier/internal/shared/eventbus"
	"firestore-copier/internal/shared/firestore"
	"firestore-copier/internal/shared/logger"

	"github.com/google/uuid"
)

const component = "copier"

// CopyUsecaseInterface copies one collection into another.
type CopyUsecaseInterface interface {
	CopyCollection(ctx context.Context, source, destination string) (*model.CopyResult, error)
}

// CopyUsecase reads a full snapshot of a collection and writes it into another
// collection in sequential batches.
type CopyUsecase struct {
	store     repository.DocumentStore
	events    eventbus.Publisher
	logger    logger.Logger
	batchSize int
	newRunID  func() string
	now       func() time.Time
}

var _ CopyUsecaseInterface = (*CopyUsecase)(nil)

// NewCopyUsecase creates the copier. events may be nil. A batch size outside
// 1..model.MaxBatchSize falls back to model.DefaultBatchSize.
func NewCopyUsecase(store repository.DocumentStore, events eventbus.Publisher, log logger.Logger, batchSize int) *CopyUsecase {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent(component)
	if !model.ValidBatchSize(batchSize) {
		log.Warnf("Batch size %d out of range, using %d", batchSize, model.DefaultBatchSize)
		batchSize = model.DefaultBatchSize
	}
	return &CopyUsecase{
		store:     store,
		events:    events,
		logger:    log,
		batchSize: batchSize,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// BatchSize returns the number of writes per commit.
func (uc *CopyUsecase) BatchSize() int {
	return uc.batchSize
}

// CopyCollection copies every document of source into destination under the
// same ID, overwriting existing documents. Commits run one after another.
// A failed commit stops the run. Earlier commits stay in place.
func (uc *CopyUsecase) CopyCollection(ctx context.Context, source, destination string) (*model.CopyResult, error) {
	source, destination, err := validatePair(source, destination)
	if err != nil {
		return nil, err
	}

	result := &model.CopyResult{
		RunID:       uc.newRunID(),
		Source:      source,
		Destination: destination,
		StartedAt:   uc.now(),
	}

	ctx = context.WithValue(ctx, contextkeys.RunIDKey, result.RunID)
	ctx = context.WithValue(ctx, contextkeys.SourceKey, source)
	ctx = context.WithValue(ctx, contextkeys.DestinationKey, destination)
	log := uc.logger.WithContext(ctx)

	uc.publish(ctx, log, eventbus.EventTypeCopyStarted, uc.event(result))
	log.Info("Reading source snapshot")

	docs, err := uc.store.ListDocuments(ctx, source)
	if err != nil {
		return nil, uc.fail(ctx, log, result, errors.NewSnapshotError(source, err).WithComponent(component))
	}
	log.Infof("Snapshot holds %d documents, %d commits planned", len(docs), model.CommitCount(len(docs), uc.batchSize))

	batch := uc.store.NewBatch()
	ops := 0
	for _, doc := range docs {
		batch.Set(destination, doc.ID, doc.Data)
		ops++
		if ops == uc.batchSize {
			if err := uc.commit(ctx, log, batch, result); err != nil {
				return nil, err
			}
			batch = uc.store.NewBatch()
			ops = 0
		}
	}
	if ops > 0 {
		if err := uc.commit(ctx, log, batch, result); err != nil {
			return nil, err
		}
	}

	result.FinishedAt = uc.now()
	completed := uc.event(result)
	completed.Total = len(docs)
	uc.publish(ctx, log, eventbus.EventTypeCopyCompleted, completed)

	log.WithFields(map[string]interface{}{
		"copied":      result.Copied,
		"batches":     result.Batches,
		"duration_ms": result.Duration().Milliseconds(),
	}).Info("Copy completed")
	return result, nil
}

func (uc *CopyUsecase) commit(ctx context.Context, log logger.Logger, batch repository.WriteBatch, result *model.CopyResult) error {
	size := batch.Size()
	number := result.Batches + 1

	if err := batch.Commit(ctx); err != nil {
		appErr := errors.NewCommitError(number, result.Copied, size, err).WithComponent(component)
		return uc.fail(ctx, log, result, appErr)
	}

	result.Batches = number
	result.Copied += size
	log.WithFields(map[string]interface{}{
		"batch":  number,
		"writes": size,
		"copied": result.Copied,
	}).Debug("Batch committed")

	ev := uc.event(result)
	ev.Batch = number
	ev.BatchSize = size
	uc.publish(ctx, log, eventbus.EventTypeCopyBatchCommitted, ev)
	return nil
}

// fail publishes copy.failed and returns appErr. Reporting the error is left to
// the caller.
func (uc *CopyUsecase) fail(ctx context.Context, log logger.Logger, result *model.CopyResult, appErr *errors.AppError) error {
	ev := uc.event(result)
	ev.Error = appErr.Error()
	uc.publish(ctx, log, eventbus.EventTypeCopyFailed, ev)
	return appErr
}

func (uc *CopyUsecase) event(result *model.CopyResult) model.CopyEvent {
	return model.CopyEvent{
		RunID:       result.RunID,
		Source:      result.Source,
		Destination: result.Destination,
		Copied:      result.Copied,
	}
}

// publish never fails the run: event delivery is best effort.
func (uc *CopyUsecase) publish(ctx context.Context, log logger.Logger, eventType string, payload model.CopyEvent) {
	if uc.events == nil {
		return
	}
	event := eventbus.NewBasicEventWithSource(eventType, payload, component)
	if err := uc.events.Publish(ctx, event); err != nil {
		log.WithError(err).Warnf("Failed to publish %s event", eventType)
	}
}

func validatePair(source, destination string) (string, string, error) {
	src, err := firestore.ValidateCollectionPath(source)
	if err != nil {
		return "", "", withRole(err, "source")
	}
	dst, err := firestore.ValidateCollectionPath(destination)
	if err != nil {
		return "", "", withRole(err, "destination")
	}
	if src == dst {
		return "", "", errors.NewValidationError("source and destination must differ").
			WithCause(errors.ErrSameCollection).
			WithComponent(component).
			WithDetail("collection", src)
	}
	return src, dst, nil
}

func withRole(err error, role string) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail("role", role).WithComponent(component)
	}
	return err
}
