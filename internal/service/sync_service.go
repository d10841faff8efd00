package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
	"github.com/smouldering-durtles/wk-search/pkg/jobs"
)

const (
	subjectBatchJob = "subject_batch"

	defaultStatusLimit = 1024
	defaultStatusTTL   = time.Hour
)

type subjectWriter interface {
	Upsert(ctx context.Context, subject models.Subject) error
	ReplaceAll(ctx context.Context, subjects []models.Subject) error
}

type propertyWriter interface {
	Put(ctx context.Context, name, value string) error
}

// SyncServiceConfig tunes the ingestion worker.
type SyncServiceConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	// StatusLimit and StatusTTL bound how many job statuses are retained and for how long.
	StatusLimit int
	StatusTTL   time.Duration
}

// SyncService feeds subject batches from the sync collaborator into the subject store.
type SyncService struct {
	subjects  subjectWriter
	props     propertyWriter
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	// mu guards the fields of the stored statuses; the LRU locks itself.
	mu       sync.RWMutex
	statuses *expirable.LRU[string, *models.SyncJobStatus]
}

// NewSyncService wires the service and its worker queue. Call Start before Submit.
func NewSyncService(subjects subjectWriter, props propertyWriter, validate *validator.Validate, logger *zap.Logger, cfg SyncServiceConfig) *SyncService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatusLimit <= 0 {
		cfg.StatusLimit = defaultStatusLimit
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = defaultStatusTTL
	}
	svc := &SyncService{
		subjects:  subjects,
		props:     props,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		statuses:  expirable.NewLRU[string, *models.SyncJobStatus](cfg.StatusLimit, nil, cfg.StatusTTL),
	}
	svc.queue = jobs.NewQueue("subject-sync", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		OnComplete: svc.complete,
		Logger:     logger,
	})
	return svc
}

// Start launches the ingestion workers.
func (s *SyncService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the workers. Batches not yet applied are dropped and must be resubmitted.
func (s *SyncService) Stop() {
	s.queue.Stop()
}

// Submit queues batch for asynchronous application and returns the job id.
func (s *SyncService) Submit(ctx context.Context, batch models.SubjectBatch) (string, error) {
	if err := s.validator.Struct(batch); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject batch")
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.statuses.Add(id, &models.SyncJobStatus{
		ID:          id,
		State:       models.SyncJobPending,
		Cursor:      batch.Cursor,
		Subjects:    len(batch.Subjects),
		SubmittedAt: s.now(),
	})
	s.mu.Unlock()

	if _, err := s.queue.Enqueue(jobs.Job{ID: id, Type: subjectBatchJob, Payload: batch}); err != nil {
		s.mu.Lock()
		s.statuses.Remove(id)
		s.mu.Unlock()
		return "", appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "sync queue unavailable")
	}
	s.logger.Info("subject batch queued", zap.String("job_id", id), zap.Int("subjects", len(batch.Subjects)))
	return id, nil
}

// Status returns a copy of the job state. Statuses are forgotten once StatusTTL
// has passed since the job finished or when newer jobs push them out.
func (s *SyncService) Status(id string) (*models.SyncJobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses.Peek(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sync job not found")
	}
	clone := *status
	clone.Result.Skipped = append([]int64(nil), status.Result.Skipped...)
	return &clone, nil
}

// ApplyBatch upserts every subject of batch in order and then records its cursor.
// Subjects violating store invariants are skipped; any other failure stops the batch.
func (s *SyncService) ApplyBatch(ctx context.Context, batch models.SubjectBatch) (models.SyncResult, error) {
	var result models.SyncResult
	for _, subject := range batch.Subjects {
		if err := s.subjects.Upsert(ctx, subject); err != nil {
			if errors.Is(err, appErrors.ErrInternalAssertion) {
				s.logger.Warn("skipping invalid subject", zap.Int64("subject_id", subject.ID), zap.Error(err))
				result.Skipped = append(result.Skipped, subject.ID)
				continue
			}
			return result, err
		}
		result.Applied++
	}
	if batch.Cursor != "" {
		if err := s.props.Put(ctx, models.PropertyLastSyncCursor, batch.Cursor); err != nil {
			return result, err
		}
	}
	return result, nil
}

// FullResync replaces every stored subject and records the sync time and cursor.
func (s *SyncService) FullResync(ctx context.Context, subjects []models.Subject, cursor string) error {
	if err := s.subjects.ReplaceAll(ctx, subjects); err != nil {
		return err
	}
	if err := s.props.Put(ctx, models.PropertyLastFullSync, s.now().Format(time.RFC3339)); err != nil {
		return err
	}
	if cursor != "" {
		return s.props.Put(ctx, models.PropertyLastSyncCursor, cursor)
	}
	return nil
}

func (s *SyncService) handle(ctx context.Context, job jobs.Job) error {
	batch, ok := job.Payload.(models.SubjectBatch)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	result, err := s.ApplyBatch(ctx, batch)
	s.mu.Lock()
	if status, ok := s.statuses.Peek(job.ID); ok {
		status.Result = result
	}
	s.mu.Unlock()
	return err
}

func (s *SyncService) complete(job jobs.Job, err error) {
	finished := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses.Peek(job.ID)
	if !ok {
		return
	}
	status.FinishedAt = &finished
	status.State = models.SyncJobSucceeded
	if err != nil {
		status.State = models.SyncJobFailed
		status.Error = err.Error()
	}
	// Re-adding restarts the TTL from completion.
	s.statuses.Add(job.ID, status)
}
