package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

type subjectWriterStub struct {
	mu        sync.Mutex
	upserted  []int64
	replaced  []models.Subject
	failures  int
	transient error
}

func (s *subjectWriterStub) Upsert(ctx context.Context, subject models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !subject.HasDisplayText() {
		return appErrors.Clone(appErrors.ErrInternalAssertion, "no display text")
	}
	if s.failures > 0 {
		s.failures--
		return s.transient
	}
	s.upserted = append(s.upserted, subject.ID)
	return nil
}

func (s *subjectWriterStub) ReplaceAll(ctx context.Context, subjects []models.Subject) error {
	s.replaced = subjects
	return nil
}

type propertyWriterStub struct {
	mu    sync.Mutex
	items map[string]string
}

func (p *propertyWriterStub) Put(ctx context.Context, name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[name] = value
	return nil
}

func (p *propertyWriterStub) get(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[name]
}

func TestSyncServiceApplyBatchSkipsInvalidSubjects(t *testing.T) {
	subjects := &subjectWriterStub{}
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(subjects, props, nil, nil, SyncServiceConfig{})

	result, err := svc.ApplyBatch(context.Background(), models.SubjectBatch{
		Cursor:   "2024-05-01T00:00:00Z",
		Subjects: []models.Subject{kanji(1, "水", "water"), {ID: 2, SuggestionType: models.SuggestionTypeRadical}, kanji(3, "火", "fire")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, []int64{2}, result.Skipped)
	assert.Equal(t, []int64{1, 3}, subjects.upserted)
	assert.Equal(t, "2024-05-01T00:00:00Z", props.get(models.PropertyLastSyncCursor))
}

func TestSyncServiceApplyBatchStopsOnTransientFailure(t *testing.T) {
	subjects := &subjectWriterStub{failures: 1, transient: errors.New("database is locked")}
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(subjects, props, nil, nil, SyncServiceConfig{})

	_, err := svc.ApplyBatch(context.Background(), models.SubjectBatch{Cursor: "c1", Subjects: []models.Subject{kanji(1, "水", "water")}})
	require.Error(t, err)
	assert.Empty(t, props.get(models.PropertyLastSyncCursor))
}

func TestSyncServiceSubmitRetriesAndReportsStatus(t *testing.T) {
	subjects := &subjectWriterStub{failures: 1, transient: errors.New("database is locked")}
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(subjects, props, nil, nil, SyncServiceConfig{Retries: 2, RetryDelay: time.Millisecond})
	svc.Start(context.Background())
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), models.SubjectBatch{Cursor: "c2", Subjects: []models.Subject{kanji(1, "水", "water")}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := svc.Status(id)
		return err == nil && status.State == models.SyncJobSucceeded
	}, time.Second, 5*time.Millisecond)

	status, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Result.Applied)
	assert.NotNil(t, status.FinishedAt)
	assert.Equal(t, "c2", props.get(models.PropertyLastSyncCursor))
}

func TestSyncServiceSubmitValidatesBatch(t *testing.T) {
	svc := NewSyncService(&subjectWriterStub{}, &propertyWriterStub{items: map[string]string{}}, nil, nil, SyncServiceConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Submit(context.Background(), models.SubjectBatch{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Status("unknown")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSyncServiceFullResync(t *testing.T) {
	subjects := &subjectWriterStub{}
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(subjects, props, nil, nil, SyncServiceConfig{})
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.FullResync(context.Background(), []models.Subject{kanji(1, "水", "water")}, "c3"))
	assert.Len(t, subjects.replaced, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", props.get(models.PropertyLastFullSync))
	assert.Equal(t, "c3", props.get(models.PropertyLastSyncCursor))
}

func TestSyncServiceStatusEvictsOldestJobs(t *testing.T) {
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(&subjectWriterStub{}, props, nil, nil, SyncServiceConfig{StatusLimit: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	first, err := svc.Submit(context.Background(), models.SubjectBatch{Subjects: []models.Subject{kanji(1, "水", "water")}})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), models.SubjectBatch{Subjects: []models.Subject{kanji(2, "火", "fire")}})
	require.NoError(t, err)

	_, err = svc.Status(first)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	_, err = svc.Status(second)
	assert.NoError(t, err)
}

func TestSyncServiceStatusExpiresAfterTTL(t *testing.T) {
	props := &propertyWriterStub{items: map[string]string{}}
	svc := NewSyncService(&subjectWriterStub{}, props, nil, nil, SyncServiceConfig{StatusTTL: 20 * time.Millisecond})
	svc.Start(context.Background())
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), models.SubjectBatch{Subjects: []models.Subject{kanji(1, "水", "water")}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := svc.Status(id)
		return err != nil && appErrors.FromError(err).Code == appErrors.ErrNotFound.Code
	}, time.Second, 5*time.Millisecond)
}
