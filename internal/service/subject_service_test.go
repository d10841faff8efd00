package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/repository"
	"github.com/smouldering-durtles/wk-search/internal/search"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

type subjectRepoStub struct {
	mu          sync.Mutex
	subjects    map[int64]models.Subject
	corrupt     map[int64]bool
	prefix      []repository.RankedMatch
	prefixErr   error
	substring   []repository.RankedMatch
	substrErr   error
	findErr     error
	upsertErr   error
	prefixCalls int
	substrCalls int
	lastLimit   int
	upserted    []repository.IndexedSubject
	replaced    []repository.IndexedSubject
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

func (s *subjectRepoStub) FindByIDs(ctx context.Context, ids []int64) ([]models.Subject, []int64, error) {
	var found []models.Subject
	var corrupt []int64
	// Reverse order to prove the service restores rank order.
	for i := len(ids) - 1; i >= 0; i-- {
		if s.corrupt[ids[i]] {
			corrupt = append(corrupt, ids[i])
			continue
		}
		if subject, ok := s.subjects[ids[i]]; ok {
			found = append(found, subject)
		}
	}
	return found, corrupt, s.findErr
}

func (s *subjectRepoStub) MatchPrefix(ctx context.Context, query string, limit int) ([]repository.RankedMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixCalls++
	s.lastLimit = limit
	return s.prefix, s.prefixErr
}

func (s *subjectRepoStub) MatchSubstring(ctx context.Context, query string, limit int) ([]repository.RankedMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.substrCalls++
	return s.substring, s.substrErr
}

func (s *subjectRepoStub) Upsert(ctx context.Context, item repository.IndexedSubject) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, item)
	return nil
}

func (s *subjectRepoStub) ReplaceAll(ctx context.Context, items []repository.IndexedSubject) error {
	s.replaced = items
	return s.upsertErr
}

func (s *subjectRepoStub) SearchKeys(ctx context.Context, id int64) ([]string, error) {
	return nil, nil
}

func (s *subjectRepoStub) Count(ctx context.Context) (int, error) {
	return len(s.subjects), nil
}

func kanji(id int64, characters, meaning string) models.Subject {
	return models.Subject{ID: id, SuggestionType: models.SuggestionTypeKanji, Characters: models.StringPtr(characters), OneMeaning: meaning}
}

func match(id int64, tier search.Tier) repository.RankedMatch {
	return repository.RankedMatch{SubjectID: id, Tier: tier}
}

func newSubjectServiceForTest(repo *subjectRepoStub, cache *SuggestionCache) *SubjectService {
	return NewSubjectService(repo, cache, nil, nil, nil, SubjectServiceConfig{DefaultLimit: 20, MaxLimit: 50, Deadline: time.Second})
}

func subjectIDs(subjects []models.Subject) []int64 {
	ids := make([]int64, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	return ids
}

func TestSubjectServiceGetByIDNotFound(t *testing.T) {
	svc := newSubjectServiceForTest(&subjectRepoStub{subjects: map[int64]models.Subject{}}, nil)

	_, err := svc.GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceGetByIDTransient(t *testing.T) {
	svc := newSubjectServiceForTest(&subjectRepoStub{findErr: errors.New("disk I/O error")}, nil)

	_, err := svc.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageTransient.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceSearchEmptyQuery(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceForTest(repo, nil)

	assert.Empty(t, svc.SearchSuggestions(context.Background(), "", 10))
	assert.Empty(t, svc.SearchSuggestions(context.Background(), "   ", 10))
	assert.Equal(t, 0, repo.prefixCalls)
}

func TestSubjectServiceSearchKeepsRankOrderAndSkipsCorrupt(t *testing.T) {
	repo := &subjectRepoStub{
		subjects: map[int64]models.Subject{1: kanji(1, "水", "water"), 2: kanji(2, "氷", "ice"), 3: kanji(3, "永", "eternity")},
		corrupt:  map[int64]bool{2: true},
		prefix:   []repository.RankedMatch{match(3, search.TierExact), match(2, search.TierPrefix), match(1, search.TierPrefix)},
	}
	svc := newSubjectServiceForTest(repo, nil)

	result := svc.SearchSuggestions(context.Background(), "x", 10)
	assert.Equal(t, []int64{3, 1}, subjectIDs(result))
	assert.Equal(t, 0, repo.substrCalls)
}

func TestSubjectServiceSearchLimits(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceForTest(repo, nil)

	svc.SearchSuggestions(context.Background(), "a", 0)
	assert.Equal(t, 20, repo.lastLimit)
	svc.SearchSuggestions(context.Background(), "b", 500)
	assert.Equal(t, 50, repo.lastLimit)
	svc.SearchSuggestions(context.Background(), "c", 5)
	assert.Equal(t, 5, repo.lastLimit)
}

func TestSubjectServiceSubstringFallbackNeedsTwoRunes(t *testing.T) {
	repo := &subjectRepoStub{
		subjects:  map[int64]models.Subject{3: {ID: 3, SuggestionType: models.SuggestionTypeVocabulary, Characters: models.StringPtr("お水")}},
		substring: []repository.RankedMatch{match(3, search.TierSubstring)},
	}
	svc := newSubjectServiceForTest(repo, nil)

	assert.Empty(t, svc.SearchSuggestions(context.Background(), "水", 10))
	assert.Equal(t, 0, repo.substrCalls)

	result := svc.SearchSuggestions(context.Background(), "お水", 10)
	assert.Equal(t, []int64{3}, subjectIDs(result))
	assert.Equal(t, 1, repo.substrCalls)
}

func TestSubjectServiceSearchSwallowsStorageErrors(t *testing.T) {
	repo := &subjectRepoStub{prefixErr: errors.New("database is locked")}
	svc := newSubjectServiceForTest(repo, nil)

	result := svc.SearchSuggestions(context.Background(), "water", 10)
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.Equal(t, 0, repo.substrCalls)
}

func TestSubjectServiceSearchReturnsPartialResultOnDeadline(t *testing.T) {
	repo := &subjectRepoStub{
		subjects:  map[int64]models.Subject{1: kanji(1, "水", "water")},
		prefix:    []repository.RankedMatch{match(1, search.TierPrefix)},
		prefixErr: context.DeadlineExceeded,
	}
	cache := NewSuggestionCache(newMapCache(), nil, time.Minute, nil)
	svc := newSubjectServiceForTest(repo, cache)

	result := svc.SearchSuggestions(context.Background(), "w", 10)
	assert.Equal(t, []int64{1}, subjectIDs(result))

	// Partial results are not cached.
	svc.SearchSuggestions(context.Background(), "w", 10)
	assert.Equal(t, 2, repo.prefixCalls)
}

func TestSubjectServiceCachesUntilUpsert(t *testing.T) {
	repo := &subjectRepoStub{
		subjects: map[int64]models.Subject{1: kanji(1, "水", "water")},
		prefix:   []repository.RankedMatch{match(1, search.TierExact)},
	}
	cache := NewSuggestionCache(newMapCache(), nil, time.Minute, nil)
	svc := newSubjectServiceForTest(repo, cache)
	ctx := context.Background()

	first := svc.SearchSuggestions(ctx, "水", 10)
	second := svc.SearchSuggestions(ctx, " 水 ", 10)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.prefixCalls)

	require.NoError(t, svc.Upsert(ctx, kanji(1, "水", "aqua")))
	svc.SearchSuggestions(ctx, "水", 10)
	assert.Equal(t, 2, repo.prefixCalls)
}

func TestSubjectServiceUpsertRejectsInvalidSubjects(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceForTest(repo, nil)
	ctx := context.Background()

	cases := []models.Subject{
		{ID: 0, SuggestionType: models.SuggestionTypeKanji, Characters: models.StringPtr("水")},
		{ID: 1, SuggestionType: "Kana", Characters: models.StringPtr("あ")},
		{ID: 2, SuggestionType: models.SuggestionTypeRadical},
		{ID: 3, SuggestionType: models.SuggestionTypeRadical, Characters: models.StringPtr(""), Slug: models.StringPtr("")},
	}
	for _, subject := range cases {
		err := svc.Upsert(ctx, subject)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInternalAssertion.Code, appErrors.FromError(err).Code, "subject %d", subject.ID)
	}
	assert.Empty(t, repo.upserted)
}

func TestSubjectServiceUpsertIndexesKeys(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceForTest(repo, nil)

	require.NoError(t, svc.Upsert(context.Background(), kanji(1, "水", "Water")))
	require.Len(t, repo.upserted, 1)
	assert.Contains(t, repo.upserted[0].Keys, "水")
	assert.Contains(t, repo.upserted[0].Keys, "water")
}

func TestSubjectServiceUpsertStorageFailure(t *testing.T) {
	repo := &subjectRepoStub{upsertErr: errors.New("disk full")}
	svc := newSubjectServiceForTest(repo, nil)

	err := svc.Upsert(context.Background(), kanji(1, "水", "water"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageTransient.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceReplaceAllRejectsDuplicates(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceForTest(repo, nil)

	err := svc.ReplaceAll(context.Background(), []models.Subject{kanji(1, "水", "water"), kanji(1, "氷", "ice")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternalAssertion.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.replaced)
}

type blockingPrefixRepo struct {
	*subjectRepoStub
	entered chan struct{}
	release chan struct{}
}

func (r *blockingPrefixRepo) MatchPrefix(ctx context.Context, query string, limit int) ([]repository.RankedMatch, error) {
	r.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}
	return r.subjectRepoStub.MatchPrefix(ctx, query, limit)
}

func TestSubjectServiceSharedSearchSurvivesCallerCancellation(t *testing.T) {
	repo := &blockingPrefixRepo{
		subjectRepoStub: &subjectRepoStub{
			subjects: map[int64]models.Subject{1: kanji(1, "水", "water")},
			prefix:   []repository.RankedMatch{match(1, search.TierExact)},
		},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	svc := NewSubjectService(repo, nil, nil, nil, nil, SubjectServiceConfig{DefaultLimit: 20, MaxLimit: 50, Deadline: time.Second})

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	go svc.SearchSuggestions(first, "water", 10)
	<-repo.entered

	results := make(chan []models.Subject, 1)
	go func() {
		results <- svc.SearchSuggestions(context.Background(), "water", 10)
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	select {
	case got := <-results:
		assert.Equal(t, []int64{1}, subjectIDs(got))
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.prefixCalls)
}
