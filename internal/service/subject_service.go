package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/repository"
	"github.com/smouldering-durtles/wk-search/internal/search"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

const (
	defaultSuggestionLimit    = 20
	defaultMaxSuggestionLimit = 100
	defaultSuggestionDeadline = 250 * time.Millisecond
)

type subjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Subject, []int64, error)
	MatchPrefix(ctx context.Context, query string, limit int) ([]repository.RankedMatch, error)
	MatchSubstring(ctx context.Context, query string, limit int) ([]repository.RankedMatch, error)
	Upsert(ctx context.Context, item repository.IndexedSubject) error
	ReplaceAll(ctx context.Context, items []repository.IndexedSubject) error
	SearchKeys(ctx context.Context, id int64) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// SubjectServiceConfig tunes suggestion queries.
type SubjectServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
	Deadline     time.Duration
}

// SubjectService is the subject store: lookups, ranked suggestions and validated writes.
type SubjectService struct {
	repo      subjectRepository
	cache     *SuggestionCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SubjectServiceConfig
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, cache *SuggestionCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SubjectServiceConfig) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewSuggestionCache(nil, metrics, 0, logger)
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultSuggestionLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxSuggestionLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaultSuggestionDeadline
	}
	return &SubjectService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// GetByID returns a subject by identifier.
func (s *SubjectService) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		if errors.Is(err, appErrors.ErrStorageCorrupt) {
			s.logger.Warn("stored subject is corrupt", zap.Int64("subject_id", id), zap.Error(err))
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to load subject")
	}
	return subject, nil
}

// SearchSuggestions returns at most limit subjects matching query, best first.
// It never fails: storage problems are logged and yield an empty or partial result.
func (s *SubjectService) SearchSuggestions(ctx context.Context, query string, limit int) []models.Subject {
	start := time.Now()
	normalized := search.Normalize(query)
	if normalized == "" {
		return []models.Subject{}
	}
	limit = s.effectiveLimit(limit)

	key, cacheable := s.cache.Key(ctx, limit, normalized)
	if cacheable {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.metrics.ObserveSuggestionPhase(PhaseTotal, time.Since(start))
			s.metrics.ObserveSuggestionResults(len(cached), false)
			return cached
		}
	}

	// The shared search outlives any single caller; only the scan deadline bounds it.
	searchCtx := context.WithoutCancel(ctx)
	shared, _ := s.cache.Do(key, func() ([]models.Subject, error) {
		result, complete := s.runSearch(searchCtx, normalized, limit)
		s.metrics.ObserveSuggestionResults(len(result), !complete)
		if complete && cacheable {
			s.cache.Set(searchCtx, key, result)
		}
		return result, nil
	})
	s.metrics.ObserveSuggestionPhase(PhaseTotal, time.Since(start))

	subjects := make([]models.Subject, len(shared))
	for i := range shared {
		subjects[i] = shared[i].Clone()
	}
	return subjects
}

func (s *SubjectService) effectiveLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// runSearch performs the ranked scan under the soft deadline. complete is false when
// the scan was cut short, in which case the result holds whatever was collected.
func (s *SubjectService) runSearch(ctx context.Context, query string, limit int) ([]models.Subject, bool) {
	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	complete := true
	phaseStart := time.Now()
	matches, err := s.repo.MatchPrefix(scanCtx, query, limit)
	s.metrics.ObserveSuggestionPhase(PhasePrefix, time.Since(phaseStart))
	if err != nil {
		complete = false
		s.logSearchFailure(scanCtx, query, PhasePrefix, err, len(matches))
	} else if len(matches) == 0 && search.RuneCount(query) >= search.MinSubstringRunes {
		phaseStart = time.Now()
		matches, err = s.repo.MatchSubstring(scanCtx, query, limit)
		s.metrics.ObserveSuggestionPhase(PhaseSubstring, time.Since(phaseStart))
		if err != nil {
			complete = false
			s.logSearchFailure(scanCtx, query, PhaseSubstring, err, len(matches))
		}
	}
	if len(matches) == 0 {
		return []models.Subject{}, complete
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	// Rows are loaded outside the scan deadline so that a late scan still yields its partial result.
	phaseStart = time.Now()
	subjects, loaded := s.loadRanked(ctx, query, matches)
	s.metrics.ObserveSuggestionPhase(PhaseLoad, time.Since(phaseStart))
	return subjects, complete && loaded
}

func (s *SubjectService) loadRanked(ctx context.Context, query string, matches []repository.RankedMatch) ([]models.Subject, bool) {
	ids := make([]int64, len(matches))
	for i, match := range matches {
		ids[i] = match.SubjectID
	}
	found, corrupt, err := s.repo.FindByIDs(ctx, ids)
	complete := true
	if err != nil {
		complete = false
		s.logger.Warn("loading suggestion rows failed", zap.String("query", query), zap.Int("loaded", len(found)), zap.Error(err))
	}
	for _, id := range corrupt {
		s.logger.Warn("skipping undecodable subject", zap.Int64("subject_id", id), zap.String("query", query))
	}

	byID := make(map[int64]models.Subject, len(found))
	for _, subject := range found {
		byID[subject.ID] = subject
	}
	subjects := make([]models.Subject, 0, len(matches))
	for _, match := range matches {
		if subject, ok := byID[match.SubjectID]; ok {
			subjects = append(subjects, subject)
		}
	}
	return subjects, complete
}

func (s *SubjectService) logSearchFailure(scanCtx context.Context, query, phase string, err error, collected int) {
	if errors.Is(err, context.DeadlineExceeded) || scanCtx.Err() != nil {
		s.logger.Info("suggestion deadline exceeded, returning partial result",
			zap.String("query", query), zap.String("phase", phase), zap.Int("collected", collected))
		return
	}
	s.logger.Warn("suggestion query failed",
		zap.String("query", query), zap.String("phase", phase), zap.Int("collected", collected), zap.Error(err))
}

// Upsert validates subject and replaces any stored subject with the same id.
func (s *SubjectService) Upsert(ctx context.Context, subject models.Subject) error {
	item, err := s.index(subject)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.repo.Upsert(ctx, item)
	s.metrics.ObserveDBQuery("subject_upsert", time.Since(start))
	if err != nil {
		s.logger.Error("subject upsert failed", zap.Int64("subject_id", subject.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to store subject")
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ReplaceAll swaps the stored subjects for subjects. Nothing is written unless every subject is valid.
func (s *SubjectService) ReplaceAll(ctx context.Context, subjects []models.Subject) error {
	items := make([]repository.IndexedSubject, 0, len(subjects))
	seen := make(map[int64]struct{}, len(subjects))
	for _, subject := range subjects {
		item, err := s.index(subject)
		if err != nil {
			return err
		}
		if _, dup := seen[subject.ID]; dup {
			return appErrors.Clone(appErrors.ErrInternalAssertion, fmt.Sprintf("subject %d appears twice", subject.ID))
		}
		seen[subject.ID] = struct{}{}
		items = append(items, item)
	}
	start := time.Now()
	err := s.repo.ReplaceAll(ctx, items)
	s.metrics.ObserveDBQuery("subject_replace_all", time.Since(start))
	if err != nil {
		s.logger.Error("subject resync failed", zap.Int("subjects", len(items)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to replace subjects")
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("subjects replaced", zap.Int("subjects", len(items)))
	return nil
}

// index checks the write invariants and derives the search keys.
func (s *SubjectService) index(subject models.Subject) (repository.IndexedSubject, error) {
	if err := s.validator.Struct(subject); err != nil {
		return repository.IndexedSubject{}, appErrors.Wrap(err, appErrors.ErrInternalAssertion.Code, appErrors.ErrInternalAssertion.Status,
			fmt.Sprintf("subject %d is invalid", subject.ID))
	}
	if !subject.HasDisplayText() {
		return repository.IndexedSubject{}, appErrors.Clone(appErrors.ErrInternalAssertion,
			fmt.Sprintf("subject %d has neither characters nor slug", subject.ID))
	}
	return repository.IndexedSubject{Subject: subject.Clone(), Keys: search.Keys(subject)}, nil
}

// SearchKeys lists the stored search keys of a subject.
func (s *SubjectService) SearchKeys(ctx context.Context, id int64) ([]string, error) {
	keys, err := s.repo.SearchKeys(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to list search keys")
	}
	return keys, nil
}

// Count returns the number of stored subjects.
func (s *SubjectService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to count subjects")
	}
	return count, nil
}
