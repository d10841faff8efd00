package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

type propertyRepository interface {
	Get(ctx context.Context, name string) (*models.Property, error)
	List(ctx context.Context) ([]models.Property, error)
	Upsert(ctx context.Context, prop *models.Property) error
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// PropertyService is a durable string map for small scalars such as sync cursors.
type PropertyService struct {
	repo      propertyRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPropertyService constructs a PropertyService.
func NewPropertyService(repo propertyRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PropertyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// Get returns the stored value and whether it exists.
func (s *PropertyService) Get(ctx context.Context, name string) (string, bool, error) {
	if name == "" {
		return "", false, appErrors.Clone(appErrors.ErrValidation, "property name is required")
	}
	start := time.Now()
	prop, err := s.repo.Get(ctx, name)
	s.metrics.ObserveDBQuery("property_get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to read property")
	}
	return prop.Value, true, nil
}

// GetOrDefault returns the stored value, or def when it is absent or unreadable.
func (s *PropertyService) GetOrDefault(ctx context.Context, name, def string) string {
	value, ok, err := s.Get(ctx, name)
	if err != nil {
		s.logger.Warn("property read failed, using default", zap.String("name", name), zap.Error(err))
		return def
	}
	if !ok {
		return def
	}
	return value
}

// Put stores value under name, replacing any previous value.
func (s *PropertyService) Put(ctx context.Context, name, value string) error {
	prop := &models.Property{Name: name, Value: value}
	if err := s.validator.Struct(prop); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid property")
	}
	start := time.Now()
	err := s.repo.Upsert(ctx, prop)
	s.metrics.ObserveDBQuery("property_put", time.Since(start))
	if err != nil {
		s.logger.Error("property write failed", zap.String("name", name), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to store property")
	}
	return nil
}

// Remove deletes name. Removing an absent property succeeds.
func (s *PropertyService) Remove(ctx context.Context, name string) error {
	if name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "property name is required")
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		s.logger.Error("property delete failed", zap.String("name", name), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to remove property")
	}
	return nil
}

// GetInt64 parses the stored value as an integer, falling back to def.
func (s *PropertyService) GetInt64(ctx context.Context, name string, def int64) int64 {
	raw, ok, err := s.Get(ctx, name)
	if err != nil || !ok {
		return def
	}
	value, err := cast.ToInt64E(raw)
	if err != nil {
		s.logger.Warn("property is not an integer", zap.String("name", name), zap.String("value", raw))
		return def
	}
	return value
}

// PutInt64 stores an integer property.
func (s *PropertyService) PutInt64(ctx context.Context, name string, value int64) error {
	return s.Put(ctx, name, cast.ToString(value))
}

// GetBool parses the stored value as a boolean, falling back to def.
func (s *PropertyService) GetBool(ctx context.Context, name string, def bool) bool {
	raw, ok, err := s.Get(ctx, name)
	if err != nil || !ok {
		return def
	}
	value, err := cast.ToBoolE(raw)
	if err != nil {
		s.logger.Warn("property is not a boolean", zap.String("name", name), zap.String("value", raw))
		return def
	}
	return value
}

// PutBool stores a boolean property.
func (s *PropertyService) PutBool(ctx context.Context, name string, value bool) error {
	return s.Put(ctx, name, cast.ToString(value))
}

// List returns all properties ordered by name.
func (s *PropertyService) List(ctx context.Context) ([]models.Property, error) {
	props, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to list properties")
	}
	return props, nil
}

// Reset removes every property and reports how many were dropped.
func (s *PropertyService) Reset(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorageTransient.Code, appErrors.ErrStorageTransient.Status, "failed to reset properties")
	}
	s.logger.Info("properties reset", zap.Int64("removed", removed))
	return removed, nil
}
