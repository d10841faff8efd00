package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smouldering-durtles/wk-search/internal/provider"
	"github.com/smouldering-durtles/wk-search/internal/repository"
	"github.com/smouldering-durtles/wk-search/internal/service"
	"github.com/smouldering-durtles/wk-search/pkg/cache"
	"github.com/smouldering-durtles/wk-search/pkg/config"
	"github.com/smouldering-durtles/wk-search/pkg/database"
	"github.com/smouldering-durtles/wk-search/pkg/logger"
)

// app holds the wired stores and services shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	handle *database.Handle
	redis  *redis.Client

	metrics    *service.MetricsService
	subjects   *service.SubjectService
	properties *service.PropertyService
	sync       *service.SyncService
	provider   *provider.SuggestionProvider
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logr, handle: database.NewHandle(cfg.Database)}
	// Open once up front so a bad path fails the command before any work starts.
	// Repositories still resolve the connection through the handle on every call.
	if _, err := a.handle.DB(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.metrics = service.NewMetricsService()
	validate := validator.New()

	suggestionCache := service.NewSuggestionCache(a.cacheRepository(ctx), a.metrics, cfg.Cache.TTL, logr)

	subjectRepo := repository.NewSubjectRepository(a.handle)
	propertyRepo := repository.NewPropertyRepository(a.handle)

	a.subjects = service.NewSubjectService(subjectRepo, suggestionCache, a.metrics, validate, logr, service.SubjectServiceConfig{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		Deadline:     cfg.Search.Deadline,
	})
	a.properties = service.NewPropertyService(propertyRepo, a.metrics, validate, logr)
	a.sync = service.NewSyncService(a.subjects, a.properties, validate, logr, service.SyncServiceConfig{
		Workers:     cfg.Sync.Workers,
		Retries:     cfg.Sync.Retries,
		RetryDelay:  cfg.Sync.RetryDelay,
		StatusLimit: cfg.Sync.StatusLimit,
		StatusTTL:   cfg.Sync.StatusTTL,
	})
	a.provider = provider.NewSuggestionProvider(a.subjects, cfg.Search.DefaultLimit, logr)
	return a, nil
}

// cacheRepository picks the suggestion cache backend. An unreachable Redis
// degrades to the in-process cache rather than failing startup.
func (a *app) cacheRepository(ctx context.Context) service.CacheRepository {
	switch a.cfg.Cache.Driver {
	case config.CacheDriverNone:
		return nil
	case config.CacheDriverRedis:
		client, err := cache.NewRedis(ctx, a.cfg.Redis)
		if err == nil {
			a.redis = client
			return repository.NewCacheRepository(client, a.logger)
		}
		a.logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
	}
	return repository.NewMemoryCacheRepository(a.cfg.Cache.Size, a.cfg.Cache.TTL)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.handle.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
