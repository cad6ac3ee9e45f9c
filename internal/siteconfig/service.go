package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

const (
	cacheKey = "site_config_singleton"
	cacheTTL = 5 * time.Minute
)

// Service отдает и сохраняет singleton-конфигурацию сайта.
type Service struct {
	repo  repository.SiteConfigRepository
	cache cache.Cache
	log   *logger.Logger
}

// NewService создает новый сервис конфигурации сайта.
func NewService(repo repository.SiteConfigRepository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// Get возвращает конфигурацию сайта (кэш на 5 минут) или nil, если
// конфигурация еще не создана. Ошибки хранилища не поднимаются наружу.
func (s *Service) Get(ctx context.Context) *domain.SiteConfiguration {
	if data, ok, _ := s.cache.Get(ctx, cacheKey); ok {
		var cfg domain.SiteConfiguration
		if err := json.Unmarshal(data, &cfg); err == nil {
			return &cfg
		}
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Failed to load site configuration", "error", err)
		}
		return nil
	}

	if data, err := json.Marshal(cfg); err == nil {
		_ = s.cache.Set(ctx, cacheKey, data, cacheTTL)
	}
	return cfg
}

// Save сохраняет конфигурацию. Перед записью проверяется, что других
// записей нет: вторая конфигурация отклоняется. Кэш сбрасывается при
// каждой записи.
func (s *Service) Save(ctx context.Context, cfg *domain.SiteConfiguration) error {
	count, err := s.repo.Count(ctx, cfg.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrSingletonViolation
	}

	if err := s.repo.Save(ctx, cfg); err != nil {
		return err
	}

	// Инвалидация кэша при каждой записи
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.log.Warnw("Failed to invalidate site configuration cache", "error", err)
	}

	s.log.Infow("Site configuration saved", "id", cfg.ID)
	return nil
}
