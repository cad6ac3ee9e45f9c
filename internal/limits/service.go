package limits

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/internal/roles"
	"github.com/Avdeenko/Classifieds-backend/internal/siteconfig"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// Короткий TTL, чтобы правки лимитов в админке быстро вступали в силу
const effectiveLimitsTTL = 30 * time.Second

// Service вычисляет эффективные лимиты контента для вызывающего.
type Service struct {
	limitsRepo repository.RoleLimitRepository
	siteConfig *siteconfig.Service
	cache      cache.Cache
	log        *logger.Logger
}

// NewService создает новый сервис лимитов.
func NewService(limitsRepo repository.RoleLimitRepository, siteConfig *siteconfig.Service, c cache.Cache, log *logger.Logger) *Service {
	return &Service{
		limitsRepo: limitsRepo,
		siteConfig: siteConfig,
		cache:      c,
		log:        log,
	}
}

// ImageLimit возвращает максимум изображений в объявлении для пользователя.
// Аноним получает жесткую константу без обращения к таблице ролей.
// Цепочка отката: роль -> RegisteredFree -> конфигурация сайта -> константа.
// Промахи и ошибки хранилища наружу не поднимаются.
func (s *Service) ImageLimit(ctx context.Context, user *domain.User) int {
	if user == nil {
		return domain.DefaultImageLimit
	}

	role := roles.Resolve(user)

	if limit, err := s.limitsRepo.GetImageLimit(ctx, role); err == nil {
		return limit.MaxImages
	}

	if limit, err := s.limitsRepo.GetImageLimit(ctx, roles.RoleRegisteredFree); err == nil {
		return limit.MaxImages
	}

	if cfg := s.siteConfig.Get(ctx); cfg != nil && cfg.MaxImagesPerAd > 0 {
		return cfg.MaxImagesPerAd
	}

	return domain.DefaultImageLimit
}

// TextLimits возвращает лимиты длины заголовка и текста для пользователя.
// Цепочка отката: роль -> RegisteredFree -> константы.
func (s *Service) TextLimits(ctx context.Context, user *domain.User) domain.TextLimits {
	role := roles.Resolve(user)

	if limit, err := s.limitsRepo.GetTextLimit(ctx, role); err == nil {
		return domain.TextLimits{Title: limit.TitleLimit, Body: limit.BodyLimit}
	}

	if limit, err := s.limitsRepo.GetTextLimit(ctx, roles.RoleRegisteredFree); err == nil {
		return domain.TextLimits{Title: limit.TitleLimit, Body: limit.BodyLimit}
	}

	return domain.TextLimits{Title: domain.DefaultTitleLimit, Body: domain.DefaultBodyLimit}
}

// EffectiveLimits возвращает совокупные лимиты (изображения + текст),
// кэшируя результат на 30 секунд для каждого вызывающего.
func (s *Service) EffectiveLimits(ctx context.Context, user *domain.User) domain.EffectiveLimits {
	key := cacheKeyFor(user)

	if data, ok, _ := s.cache.Get(ctx, key); ok {
		var cached domain.EffectiveLimits
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}

	result := domain.EffectiveLimits{
		ImageMax:   s.ImageLimit(ctx, user),
		TextLimits: s.TextLimits(ctx, user),
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, data, effectiveLimitsTTL); err != nil {
			s.log.Debugw("Failed to cache effective limits", "error", err, "key", key)
		}
	}

	return result
}

// cacheKeyFor строит ключ кэша для вызывающего. Флаги superuser/staff
// входят в ключ, чтобы разные типы пользователей с совпадающим числовым
// ID не перемешивались.
func cacheKeyFor(user *domain.User) string {
	if user == nil {
		return "core:limits:anon"
	}
	return fmt.Sprintf("core:limits:%s:%s:%s",
		user.ID,
		boolDigit(user.IsSuperuser),
		boolDigit(user.IsStaff),
	)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
