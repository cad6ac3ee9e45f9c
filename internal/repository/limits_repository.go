package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
	"github.com/jmoiron/sqlx"
)

// RoleLimitRepository интерфейс репозитория лимитов по ролям.
// Поиск по имени роли регистронезависимый.
type RoleLimitRepository interface {
	GetImageLimit(ctx context.Context, roleName string) (*domain.RoleImageLimit, error)
	GetTextLimit(ctx context.Context, roleName string) (*domain.RoleTextLimit, error)
	UpsertImageLimit(ctx context.Context, limit *domain.RoleImageLimit) error
	UpsertTextLimit(ctx context.Context, limit *domain.RoleTextLimit) error
}

// postgresRoleLimitRepo реализует RoleLimitRepository для PostgreSQL.
type postgresRoleLimitRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresRoleLimitRepository создает новый экземпляр репозитория лимитов.
func NewPostgresRoleLimitRepository(db *sqlx.DB, log *logger.Logger) RoleLimitRepository {
	return &postgresRoleLimitRepo{db: db, log: log}
}

// GetImageLimit возвращает лимит изображений для роли.
func (r *postgresRoleLimitRepo) GetImageLimit(ctx context.Context, roleName string) (*domain.RoleImageLimit, error) {
	var limit domain.RoleImageLimit
	query := `
        SELECT role_name, max_images
        FROM role_image_limits
        WHERE LOWER(role_name) = LOWER($1)`

	err := r.db.GetContext(ctx, &limit, query, roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get role image limit from DB", "error", err, "role", roleName)
		return nil, fmt.Errorf("repository: failed to get role image limit: %w", err)
	}

	return &limit, nil
}

// GetTextLimit возвращает текстовые лимиты для роли.
func (r *postgresRoleLimitRepo) GetTextLimit(ctx context.Context, roleName string) (*domain.RoleTextLimit, error) {
	var limit domain.RoleTextLimit
	query := `
        SELECT role_name, title_limit, body_limit
        FROM role_text_limits
        WHERE LOWER(role_name) = LOWER($1)`

	err := r.db.GetContext(ctx, &limit, query, roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get role text limit from DB", "error", err, "role", roleName)
		return nil, fmt.Errorf("repository: failed to get role text limit: %w", err)
	}

	return &limit, nil
}

// UpsertImageLimit создает или обновляет лимит изображений роли.
// Значение должно укладываться в диапазон 1..60.
func (r *postgresRoleLimitRepo) UpsertImageLimit(ctx context.Context, limit *domain.RoleImageLimit) error {
	if limit.MaxImages < 1 || limit.MaxImages > 60 {
		return ErrInvalidData
	}

	query := `
        INSERT INTO role_image_limits (role_name, max_images)
        VALUES (:role_name, :max_images)
        ON CONFLICT (role_name) DO UPDATE SET max_images = EXCLUDED.max_images`

	_, err := r.db.NamedExecContext(ctx, query, limit)
	if err != nil {
		r.log.Errorw("Failed to upsert role image limit in DB", "error", err, "role", limit.RoleName)
		return fmt.Errorf("repository: failed to upsert role image limit: %w", err)
	}

	return nil
}

// UpsertTextLimit создает или обновляет текстовые лимиты роли.
// Заголовок в диапазоне 1..1000, текст в диапазоне 10..20000.
func (r *postgresRoleLimitRepo) UpsertTextLimit(ctx context.Context, limit *domain.RoleTextLimit) error {
	if limit.TitleLimit < 1 || limit.TitleLimit > 1000 {
		return ErrInvalidData
	}
	if limit.BodyLimit < 10 || limit.BodyLimit > 20000 {
		return ErrInvalidData
	}

	query := `
        INSERT INTO role_text_limits (role_name, title_limit, body_limit)
        VALUES (:role_name, :title_limit, :body_limit)
        ON CONFLICT (role_name) DO UPDATE SET
            title_limit = EXCLUDED.title_limit,
            body_limit = EXCLUDED.body_limit`

	_, err := r.db.NamedExecContext(ctx, query, limit)
	if err != nil {
		r.log.Errorw("Failed to upsert role text limit in DB", "error", err, "role", limit.RoleName)
		return fmt.Errorf("repository: failed to upsert role text limit: %w", err)
	}

	return nil
}
