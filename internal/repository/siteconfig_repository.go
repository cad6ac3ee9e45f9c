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

// SiteConfigRepository интерфейс репозитория конфигурации сайта.
// Таблица хранит не более одной строки (singleton).
type SiteConfigRepository interface {
	Get(ctx context.Context) (*domain.SiteConfiguration, error)
	Count(ctx context.Context, excludeID int64) (int, error)
	Save(ctx context.Context, cfg *domain.SiteConfiguration) error
}

// postgresSiteConfigRepo реализует SiteConfigRepository для PostgreSQL.
type postgresSiteConfigRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSiteConfigRepository создает новый экземпляр репозитория конфигурации.
func NewPostgresSiteConfigRepository(db *sqlx.DB, log *logger.Logger) SiteConfigRepository {
	return &postgresSiteConfigRepo{db: db, log: log}
}

// Get возвращает единственную запись конфигурации сайта.
func (r *postgresSiteConfigRepo) Get(ctx context.Context) (*domain.SiteConfiguration, error) {
	var cfg domain.SiteConfiguration
	query := `
        SELECT id, site_name, logo_url, contact_email, footer_text, max_images_per_ad, updated_at
        FROM site_configuration
        LIMIT 1`

	err := r.db.GetContext(ctx, &cfg, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get site configuration from DB", "error", err)
		return nil, fmt.Errorf("repository: failed to get site configuration: %w", err)
	}

	return &cfg, nil
}

// Count возвращает число записей конфигурации, не считая excludeID.
// Используется для проверки singleton перед сохранением.
func (r *postgresSiteConfigRepo) Count(ctx context.Context, excludeID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM site_configuration WHERE id <> $1`

	err := r.db.GetContext(ctx, &count, query, excludeID)
	if err != nil {
		r.log.Errorw("Failed to count site configuration rows", "error", err)
		return 0, fmt.Errorf("repository: failed to count site configuration rows: %w", err)
	}

	return count, nil
}

// Save создает или обновляет запись конфигурации.
func (r *postgresSiteConfigRepo) Save(ctx context.Context, cfg *domain.SiteConfiguration) error {
	if cfg.ID == 0 {
		query := `
            INSERT INTO site_configuration (site_name, logo_url, contact_email, footer_text, max_images_per_ad, updated_at)
            VALUES ($1, $2, $3, $4, $5, NOW())
            RETURNING id`
		err := r.db.GetContext(ctx, &cfg.ID, query,
			cfg.SiteName, cfg.LogoURL, cfg.ContactEmail, cfg.FooterText, cfg.MaxImagesPerAd)
		if err != nil {
			r.log.Errorw("Failed to insert site configuration", "error", err)
			return fmt.Errorf("repository: failed to insert site configuration: %w", err)
		}
		return nil
	}

	query := `
        UPDATE site_configuration SET
            site_name = $1,
            logo_url = $2,
            contact_email = $3,
            footer_text = $4,
            max_images_per_ad = $5,
            updated_at = NOW()
        WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		cfg.SiteName, cfg.LogoURL, cfg.ContactEmail, cfg.FooterText, cfg.MaxImagesPerAd, cfg.ID)
	if err != nil {
		r.log.Errorw("Failed to update site configuration", "error", err)
		return fmt.Errorf("repository: failed to update site configuration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
