package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PlanRepository интерфейс репозитория тарифных планов
type PlanRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Plan, error)
	ListActive(ctx context.Context) ([]domain.Plan, error)
	Create(ctx context.Context, plan *domain.Plan) error
	Update(ctx context.Context, plan *domain.Plan) error
}

// postgresPlanRepo реализует PlanRepository для PostgreSQL.
type postgresPlanRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPlanRepository создает новый экземпляр репозитория планов.
func NewPostgresPlanRepository(db *sqlx.DB, log *logger.Logger) PlanRepository {
	return &postgresPlanRepo{db: db, log: log}
}

const planColumns = `id, name, slug, price, currency, duration_months, stripe_price_id,
               description, is_active, created_at, updated_at`

// GetByID возвращает план по его ID.
func (r *postgresPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	var plan domain.Plan
	query := `
        SELECT ` + planColumns + `
        FROM plans
        WHERE id = $1`

	err := r.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Plan not found by ID", "planID", id)
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get plan by ID from DB", "error", err, "planID", id)
		return nil, fmt.Errorf("repository: failed to get plan by ID: %w", err)
	}

	return &plan, nil
}

// GetBySlug возвращает план по уникальному slug.
func (r *postgresPlanRepo) GetBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	var plan domain.Plan
	query := `
        SELECT ` + planColumns + `
        FROM plans
        WHERE slug = $1`

	err := r.db.GetContext(ctx, &plan, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get plan by slug from DB", "error", err, "slug", slug)
		return nil, fmt.Errorf("repository: failed to get plan by slug: %w", err)
	}

	return &plan, nil
}

// ListActive возвращает активные планы, отсортированные по цене.
func (r *postgresPlanRepo) ListActive(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	query := `
        SELECT ` + planColumns + `
        FROM plans
        WHERE is_active = TRUE
        ORDER BY price ASC`

	err := r.db.SelectContext(ctx, &plans, query)
	if err != nil {
		r.log.Errorw("Failed to list active plans from DB", "error", err)
		return nil, fmt.Errorf("repository: failed to list active plans: %w", err)
	}

	return plans, nil
}

// Create сохраняет новый план в базе данных.
func (r *postgresPlanRepo) Create(ctx context.Context, plan *domain.Plan) error {
	query := `
        INSERT INTO plans (
            id, name, slug, price, currency, duration_months, stripe_price_id,
            description, is_active, created_at, updated_at
        ) VALUES (
            :id, :name, :slug, :price, :currency, :duration_months, :stripe_price_id,
            :description, :is_active, NOW(), NOW()
        )`

	_, err := r.db.NamedExecContext(ctx, query, plan)
	if err != nil {
		r.log.Errorw("Failed to create plan in DB", "error", err, "slug", plan.Slug)
		return fmt.Errorf("repository: failed to create plan: %w", err)
	}

	r.log.Debugw("Successfully created plan in DB", "planID", plan.ID, "slug", plan.Slug)
	return nil
}

// Update обновляет существующий план.
func (r *postgresPlanRepo) Update(ctx context.Context, plan *domain.Plan) error {
	query := `
        UPDATE plans SET
            name = :name,
            slug = :slug,
            price = :price,
            currency = :currency,
            duration_months = :duration_months,
            stripe_price_id = :stripe_price_id,
            description = :description,
            is_active = :is_active,
            updated_at = NOW()
        WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, plan)
	if err != nil {
		r.log.Errorw("Failed to update plan in DB", "error", err, "planID", plan.ID)
		return fmt.Errorf("repository: failed to update plan: %w", err)
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
