package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SubscriptionRepository интерфейс репозитория подписок
type SubscriptionRepository interface {
	// CreateIfAbsent вставляет подписку, если для пары (provider, external_id)
	// еще нет записи. Возвращает true, если строка была вставлена.
	CreateIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*domain.Subscription, error)
	ExistsByExternalID(ctx context.Context, provider, externalID string) (bool, error)
	UpdateStatusByExternalID(ctx context.Context, provider, externalID string, status domain.SubscriptionStatus) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)
}

// postgresSubscriptionRepo реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория подписок.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{db: db, log: log}
}

const subscriptionColumns = `id, user_id, plan_id, payment_method_id, status, start_date, end_date,
               provider, external_id, stripe_customer_id, created_at, updated_at`

// CreateIfAbsent сохраняет новую подписку. Гонка двух одновременных доставок
// webhook с одинаковым external_id закрывается уникальным индексом
// (provider, external_id): второй INSERT попадает в ON CONFLICT DO NOTHING.
func (r *postgresSubscriptionRepo) CreateIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
        INSERT INTO subscriptions (
            id, user_id, plan_id, payment_method_id, status, start_date, end_date,
            provider, external_id, stripe_customer_id, created_at, updated_at
        ) VALUES (
            :id, :user_id, :plan_id, :payment_method_id, :status, :start_date, :end_date,
            :provider, :external_id, :stripe_customer_id, :created_at, :updated_at
        )
        ON CONFLICT (provider, external_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		r.log.Errorw("Failed to create subscription in DB", "error", err, "externalID", sub.ExternalID, "userID", sub.UserID)
		return false, fmt.Errorf("repository: failed to create subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("repository: failed to get affected rows: %w", err)
	}
	if rows == 0 {
		r.log.Debugw("Subscription already exists, insert skipped", "provider", sub.Provider, "externalID", sub.ExternalID)
		return false, nil
	}

	r.log.Debugw("Successfully created subscription in DB", "subscriptionID", sub.ID, "userID", sub.UserID)
	return true, nil
}

// GetByExternalID возвращает подписку по внешнему идентификатору провайдера.
func (r *postgresSubscriptionRepo) GetByExternalID(ctx context.Context, provider, externalID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT ` + subscriptionColumns + `
        FROM subscriptions
        WHERE provider = $1 AND external_id = $2`

	err := r.db.GetContext(ctx, &sub, query, provider, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Subscription not found by external ID", "provider", provider, "externalID", externalID)
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get subscription by external ID from DB", "error", err, "externalID", externalID)
		return nil, fmt.Errorf("repository: failed to get subscription by external ID: %w", err)
	}

	return &sub, nil
}

// ExistsByExternalID проверяет существование подписки с данным внешним ID.
func (r *postgresSubscriptionRepo) ExistsByExternalID(ctx context.Context, provider, externalID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE provider = $1 AND external_id = $2)`

	err := r.db.GetContext(ctx, &exists, query, provider, externalID)
	if err != nil {
		r.log.Errorw("Failed to check subscription existence", "error", err, "externalID", externalID)
		return false, fmt.Errorf("repository: failed to check subscription existence: %w", err)
	}

	return exists, nil
}

// UpdateStatusByExternalID обновляет статус подписки по внешнему ID.
func (r *postgresSubscriptionRepo) UpdateStatusByExternalID(ctx context.Context, provider, externalID string, status domain.SubscriptionStatus) error {
	query := `
        UPDATE subscriptions SET
            status = $1,
            updated_at = NOW()
        WHERE provider = $2 AND external_id = $3`

	result, err := r.db.ExecContext(ctx, query, status, provider, externalID)
	if err != nil {
		r.log.Errorw("Failed to update subscription status in DB", "error", err, "externalID", externalID)
		return fmt.Errorf("repository: failed to update subscription status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get affected rows: %w", err)
	}
	if rows == 0 {
		r.log.Warnw("No subscription updated by external ID", "provider", provider, "externalID", externalID)
		return ErrNotFound
	}

	r.log.Debugw("Subscription status updated", "provider", provider, "externalID", externalID, "status", status)
	return nil
}

// ListByUserID возвращает все подписки пользователя, новые первыми.
func (r *postgresSubscriptionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	query := `
        SELECT ` + subscriptionColumns + `
        FROM subscriptions
        WHERE user_id = $1
        ORDER BY start_date DESC`

	err := r.db.SelectContext(ctx, &subs, query, userID)
	if err != nil {
		r.log.Errorw("Failed to list subscriptions by user ID from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to list subscriptions by user ID: %w", err)
	}

	return subs, nil
}
