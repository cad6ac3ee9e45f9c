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

// PaymentMethodRepository интерфейс репозитория платежных методов
type PaymentMethodRepository interface {
	GetByProviderID(ctx context.Context, providerID string) (*domain.PaymentMethod, error)
	ListActive(ctx context.Context) ([]domain.PaymentMethod, error)
}

// postgresPaymentMethodRepo реализует PaymentMethodRepository для PostgreSQL.
type postgresPaymentMethodRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPaymentMethodRepository создает новый экземпляр репозитория платежных методов.
func NewPostgresPaymentMethodRepository(db *sqlx.DB, log *logger.Logger) PaymentMethodRepository {
	return &postgresPaymentMethodRepo{db: db, log: log}
}

// GetByProviderID возвращает платежный метод по идентификатору провайдера.
func (r *postgresPaymentMethodRepo) GetByProviderID(ctx context.Context, providerID string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	query := `
        SELECT id, name, provider_id, is_active, config
        FROM payment_methods
        WHERE provider_id = $1`

	err := r.db.GetContext(ctx, &method, query, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugw("Payment method not found", "providerID", providerID)
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get payment method from DB", "error", err, "providerID", providerID)
		return nil, fmt.Errorf("repository: failed to get payment method: %w", err)
	}

	return &method, nil
}

// ListActive возвращает активные платежные методы.
func (r *postgresPaymentMethodRepo) ListActive(ctx context.Context) ([]domain.PaymentMethod, error) {
	var methods []domain.PaymentMethod
	query := `
        SELECT id, name, provider_id, is_active, config
        FROM payment_methods
        WHERE is_active = TRUE
        ORDER BY name ASC`

	err := r.db.SelectContext(ctx, &methods, query)
	if err != nil {
		r.log.Errorw("Failed to list active payment methods from DB", "error", err)
		return nil, fmt.Errorf("repository: failed to list active payment methods: %w", err)
	}

	return methods, nil
}
