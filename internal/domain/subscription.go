package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// Subscription подписка пользователя. Создается единственным путем -
// успешным webhook-колбэком провайдера; единственный переход статуса
// active -> canceled по событию отмены от провайдера.
type Subscription struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	UserID          uuid.UUID          `db:"user_id" json:"user_id"`
	PlanID          *uuid.UUID         `db:"plan_id" json:"plan_id,omitempty"`
	PaymentMethodID *uuid.UUID         `db:"payment_method_id" json:"payment_method_id,omitempty"`
	Status          SubscriptionStatus `db:"status" json:"status"`
	StartDate       time.Time          `db:"start_date" json:"start_date"`
	EndDate         *time.Time         `db:"end_date" json:"end_date,omitempty"`

	// Provider + ExternalID однозначно идентифицируют подписку или платеж
	// на стороне провайдера; внешний ID служит ключом дедупликации.
	Provider   string `db:"provider" json:"provider"`
	ExternalID string `db:"external_id" json:"external_id"`

	StripeCustomerID string `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive подписка действует: статус active, дата окончания задана и в будущем
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive &&
		s.EndDate != nil &&
		s.EndDate.After(time.Now())
}
