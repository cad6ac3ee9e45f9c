package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Идентификаторы поддерживаемых платежных провайдеров
const (
	ProviderStripe      = "stripe"
	ProviderNowPayments = "nowpayments"
)

// PaymentMethod настройка платежного провайдера (Stripe, крипта и т.д.)
type PaymentMethod struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	ProviderID string          `db:"provider_id" json:"provider_id"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	Config     json.RawMessage `db:"config" json:"config,omitempty"` // Произвольный конфиг провайдера (публичные ключи и т.д.)
}
