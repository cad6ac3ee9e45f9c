package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Plan тарифный план подписки (например, месячный или годовой).
type Plan struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Slug           string    `db:"slug" json:"slug"`
	Price          string    `db:"price" json:"price"` // Десятичная сумма, храним строкой во избежание float-ошибок
	Currency       string    `db:"currency" json:"currency"`
	DurationMonths int       `db:"duration_months" json:"duration_months"`
	StripePriceID  string    `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	Description    string    `db:"description" json:"description,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DurationDisplay возвращает человекочитаемую длительность плана
func (p *Plan) DurationDisplay() string {
	switch p.DurationMonths {
	case 1:
		return "Monthly"
	case 12:
		return "Annual"
	default:
		return fmt.Sprintf("%d Months", p.DurationMonths)
	}
}
