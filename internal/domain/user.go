package domain

import "github.com/google/uuid"

// User дескриптор вызывающего пользователя. Заполняется из JWT-клеймов;
// nil означает анонимного посетителя. Поля - сигналы для определения роли.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	IsSuperuser      bool      `json:"is_superuser"`
	IsStaff          bool      `json:"is_staff"`
	SubscriptionType string    `json:"subscription_type,omitempty"`
	Groups           []string  `json:"groups,omitempty"`
}
