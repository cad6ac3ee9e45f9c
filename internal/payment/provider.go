package payment

import (
	"context"
	"net/http"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
)

// Provider единый контракт платежного провайдера.
type Provider interface {
	// CreateCheckoutSession создает сессию оплаты плана и возвращает URL,
	// на который нужно отправить пользователя. URL может быть как внешним
	// (страница провайдера), так и внутренним (страница выбора валюты).
	CreateCheckoutSession(ctx context.Context, plan *domain.Plan, user *domain.User) (string, error)
	// HandleWebhook обрабатывает уведомление провайдера. true означает
	// "событие принято" (в том числе намеренно проигнорированное),
	// false - "отклонено": плохая подпись или сбой обработки.
	HandleWebhook(ctx context.Context, r *http.Request) bool
}
