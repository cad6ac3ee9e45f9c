package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/internal/service"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// Webhook-события Stripe не больше пары килобайт, 64 КиБ с запасом
const maxWebhookBodyBytes = 64 << 10

// StripeProvider платежный провайдер поверх Stripe Checkout.
type StripeProvider struct {
	api           *stripeclient.API
	webhookSecret string
	baseURL       string
	subs          service.SubscriptionService
	log           *logger.Logger
}

// NewStripeProvider создает провайдера Stripe. Пустой секретный ключ -
// провайдер не сконфигурирован.
func NewStripeProvider(secretKey, webhookSecret, baseURL string, subs service.SubscriptionService, log *logger.Logger) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("payment: stripe: %w", domain.ErrProviderNotConfigured)
	}

	api := &stripeclient.API{}
	api.Init(secretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		subs:          subs,
		log:           log,
	}, nil
}

// CreateCheckoutSession создает Checkout-сессию Stripe в режиме подписки
// и возвращает URL страницы оплаты. Идентификаторы пользователя и плана
// уходят в метаданные сессии и возвращаются в webhook-событии.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, plan *domain.Plan, user *domain.User) (string, error) {
	if plan.StripePriceID == "" {
		return "", fmt.Errorf("payment: stripe: plan %s has no price id", plan.ID)
	}
	if user == nil {
		return "", fmt.Errorf("payment: stripe: checkout requires an authenticated user")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.baseURL + "/api/subscriptions/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.baseURL + "/api/subscriptions/pricing"),
	}
	params.Context = ctx
	if user.Email != "" {
		params.CustomerEmail = stripe.String(user.Email)
	}
	params.AddMetadata("user_id", user.ID.String())
	params.AddMetadata("plan_id", plan.ID.String())
	params.AddMetadata("provider", domain.ProviderStripe)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		p.log.Errorw("Failed to create Stripe checkout session", "error", err, "planID", plan.ID, "userID", user.ID)
		return "", fmt.Errorf("payment: stripe: failed to create checkout session: %w", err)
	}

	p.log.Infow("Stripe checkout session created", "sessionID", sess.ID, "planID", plan.ID, "userID", user.ID)
	return sess.URL, nil
}

// HandleWebhook проверяет подпись события и обрабатывает его.
// Непроверяемая подпись отклоняет событие без побочных эффектов.
func (p *StripeProvider) HandleWebhook(ctx context.Context, r *http.Request) bool {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		p.log.Errorw("Failed to read Stripe webhook body", "error", err)
		return false
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), p.webhookSecret)
	if err != nil {
		p.log.Warnw("Stripe webhook signature verification failed", "error", err)
		return false
	}

	switch event.Type {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.deleted":
		return p.handleSubscriptionDeleted(ctx, event)
	default:
		p.log.Debugw("Ignoring Stripe webhook event", "type", event.Type, "eventID", event.ID)
		return true
	}
}

// handleCheckoutCompleted активирует подписку по завершенной сессии.
// Событие с испорченными метаданными принимается без активации: Stripe
// будет повторять доставку, а содержимое от этого не исправится.
func (p *StripeProvider) handleCheckoutCompleted(ctx context.Context, event stripe.Event) bool {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		p.log.Errorw("Failed to parse checkout.session.completed payload", "error", err, "eventID", event.ID)
		return false
	}

	userID, err := uuid.Parse(sess.Metadata["user_id"])
	if err != nil {
		p.log.Warnw("Checkout session has invalid user_id metadata", "sessionID", sess.ID, "eventID", event.ID)
		return true
	}
	planID, err := uuid.Parse(sess.Metadata["plan_id"])
	if err != nil {
		p.log.Warnw("Checkout session has invalid plan_id metadata", "sessionID", sess.ID, "eventID", event.ID)
		return true
	}

	// Идентификатор подписки Stripe предпочтительнее идентификатора
	// сессии: по нему же приходит customer.subscription.deleted
	externalID := sess.ID
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		externalID = sess.Subscription.ID
	}

	params := service.ActivateParams{
		UserID:     userID,
		PlanID:     planID,
		Provider:   domain.ProviderStripe,
		ExternalID: externalID,
	}
	if sess.Customer != nil {
		params.StripeCustomerID = sess.Customer.ID
	}

	created, err := p.subs.Activate(ctx, params)
	if err != nil {
		p.log.Errorw("Failed to activate subscription from Stripe webhook", "error", err, "eventID", event.ID)
		return false
	}
	if !created {
		p.log.Debugw("Duplicate Stripe webhook delivery ignored", "externalID", externalID, "eventID", event.ID)
	}
	return true
}

// handleSubscriptionDeleted отмечает подписку отмененной. Неизвестный
// внешний идентификатор не ошибка: подписка могла быть создана до
// внедрения этого сервиса.
func (p *StripeProvider) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) bool {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		p.log.Errorw("Failed to parse customer.subscription.deleted payload", "error", err, "eventID", event.ID)
		return false
	}

	if err := p.subs.CancelByExternalID(ctx, domain.ProviderStripe, sub.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.log.Warnw("Stripe subscription not found locally, nothing to cancel", "externalID", sub.ID)
			return true
		}
		p.log.Errorw("Failed to cancel subscription from Stripe webhook", "error", err, "externalID", sub.ID)
		return false
	}
	return true
}
