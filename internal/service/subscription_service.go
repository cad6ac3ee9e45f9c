package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/kafka/producer"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// ActivateParams параметры активации подписки по событию провайдера
type ActivateParams struct {
	UserID           uuid.UUID
	PlanID           uuid.UUID
	Provider         string
	ExternalID       string
	StripeCustomerID string
}

// SubscriptionService управляет жизненным циклом подписок.
type SubscriptionService interface {
	// Activate идемпотентно активирует подписку. Возвращает true, если
	// подписка была создана этим вызовом, и false, если запись с таким
	// (provider, external_id) уже существовала.
	Activate(ctx context.Context, params ActivateParams) (bool, error)
	// CancelByExternalID помечает подписку отмененной по внешнему
	// идентификатору провайдера.
	CancelByExternalID(ctx context.Context, provider, externalID string) error
	// ListForUser возвращает подписки пользователя, новые первыми.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)
}

type subscriptionService struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	methods  repository.PaymentMethodRepository
	producer producer.SubscriptionProducer
	metrics  *metrics.SubscriptionMetrics
	log      *logger.Logger
}

// NewSubscriptionService создает новый сервис подписок.
// producer может быть nil - тогда события в Kafka не публикуются.
func NewSubscriptionService(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	methods repository.PaymentMethodRepository,
	prod producer.SubscriptionProducer,
	m *metrics.SubscriptionMetrics,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		subs:     subs,
		plans:    plans,
		methods:  methods,
		producer: prod,
		metrics:  m,
		log:      log,
	}
}

// Activate создает активную подписку по подтвержденному платежу.
// Идемпотентность обеспечивается уникальным индексом (provider,
// external_id): повторная доставка того же события дает false без
// второй записи, сколько бы реплик ни обрабатывало webhook одновременно.
func (s *subscriptionService) Activate(ctx context.Context, params ActivateParams) (bool, error) {
	exists, err := s.subs.ExistsByExternalID(ctx, params.Provider, params.ExternalID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check subscription existence: %w", err)
	}
	if exists {
		s.log.Debugw("Subscription already exists, skipping activation",
			"provider", params.Provider,
			"externalID", params.ExternalID,
		)
		return false, nil
	}

	plan, err := s.plans.GetByID(ctx, params.PlanID)
	if err != nil {
		return false, fmt.Errorf("service: failed to load plan %s: %w", params.PlanID, err)
	}

	sub := &domain.Subscription{
		ID:               uuid.New(),
		UserID:           params.UserID,
		PlanID:           &plan.ID,
		Status:           domain.SubscriptionStatusActive,
		StartDate:        time.Now().UTC(),
		Provider:         params.Provider,
		ExternalID:       params.ExternalID,
		StripeCustomerID: params.StripeCustomerID,
	}

	// Срок действия фиксируется при активации, чтобы подписка была
	// проверяемо активной без обращения к провайдеру
	endDate := sub.StartDate.AddDate(0, plan.DurationMonths, 0)
	sub.EndDate = &endDate

	// Способ оплаты привязывается, если он заведен в справочнике;
	// его отсутствие активацию не блокирует
	if method, err := s.methods.GetByProviderID(ctx, params.Provider); err == nil {
		sub.PaymentMethodID = &method.ID
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warnw("Failed to resolve payment method", "provider", params.Provider, "error", err)
	}

	inserted, err := s.subs.CreateIfAbsent(ctx, sub)
	if err != nil {
		return false, fmt.Errorf("service: failed to create subscription: %w", err)
	}
	if !inserted {
		// Конкурентная доставка того же события успела первой
		s.log.Debugw("Subscription insert lost the race, treating as duplicate",
			"provider", params.Provider,
			"externalID", params.ExternalID,
		)
		return false, nil
	}

	s.metrics.IncSubscriptionCreated(params.Provider)
	s.log.Infow("Subscription activated",
		"subscriptionID", sub.ID,
		"userID", sub.UserID,
		"planID", plan.ID,
		"provider", params.Provider,
	)

	if s.producer != nil {
		if err := s.producer.PublishSubscriptionCreated(ctx, sub); err != nil {
			s.log.Errorw("Failed to publish subscription created event", "error", err, "subscriptionID", sub.ID)
		}
	}

	return true, nil
}

// CancelByExternalID помечает подписку отмененной. Отсутствующая
// запись возвращается как repository.ErrNotFound - решает вызывающий.
func (s *subscriptionService) CancelByExternalID(ctx context.Context, provider, externalID string) error {
	sub, err := s.subs.GetByExternalID(ctx, provider, externalID)
	if err != nil {
		return err
	}

	if err := s.subs.UpdateStatusByExternalID(ctx, provider, externalID, domain.SubscriptionStatusCanceled); err != nil {
		return fmt.Errorf("service: failed to cancel subscription: %w", err)
	}

	s.metrics.IncSubscriptionCanceled(provider)
	s.log.Infow("Subscription canceled",
		"subscriptionID", sub.ID,
		"provider", provider,
		"externalID", externalID,
	)

	if s.producer != nil {
		sub.Status = domain.SubscriptionStatusCanceled
		if err := s.producer.PublishSubscriptionCanceled(ctx, sub); err != nil {
			s.log.Errorw("Failed to publish subscription canceled event", "error", err, "subscriptionID", sub.ID)
		}
	}

	return nil
}

// ListForUser возвращает подписки пользователя.
func (s *subscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	subs, err := s.subs.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list subscriptions: %w", err)
	}
	return subs, nil
}
