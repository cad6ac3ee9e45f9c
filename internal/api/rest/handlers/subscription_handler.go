package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/middleware"
	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/payment"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/internal/service"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// SubscriptionHandler обработчик тарифов и оформления подписки
type SubscriptionHandler struct {
	plans     repository.PlanRepository
	methods   repository.PaymentMethodRepository
	subs      service.SubscriptionService
	providers *payment.Factory
	metrics   *metrics.SubscriptionMetrics
	log       *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(
	plans repository.PlanRepository,
	methods repository.PaymentMethodRepository,
	subs service.SubscriptionService,
	providers *payment.Factory,
	m *metrics.SubscriptionMetrics,
	log *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		plans:     plans,
		methods:   methods,
		subs:      subs,
		providers: providers,
		metrics:   m,
		log:       log,
	}
}

// planView план с вычисленной длительностью для витрины
type planView struct {
	domain.Plan
	DurationDisplay string `json:"duration_display"`
}

// GetPricing возвращает активные планы и активные способы оплаты.
func (h *SubscriptionHandler) GetPricing(c *gin.Context) {
	plans, err := h.plans.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list plans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pricing"})
		return
	}

	methods, err := h.methods.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list payment methods: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pricing"})
		return
	}

	views := make([]planView, 0, len(plans))
	for i := range plans {
		views = append(views, planView{
			Plan:            plans[i],
			DurationDisplay: plans[i].DurationDisplay(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":           views,
		"payment_methods": methods,
	})
}

// CreateCheckout создает сессию оплаты выбранного плана и возвращает
// URL перенаправления. Провайдер берется из query-параметра; без него
// срабатывает умолчание: единственный активный способ оплаты.
func (h *SubscriptionHandler) CreateCheckout(c *gin.Context) {
	user := middleware.CurrentUser(c)

	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}

	plan, err := h.plans.GetByID(c.Request.Context(), planID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	providerID := c.Query("provider")
	if providerID == "" {
		providerID, err = h.defaultProviderID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	provider, err := h.providers.Get(providerID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			h.log.Warn("Checkout with unknown provider %q", providerID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment provider is not available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start checkout"})
		return
	}

	redirectURL, err := provider.CreateCheckoutSession(c.Request.Context(), plan, user)
	if err != nil {
		h.log.Error("Failed to create checkout session: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start checkout"})
		return
	}

	h.metrics.IncCheckoutSession(providerID)
	c.JSON(http.StatusOK, gin.H{"redirect_url": redirectURL})
}

// defaultProviderID выбирает провайдера, когда клиент его не указал.
// Однозначный выбор возможен только при единственном активном способе
// оплаты.
func (h *SubscriptionHandler) defaultProviderID(c *gin.Context) (string, error) {
	methods, err := h.methods.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list payment methods: %v", err)
		return "", errors.New("Payment provider is not available")
	}
	if len(methods) != 1 {
		return "", errors.New("Payment provider must be specified")
	}
	return methods[0].ProviderID, nil
}

// CheckoutSuccess подтверждает возврат со страницы оплаты. Активация
// происходит по webhook, здесь только эхо идентификатора сессии.
func (h *SubscriptionHandler) CheckoutSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"session_id": c.Query("session_id"),
	})
}

// ListMySubscriptions возвращает подписки вызывающего, новые первыми.
func (h *SubscriptionHandler) ListMySubscriptions(c *gin.Context) {
	user := middleware.CurrentUser(c)

	subs, err := h.subs.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("Failed to list subscriptions for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}
