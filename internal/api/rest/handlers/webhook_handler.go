package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/payment"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// WebhookHandler обработчик для вебхуков платежных провайдеров
type WebhookHandler struct {
	providers *payment.Factory
	metrics   *metrics.SubscriptionMetrics
	log       *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(providers *payment.Factory, m *metrics.SubscriptionMetrics, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{providers: providers, metrics: m, log: log}
}

// HandleStripeWebhook обрабатывает вебхуки от Stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	h.dispatch(c, domain.ProviderStripe)
}

// HandleNowPaymentsWebhook обрабатывает IPN-уведомления NOWPayments
func (h *WebhookHandler) HandleNowPaymentsWebhook(c *gin.Context) {
	h.dispatch(c, domain.ProviderNowPayments)
}

// dispatch передает запрос провайдеру. Булев результат провайдера
// транслируется в 200/400: провайдеры повторяют доставку при 4xx/5xx,
// поэтому 400 означает "пришли еще раз или почини подпись".
func (h *WebhookHandler) dispatch(c *gin.Context, providerID string) {
	provider, err := h.providers.Get(providerID)
	if err != nil {
		h.log.Warn("Webhook for unconfigured provider %q", providerID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider is not configured"})
		return
	}

	if provider.HandleWebhook(c.Request.Context(), c.Request) {
		h.metrics.IncWebhookProcessed(providerID, "ok")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.metrics.IncWebhookProcessed(providerID, "rejected")
	c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook rejected"})
}
