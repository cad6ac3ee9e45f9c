package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/middleware"
	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/nowpayments"
	"github.com/Avdeenko/Classifieds-backend/internal/payment"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// CryptoHandler обработчик оплаты криптовалютой
type CryptoHandler struct {
	plans   repository.PlanRepository
	gateway *nowpayments.Client
	baseURL string
	metrics *metrics.SubscriptionMetrics
	log     *logger.Logger
}

// NewCryptoHandler создает новый обработчик криптоплатежей.
// gateway может быть nil, если провайдер не сконфигурирован.
func NewCryptoHandler(
	plans repository.PlanRepository,
	gateway *nowpayments.Client,
	baseURL string,
	m *metrics.SubscriptionMetrics,
	log *logger.Logger,
) *CryptoHandler {
	return &CryptoHandler{
		plans:   plans,
		gateway: gateway,
		baseURL: baseURL,
		metrics: m,
		log:     log,
	}
}

// SelectCurrency возвращает план и список валют мерчанта для страницы
// выбора валюты.
func (h *CryptoHandler) SelectCurrency(c *gin.Context) {
	plan, ok := h.loadPlan(c)
	if !ok {
		return
	}
	if !h.gatewayAvailable(c) {
		return
	}

	coins := h.gateway.MerchantCoinsEnriched(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"plan": planView{
			Plan:            *plan,
			DurationDisplay: plan.DurationDisplay(),
		},
		"currencies": coins,
	})
}

// EstimatePayment возвращает минимальную сумму и оценку платежа в
// выбранной валюте.
func (h *CryptoHandler) EstimatePayment(c *gin.Context) {
	planID, err := uuid.Parse(c.Query("plan_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}
	plan, err := h.plans.GetByID(c.Request.Context(), planID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	if !h.gatewayAvailable(c) {
		return
	}

	code, ok := h.resolveCurrency(c, c.Query("currency"))
	if !ok {
		return
	}

	price, err := strconv.ParseFloat(plan.Price, 64)
	if err != nil {
		h.log.Error("Plan %s has unparseable price %q", plan.ID, plan.Price)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to estimate payment"})
		return
	}
	fiat := strings.ToLower(plan.Currency)

	minResp, err := h.gateway.MinimumPaymentAmount(c.Request.Context(), code, fiat)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to estimate payment"})
		return
	}
	estResp, err := h.gateway.EstimatePrice(c.Request.Context(), price, fiat, code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to estimate payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"currency":         code,
		"min_amount":       minResp["min_amount"],
		"estimated_amount": estResp["estimated_amount"],
	})
}

// invoiceRequest тело запроса на создание инвойса
type invoiceRequest struct {
	PlanID   uuid.UUID `json:"plan_id" binding:"required"`
	Currency string    `json:"currency" binding:"omitempty,currencycode"`
}

// CreateInvoice создает инвойс NOWPayments и возвращает его URL.
// Идентификатор заказа несет план и пользователя: по нему IPN-обработчик
// активирует подписку.
func (h *CryptoHandler) CreateInvoice(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.plans.GetByID(c.Request.Context(), req.PlanID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	if !h.gatewayAvailable(c) {
		return
	}

	code, ok := h.resolveCurrency(c, req.Currency)
	if !ok {
		return
	}

	price, err := strconv.ParseFloat(plan.Price, 64)
	if err != nil {
		h.log.Error("Plan %s has unparseable price %q", plan.ID, plan.Price)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	orderID := payment.MakeOrderID(plan.ID, user.ID, time.Now())

	resp, err := h.gateway.CreateInvoice(c.Request.Context(), nowpayments.InvoiceParams{
		PriceAmount:      price,
		PriceCurrency:    strings.ToLower(plan.Currency),
		PayCurrency:      code,
		IPNCallbackURL:   h.baseURL + "/webhooks/nowpayments",
		OrderID:          orderID,
		OrderDescription: plan.Name + " subscription",
		SuccessURL:       h.baseURL + "/api/subscriptions/success",
		CancelURL:        h.baseURL + "/api/subscriptions/pricing",
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create invoice"})
		return
	}

	invoiceURL, _ := resp["invoice_url"].(string)
	if invoiceURL == "" {
		h.log.Errorw("NOWPayments invoice response without invoice_url", "orderID", orderID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create invoice"})
		return
	}

	h.metrics.IncCheckoutSession(domain.ProviderNowPayments)
	c.JSON(http.StatusOK, gin.H{
		"invoice_url": invoiceURL,
		"order_id":    orderID,
	})
}

// loadPlan читает план из path-параметра.
func (h *CryptoHandler) loadPlan(c *gin.Context) (*domain.Plan, bool) {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return nil, false
	}
	plan, err := h.plans.GetByID(c.Request.Context(), planID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return nil, false
	}
	return plan, true
}

// gatewayAvailable отвечает за несконфигурированный шлюз понятной
// ошибкой вместо 500.
func (h *CryptoHandler) gatewayAvailable(c *gin.Context) bool {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Crypto payments are temporarily unavailable"})
		return false
	}
	return true
}

// resolveCurrency сопоставляет запрошенную валюту со списком мерчанта
// по нормализованному коду или имени. Пустой запрос дает первую валюту
// мерчанта, неизвестный код - 400.
func (h *CryptoHandler) resolveCurrency(c *gin.Context, requested string) (string, bool) {
	coins := h.gateway.MerchantCoinsEnriched(c.Request.Context())
	if len(coins) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No payment currencies available"})
		return "", false
	}

	code := matchCoin(coins, requested)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported currency"})
		return "", false
	}
	return code, true
}

func matchCoin(coins []nowpayments.EnrichedCoin, requested string) string {
	if requested == "" {
		return coins[0].Code
	}
	norm := nowpayments.NormalizeCode(requested)
	for _, coin := range coins {
		if nowpayments.NormalizeCode(coin.Code) == norm || nowpayments.NormalizeCode(coin.Name) == norm {
			return coin.Code
		}
	}
	return ""
}
