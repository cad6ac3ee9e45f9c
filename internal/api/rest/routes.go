package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/handlers"
	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/middleware"
	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// Лимиты запросов к /api/core/limits/ в минуту
const (
	limitsRateAuthenticated = 60
	limitsRateAnonymous     = 30
)

// Handlers обработчики, участвующие в маршрутизации
type Handlers struct {
	Config        *handlers.ConfigHandler
	Limits        *handlers.LimitsHandler
	Subscriptions *handlers.SubscriptionHandler
	Webhooks      *handlers.WebhookHandler
	Crypto        *handlers.CryptoHandler
}

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	auth *middleware.AuthMiddleware,
	c cache.Cache,
	registry *prometheus.Registry,
	log *logger.Logger,
) {
	// Промежуточное ПО для всех запросов
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(gin.Recovery())
	router.Use(auth.OptionalAuth())

	// Здоровье сервиса и метрики
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Вебхуки провайдеров: подпись проверяет сам провайдер
	router.POST("/webhooks/stripe", h.Webhooks.HandleStripeWebhook)
	router.POST("/webhooks/nowpayments", h.Webhooks.HandleNowPaymentsWebhook)

	api := router.Group("/api")
	{
		core := api.Group("/core")
		{
			core.GET("/config/", h.Config.GetSiteConfig)
			core.GET("/limits/",
				middleware.RateLimit(c, log, limitsRateAuthenticated, limitsRateAnonymous),
				h.Limits.GetEffectiveLimits,
			)
		}

		subscriptions := api.Group("/subscriptions")
		{
			// Публичные маршруты
			subscriptions.GET("/pricing", h.Subscriptions.GetPricing)
			subscriptions.GET("/success", h.Subscriptions.CheckoutSuccess)

			// Защищенные маршруты (требуют аутентификации)
			authed := subscriptions.Group("")
			authed.Use(auth.RequireAuth())
			{
				authed.POST("/checkout/:plan_id", h.Subscriptions.CreateCheckout)
				authed.GET("/my", h.Subscriptions.ListMySubscriptions)

				crypto := authed.Group("/crypto")
				{
					crypto.GET("/estimate", h.Crypto.EstimatePayment)
					crypto.POST("/invoice", h.Crypto.CreateInvoice)
					crypto.GET("/:plan_id", h.Crypto.SelectCurrency)
				}
			}
		}
	}

	log.Infow("API routes successfully configured")
}
