package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubscriptionMetrics метрики Prometheus платежного контура
type SubscriptionMetrics struct {
	checkoutSessions     *prometheus.CounterVec
	webhooksProcessed    *prometheus.CounterVec
	subscriptionsCreated *prometheus.CounterVec
	subscriptionsDeleted *prometheus.CounterVec
}

// NewSubscriptionMetrics регистрирует метрики в переданном registry.
func NewSubscriptionMetrics(reg prometheus.Registerer) *SubscriptionMetrics {
	factory := promauto.With(reg)
	return &SubscriptionMetrics{
		checkoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_checkout_sessions_total",
			Help: "Количество созданных checkout-сессий по провайдерам",
		}, []string{"provider"}),
		webhooksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_webhooks_processed_total",
			Help: "Количество обработанных webhook-уведомлений по провайдерам и исходу",
		}, []string{"provider", "outcome"}),
		subscriptionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_subscriptions_created_total",
			Help: "Количество активированных подписок по провайдерам",
		}, []string{"provider"}),
		subscriptionsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_subscriptions_canceled_total",
			Help: "Количество отмененных подписок по провайдерам",
		}, []string{"provider"}),
	}
}

// IncCheckoutSession учитывает созданную checkout-сессию.
func (m *SubscriptionMetrics) IncCheckoutSession(provider string) {
	m.checkoutSessions.WithLabelValues(provider).Inc()
}

// IncWebhookProcessed учитывает обработанный webhook.
// outcome: "ok" или "rejected".
func (m *SubscriptionMetrics) IncWebhookProcessed(provider, outcome string) {
	m.webhooksProcessed.WithLabelValues(provider, outcome).Inc()
}

// IncSubscriptionCreated учитывает активированную подписку.
func (m *SubscriptionMetrics) IncSubscriptionCreated(provider string) {
	m.subscriptionsCreated.WithLabelValues(provider).Inc()
}

// IncSubscriptionCanceled учитывает отмененную подписку.
func (m *SubscriptionMetrics) IncSubscriptionCanceled(provider string) {
	m.subscriptionsDeleted.WithLabelValues(provider).Inc()
}
