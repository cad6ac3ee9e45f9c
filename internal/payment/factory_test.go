package payment

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
)

type stubProvider struct {
	url string
}

func (s *stubProvider) CreateCheckoutSession(ctx context.Context, plan *domain.Plan, user *domain.User) (string, error) {
	return s.url, nil
}

func (s *stubProvider) HandleWebhook(ctx context.Context, r *http.Request) bool {
	return true
}

func TestFactory_Get(t *testing.T) {
	stripe := &stubProvider{url: "https://checkout.stripe.com/session"}
	crypto := &stubProvider{url: "/api/subscriptions/crypto/plan"}

	factory := NewFactory()
	factory.Register(domain.ProviderStripe, stripe)
	factory.Register(domain.ProviderNowPayments, crypto)

	got, err := factory.Get(domain.ProviderStripe)
	require.NoError(t, err)
	assert.Same(t, Provider(stripe), got)

	got, err = factory.Get(domain.ProviderNowPayments)
	require.NoError(t, err)
	assert.Same(t, Provider(crypto), got)
}

func TestFactory_GetUnknownProvider(t *testing.T) {
	factory := NewFactory()
	factory.Register(domain.ProviderStripe, &stubProvider{})

	_, err := factory.Get("paypal")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	// Имя провайдера должно попасть в текст ошибки
	assert.Contains(t, err.Error(), "paypal")
}

func TestFactory_ProviderIDs(t *testing.T) {
	factory := NewFactory()
	factory.Register(domain.ProviderStripe, &stubProvider{})
	factory.Register(domain.ProviderNowPayments, &stubProvider{})

	ids := factory.ProviderIDs()
	assert.ElementsMatch(t, []string{domain.ProviderStripe, domain.ProviderNowPayments}, ids)
}
