package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v78"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
)

const testWebhookSecret = "whsec_test"

func newTestStripeProvider(t *testing.T, subs *fakeSubscriptionService) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider("sk_test_key", testWebhookSecret, "https://example.com", subs, testLogger())
	require.NoError(t, err)
	return provider
}

// stripeRequest подписывает payload по схеме Stripe: t=unix,v1=hmac-sha256
func stripeRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()

	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", timestamp, signature))
	return req
}

func checkoutCompletedPayload(userID, planID uuid.UUID) []byte {
	object := fmt.Sprintf(`{
		"id": "cs_test_1",
		"object": "checkout.session",
		"subscription": "sub_42",
		"customer": "cus_7",
		"metadata": {"user_id": %q, "plan_id": %q, "provider": "stripe"}
	}`, userID, planID)

	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": %s}
	}`, stripe.APIVersion, object))
}

func TestStripeWebhook_BadSignatureRejected(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := newTestStripeProvider(t, subs)

	payload := checkoutCompletedPayload(uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	ok := provider.HandleWebhook(context.Background(), req)

	assert.False(t, ok)
	assert.Empty(t, subs.activations)
}

func TestStripeWebhook_CheckoutCompletedActivates(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := newTestStripeProvider(t, subs)

	userID := uuid.New()
	planID := uuid.New()
	req := stripeRequest(t, checkoutCompletedPayload(userID, planID), testWebhookSecret)

	ok := provider.HandleWebhook(context.Background(), req)

	assert.True(t, ok)
	require.Len(t, subs.activations, 1)
	params := subs.activations[0]
	assert.Equal(t, userID, params.UserID)
	assert.Equal(t, planID, params.PlanID)
	assert.Equal(t, domain.ProviderStripe, params.Provider)
	// Внешний идентификатор - подписка Stripe, не сессия
	assert.Equal(t, "sub_42", params.ExternalID)
	assert.Equal(t, "cus_7", params.StripeCustomerID)
}

func TestStripeWebhook_BrokenMetadataAcknowledged(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := newTestStripeProvider(t, subs)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_2",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_2", "object": "checkout.session", "metadata": {}}}
	}`, stripe.APIVersion))

	ok := provider.HandleWebhook(context.Background(), stripeRequest(t, payload, testWebhookSecret))

	// Повтор доставки метаданные не починит
	assert.True(t, ok)
	assert.Empty(t, subs.activations)
}

func TestStripeWebhook_SubscriptionDeletedCancels(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := newTestStripeProvider(t, subs)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_3",
		"object": "event",
		"api_version": %q,
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_42", "object": "subscription"}}
	}`, stripe.APIVersion))

	ok := provider.HandleWebhook(context.Background(), stripeRequest(t, payload, testWebhookSecret))

	assert.True(t, ok)
	assert.Equal(t, []string{"sub_42"}, subs.cancels)
}

func TestStripeWebhook_SubscriptionDeletedUnknownIDAcknowledged(t *testing.T) {
	subs := newFakeSubscriptionService()
	subs.cancelErr = repository.ErrNotFound
	provider := newTestStripeProvider(t, subs)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_4",
		"object": "event",
		"api_version": %q,
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_unknown", "object": "subscription"}}
	}`, stripe.APIVersion))

	ok := provider.HandleWebhook(context.Background(), stripeRequest(t, payload, testWebhookSecret))

	assert.True(t, ok)
	assert.Empty(t, subs.cancels)
}

func TestStripeWebhook_UnrelatedEventIgnored(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := newTestStripeProvider(t, subs)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_5",
		"object": "event",
		"api_version": %q,
		"type": "invoice.paid",
		"data": {"object": {"id": "in_1", "object": "invoice"}}
	}`, stripe.APIVersion))

	ok := provider.HandleWebhook(context.Background(), stripeRequest(t, payload, testWebhookSecret))

	assert.True(t, ok)
	assert.Empty(t, subs.activations)
	assert.Empty(t, subs.cancels)
}

func TestNowPaymentsCheckout_ReturnsCurrencySelectionURL(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, "", subs, testLogger())

	plan := &domain.Plan{ID: uuid.New(), Name: "Premium", IsActive: true}
	user := &domain.User{ID: uuid.New()}

	url, err := provider.CreateCheckoutSession(context.Background(), plan, user)
	require.NoError(t, err)
	assert.Equal(t, "/api/subscriptions/crypto/"+plan.ID.String(), url)

	_, err = provider.CreateCheckoutSession(context.Background(), plan, nil)
	assert.Error(t, err)
}
