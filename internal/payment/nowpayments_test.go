package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
)

const testIPNSecret = "ipn-secret"

func signIPN(t *testing.T, body []byte, secret string) string {
	t.Helper()
	// Подпись считается по JSON с отсортированными ключами;
	// json.Marshal карты дает ровно такую форму
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	canonical, err := json.Marshal(payload)
	require.NoError(t, err)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

func ipnRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/nowpayments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("x-nowpayments-sig", signature)
	}
	return req
}

func ipnBody(t *testing.T, status, orderID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"payment_id":     7777,
		"payment_status": status,
		"order_id":       orderID,
		"pay_currency":   "btc",
	})
	require.NoError(t, err)
	return body
}

func TestNowPaymentsWebhook_MissingSignatureRejected(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "finished", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, ""))

	assert.False(t, ok)
	assert.Empty(t, subs.activations)
}

func TestNowPaymentsWebhook_BadSignatureRejected(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "finished", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, "deadbeef"))

	assert.False(t, ok)
	assert.Empty(t, subs.activations)
}

func TestNowPaymentsWebhook_FinishedActivates(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	planID := uuid.New()
	userID := uuid.New()
	body := ipnBody(t, "finished", MakeOrderID(planID, userID, time.Now()))

	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	assert.True(t, ok)
	require.Len(t, subs.activations, 1)
	params := subs.activations[0]
	assert.Equal(t, planID, params.PlanID)
	assert.Equal(t, userID, params.UserID)
	assert.Equal(t, domain.ProviderNowPayments, params.Provider)
	assert.Equal(t, "7777", params.ExternalID)
}

func TestNowPaymentsWebhook_ConfirmedActivates(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "confirmed", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	assert.True(t, ok)
	assert.Len(t, subs.activations, 1)
}

func TestNowPaymentsWebhook_NonFinalStatusAcknowledged(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	for _, status := range []string{"waiting", "confirming", "partially_paid", "failed", "expired"} {
		t.Run(status, func(t *testing.T) {
			body := ipnBody(t, status, MakeOrderID(uuid.New(), uuid.New(), time.Now()))
			ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

			assert.True(t, ok)
			assert.Empty(t, subs.activations)
		})
	}
}

func TestNowPaymentsWebhook_UnparseableOrderIDAcknowledged(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "finished", "invoice-from-another-system")
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	// Повтор доставки не исправит order_id, поэтому событие принимается
	assert.True(t, ok)
	assert.Empty(t, subs.activations)
}

func TestNowPaymentsWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "finished", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	req := func() *http.Request { return ipnRequest(t, body, signIPN(t, body, testIPNSecret)) }

	assert.True(t, provider.HandleWebhook(context.Background(), req()))
	assert.True(t, provider.HandleWebhook(context.Background(), req()))
	assert.Len(t, subs.activations, 1)
}

func TestNowPaymentsWebhook_ActivationFailureRejected(t *testing.T) {
	subs := newFakeSubscriptionService()
	subs.activateErr = errors.New("db is down")
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	body := ipnBody(t, "finished", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	// Провайдер повторит доставку и активация догонит
	assert.False(t, ok)
}

// Без настроенного секрета проверяется только наличие заголовка
func TestNowPaymentsWebhook_NoSecretAcceptsAnySignature(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, "", subs, testLogger())

	body := ipnBody(t, "finished", MakeOrderID(uuid.New(), uuid.New(), time.Now()))
	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, "anything"))

	assert.True(t, ok)
	assert.Len(t, subs.activations, 1)
}

func TestNowPaymentsWebhook_StringPaymentID(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	orderID := MakeOrderID(uuid.New(), uuid.New(), time.Now())
	body, err := json.Marshal(map[string]any{
		"payment_id":     "abc-123",
		"payment_status": "finished",
		"order_id":       orderID,
	})
	require.NoError(t, err)

	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	require.True(t, ok)
	require.Len(t, subs.activations, 1)
	assert.Equal(t, "abc-123", subs.activations[0].ExternalID)
}

func TestNowPaymentsWebhook_MissingPaymentIDFallsBackToOrderID(t *testing.T) {
	subs := newFakeSubscriptionService()
	provider := NewNowPaymentsProvider(nil, testIPNSecret, subs, testLogger())

	orderID := MakeOrderID(uuid.New(), uuid.New(), time.Now())
	body := []byte(fmt.Sprintf(`{"payment_status": "finished", "order_id": %q}`, orderID))

	ok := provider.HandleWebhook(context.Background(), ipnRequest(t, body, signIPN(t, body, testIPNSecret)))

	require.True(t, ok)
	require.Len(t, subs.activations, 1)
	assert.Equal(t, orderID, subs.activations[0].ExternalID)
}
