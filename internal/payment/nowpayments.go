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
	"io"
	"net/http"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/nowpayments"
	"github.com/Avdeenko/Classifieds-backend/internal/service"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// Статусы IPN, означающие подтвержденную оплату
var paidStatuses = map[string]bool{
	"finished":  true,
	"confirmed": true,
}

// NowPaymentsProvider платежный провайдер поверх криптошлюза NOWPayments.
type NowPaymentsProvider struct {
	client    *nowpayments.Client
	ipnSecret string
	subs      service.SubscriptionService
	log       *logger.Logger
}

// NewNowPaymentsProvider создает провайдера NOWPayments.
// ipnSecret может быть пустым - тогда проверяется только наличие
// подписи, без криптографической верификации.
func NewNowPaymentsProvider(client *nowpayments.Client, ipnSecret string, subs service.SubscriptionService, log *logger.Logger) *NowPaymentsProvider {
	return &NowPaymentsProvider{
		client:    client,
		ipnSecret: ipnSecret,
		subs:      subs,
		log:       log,
	}
}

// Client возвращает API-клиент шлюза для операций вне общего контракта
// (список валют, оценки, инвойсы).
func (p *NowPaymentsProvider) Client() *nowpayments.Client {
	return p.client
}

// CreateCheckoutSession для криптоплатежа не создает внешней сессии:
// пользователь сначала выбирает валюту, поэтому возвращается внутренняя
// страница выбора.
func (p *NowPaymentsProvider) CreateCheckoutSession(ctx context.Context, plan *domain.Plan, user *domain.User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("payment: nowpayments: checkout requires an authenticated user")
	}
	return "/api/subscriptions/crypto/" + plan.ID.String(), nil
}

// HandleWebhook обрабатывает IPN-уведомление NOWPayments.
// Запрос без заголовка x-nowpayments-sig отклоняется. Оплатные статусы
// активируют подписку по order_id, остальные принимаются без записи.
func (p *NowPaymentsProvider) HandleWebhook(ctx context.Context, r *http.Request) bool {
	signature := r.Header.Get("x-nowpayments-sig")
	if signature == "" {
		p.log.Warnw("NOWPayments IPN without signature header rejected")
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		p.log.Errorw("Failed to read NOWPayments IPN body", "error", err)
		return false
	}

	if p.ipnSecret != "" && !p.verifySignature(body, signature) {
		p.log.Warnw("NOWPayments IPN signature verification failed")
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		p.log.Errorw("Failed to parse NOWPayments IPN body", "error", err)
		return false
	}

	status, _ := payload["payment_status"].(string)
	if !paidStatuses[status] {
		p.log.Debugw("NOWPayments IPN with non-final status ignored", "status", status)
		return true
	}

	orderID, _ := payload["order_id"].(string)
	planID, userID, err := ParseOrderID(orderID)
	if err != nil {
		// Заказ создан не нами либо формат сломан; повтор доставки
		// ничего не изменит
		p.log.Warnw("NOWPayments IPN with unparseable order id ignored", "orderID", orderID)
		return true
	}

	params := service.ActivateParams{
		UserID:     userID,
		PlanID:     planID,
		Provider:   domain.ProviderNowPayments,
		ExternalID: stringifyPaymentID(payload["payment_id"]),
	}
	if params.ExternalID == "" {
		params.ExternalID = orderID
	}

	created, err := p.subs.Activate(ctx, params)
	if err != nil {
		p.log.Errorw("Failed to activate subscription from NOWPayments IPN", "error", err, "orderID", orderID)
		return false
	}
	if !created {
		p.log.Debugw("Duplicate NOWPayments IPN delivery ignored", "orderID", orderID, "externalID", params.ExternalID)
	}
	return true
}

// verifySignature проверяет HMAC-SHA512 подпись IPN. NOWPayments
// подписывает JSON с отсортированными ключами, поэтому тело
// перекодируется перед вычислением HMAC.
func (p *NowPaymentsProvider) verifySignature(body []byte, signature string) bool {
	canonical, err := sortedJSON(body)
	if err != nil {
		p.log.Warnw("Failed to canonicalize NOWPayments IPN body", "error", err)
		return false
	}

	mac := hmac.New(sha512.New, []byte(p.ipnSecret))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// sortedJSON перекодирует JSON-объект с детерминированным порядком
// ключей. encoding/json сортирует ключи map при маршалинге; числа
// сохраняются как json.Number, чтобы не потерять исходную запись.
func sortedJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("empty payload")
	}
	return json.Marshal(payload)
}

// stringifyPaymentID приводит payment_id к строке: шлюз присылает его
// то числом, то строкой.
func stringifyPaymentID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
