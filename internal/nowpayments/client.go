package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// DefaultAPIBase адрес API NOWPayments по умолчанию
const DefaultAPIBase = "https://api.nowpayments.io/v1"

// ErrNoAPIKey не задан API ключ провайдера
var ErrNoAPIKey = errors.New("API key is not specified")

// Client тонкая обертка над HTTP API NOWPayments: по одному методу на
// удаленный endpoint, общий аутентифицированный HTTP-клиент.
type Client struct {
	apiBase    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Cache
	log        *logger.Logger
}

// NewClient создает новый клиент NOWPayments. Пустой apiBase заменяется
// адресом по умолчанию.
func NewClient(apiBase, apiKey string, c cache.Cache, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		apiBase:    apiBase,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      c,
		log:        log,
	}, nil
}

// call выполняет запрос к API. Для GET params уходят в query string,
// для POST body сериализуется в JSON. Не-2xx ответ или транспортная
// ошибка логируются (с телом ответа, если оно есть) и возвращаются
// вызывающему - решение о восстановлении принимает он.
func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, body any) ([]byte, error) {
	reqURL := c.apiBase + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("nowpayments: failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("nowpayments: failed to build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("NOWPayments API error", "method", method, "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("nowpayments: %s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Errorw("NOWPayments API error", "method", method, "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("nowpayments: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorw("NOWPayments API error",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"response", string(respBody),
		)
		return nil, fmt.Errorf("nowpayments: %s %s returned status %d", method, endpoint, resp.StatusCode)
	}

	return respBody, nil
}

// decode разбирает JSON-ответ в map, сохраняя числа как json.Number
func decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var result map[string]any
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("nowpayments: failed to decode response: %w", err)
	}
	return result, nil
}

// Status возвращает состояние API.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodGet, "status", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Currencies возвращает список всех доступных валют.
func (c *Client) Currencies(ctx context.Context) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodGet, "currencies", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// FullCurrencies возвращает полный каталог валют с метаданными отображения.
func (c *Client) FullCurrencies(ctx context.Context) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodGet, "full-currencies", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// MerchantCoins возвращает монеты, включенные в кабинете мерчанта.
// Форма ответа нестабильна (объект с selectedCurrencies или голый список),
// поэтому результат отдается как есть.
func (c *Client) MerchantCoins(ctx context.Context) (any, error) {
	data, err := c.call(ctx, http.MethodGet, "merchant/coins", nil, nil)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var result any
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("nowpayments: failed to decode response: %w", err)
	}
	return result, nil
}

// EstimatePrice возвращает оценку конвертации суммы между валютами.
func (c *Client) EstimatePrice(ctx context.Context, amount float64, currencyFrom, currencyTo string) (map[string]any, error) {
	params := url.Values{}
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	params.Set("currency_from", currencyFrom)
	params.Set("currency_to", currencyTo)

	data, err := c.call(ctx, http.MethodGet, "estimate", params, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// CreatePayment создает платеж.
func (c *Client) CreatePayment(ctx context.Context, params map[string]any) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodPost, "payment", nil, params)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// PaymentStatus возвращает статус платежа.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodGet, "payment/"+paymentID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// MinimumPaymentAmount возвращает минимальную сумму платежа для пары валют.
func (c *Client) MinimumPaymentAmount(ctx context.Context, currencyFrom, currencyTo string) (map[string]any, error) {
	params := url.Values{}
	params.Set("currency_from", currencyFrom)
	params.Set("currency_to", currencyTo)

	data, err := c.call(ctx, http.MethodGet, "min-amount", params, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// ListPayments возвращает список платежей.
func (c *Client) ListPayments(ctx context.Context, params url.Values) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodGet, "payment", params, nil)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// InvoiceParams параметры создания инвойса
type InvoiceParams struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency,omitempty"`
	IPNCallbackURL   string  `json:"ipn_callback_url,omitempty"`
	OrderID          string  `json:"order_id,omitempty"`
	OrderDescription string  `json:"order_description,omitempty"`
	SuccessURL       string  `json:"success_url,omitempty"`
	CancelURL        string  `json:"cancel_url,omitempty"`
}

// CreateInvoice создает инвойс и возвращает данные с invoice_url.
func (c *Client) CreateInvoice(ctx context.Context, params InvoiceParams) (map[string]any, error) {
	data, err := c.call(ctx, http.MethodPost, "invoice", nil, params)
	if err != nil {
		return nil, err
	}
	return decode(data)
}
