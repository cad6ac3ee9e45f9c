package nowpayments

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	merchantEnrichedCacheKey = "nowpayments:merchant_currencies_enriched"
	merchantEnrichedTTL      = time.Minute

	fullCurrenciesCacheKey = "nowpayments:full_currencies"
	fullCurrenciesTTL      = 24 * time.Hour

	logoOrigin = "https://nowpayments.io"
)

// EnrichedCoin монета мерчанта, обогащенная данными каталога валют
type EnrichedCoin struct {
	Code    string         `json:"code"`
	Name    string         `json:"name"`
	Network string         `json:"network,omitempty"`
	LogoURL string         `json:"logo_url,omitempty"`
	Raw     map[string]any `json:"-"`
}

// MerchantCoinsEnriched возвращает монеты, включенные у мерчанта,
// дополненные именем, сетью и логотипом из полного каталога валют.
// Результат кэшируется на минуту, каталог - на сутки. Любой сбой
// (API, разбор ответа) дает пустой список, не ошибку: страница выбора
// валюты показывает "нет валют" вместо 500.
func (c *Client) MerchantCoinsEnriched(ctx context.Context) []EnrichedCoin {
	if data, ok, _ := c.cache.Get(ctx, merchantEnrichedCacheKey); ok {
		var cached []EnrichedCoin
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}

	merchant, err := c.MerchantCoins(ctx)
	if err != nil {
		c.log.Warnw("Failed to fetch merchant coins", "error", err)
		empty := []EnrichedCoin{}
		c.cacheEnriched(ctx, empty)
		return empty
	}

	codes := extractMerchantCodes(merchant)
	if len(codes) == 0 {
		empty := []EnrichedCoin{}
		c.cacheEnriched(ctx, empty)
		return empty
	}

	catalog := c.fullCurrencyIndex(ctx)

	enriched := make([]EnrichedCoin, 0, len(codes))
	for _, code := range codes {
		coin := EnrichedCoin{Code: code, Name: code}

		if meta, ok := catalog[NormalizeCode(code)]; ok {
			coin = coinFromCatalog(code, meta)
		}

		enriched = append(enriched, coin)
	}

	c.cacheEnriched(ctx, enriched)
	return enriched
}

func (c *Client) cacheEnriched(ctx context.Context, coins []EnrichedCoin) {
	if data, err := json.Marshal(coins); err == nil {
		_ = c.cache.Set(ctx, merchantEnrichedCacheKey, data, merchantEnrichedTTL)
	}
}

// extractMerchantCodes приводит ответ merchant/coins к списку кодов.
// Поддерживаются обе формы ответа: объект с selectedCurrencies и голый
// список. Элемент-объект дает код по первому непустому из ключей
// pay_currency, code, currency, symbol, name. Дубликаты (по
// нормализованному коду) схлопываются, первый выигрывает, порядок
// сохраняется.
func extractMerchantCodes(merchant any) []string {
	var items []any

	switch v := merchant.(type) {
	case map[string]any:
		if selected, ok := v["selectedCurrencies"].([]any); ok {
			items = selected
		} else if currencies, ok := v["currencies"].([]any); ok {
			items = currencies
		}
	case []any:
		items = v
	}

	codes := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		var code string

		switch entry := item.(type) {
		case string:
			code = entry
		case map[string]any:
			for _, key := range []string{"pay_currency", "code", "currency", "symbol", "name"} {
				if s, ok := entry[key].(string); ok && s != "" {
					code = s
					break
				}
			}
		}

		if code == "" {
			continue
		}

		norm := NormalizeCode(code)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		codes = append(codes, code)
	}

	return codes
}

// fullCurrencyIndex возвращает каталог валют, проиндексированный по
// нормализованным кодам, тикерам и именам. Сбой загрузки дает пустой
// индекс: монеты останутся необогащенными, но не пропадут.
func (c *Client) fullCurrencyIndex(ctx context.Context) map[string]map[string]any {
	if data, ok, _ := c.cache.Get(ctx, fullCurrenciesCacheKey); ok {
		var cached map[string]map[string]any
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}

	index := make(map[string]map[string]any)

	resp, err := c.FullCurrencies(ctx)
	if err != nil {
		c.log.Warnw("Failed to fetch full currency catalog", "error", err)
		return index
	}

	currencies, _ := resp["currencies"].([]any)
	for _, item := range currencies {
		meta, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"code", "ticker", "name", "cg_id"} {
			if s, ok := meta[key].(string); ok && s != "" {
				if norm := NormalizeCode(s); norm != "" {
					if _, exists := index[norm]; !exists {
						index[norm] = meta
					}
				}
			}
		}
	}

	if data, err := json.Marshal(index); err == nil {
		_ = c.cache.Set(ctx, fullCurrenciesCacheKey, data, fullCurrenciesTTL)
	}

	return index
}

// coinFromCatalog строит монету из кода мерчанта и записи каталога.
// Относительный путь логотипа превращается в абсолютный URL сайта
// NOWPayments.
func coinFromCatalog(code string, meta map[string]any) EnrichedCoin {
	coin := EnrichedCoin{Code: code, Name: code, Raw: meta}

	if name, ok := meta["name"].(string); ok && name != "" {
		coin.Name = name
	}
	if network, ok := meta["network"].(string); ok {
		coin.Network = network
	}
	if logo, ok := meta["logo_url"].(string); ok && logo != "" {
		if strings.HasPrefix(logo, "/") {
			logo = logoOrigin + logo
		}
		coin.LogoURL = logo
	}

	return coin
}

// NormalizeCode нормализует код валюты для сравнения: нижний регистр,
// только буквы и цифры. "USDT.TRC20" и "usdttrc20" считаются одним кодом.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
