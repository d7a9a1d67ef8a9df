package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// recommendedUSD is the target value of the seeded input amount.
	recommendedUSD = 100.0

	// FallbackAmount seeds the input when no price source can resolve
	// the symbol.
	FallbackAmount = "0.1"

	priceLookupTimeout = 10 * time.Second
)

// usdPrices is a static approximate price table used before reaching for
// the external lookup service. Values only seed a starting amount; they
// are never used for quoting.
var usdPrices = map[string]float64{
	"BTC":   65000,
	"ETH":   2500,
	"SOL":   150,
	"BNB":   550,
	"AVAX":  30,
	"MATIC": 0.6,
	"TRX":   0.12,
	"DOGE":  0.12,
	"LTC":   70,
	"XRP":   0.55,
	"ADA":   0.45,
	"DOT":   6,
	"USDT":  1,
	"USDC":  1,
	"DAI":   1,
}

// Pricer resolves the recommended default amount for a freshly selected
// currency: roughly $100 worth, from the static table first, then the
// external price service, then a flat constant.
type Pricer struct {
	priceAPIURL string
	httpClient  *http.Client
}

// NewPricer creates a pricer. priceAPIURL may be empty, in which case
// only the static table and the constant fallback are used.
func NewPricer(priceAPIURL string) *Pricer {
	return &Pricer{
		priceAPIURL: strings.TrimRight(priceAPIURL, "/"),
		httpClient:  &http.Client{Timeout: priceLookupTimeout},
	}
}

// RecommendedAmount returns the seed amount for the symbol. It never
// fails; every miss falls through to the next source.
func (p *Pricer) RecommendedAmount(ctx context.Context, symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if price, ok := usdPrices[symbol]; ok && price > 0 {
		return formatAmount(recommendedUSD / price)
	}

	if price, err := p.lookupPrice(ctx, symbol); err == nil && price > 0 {
		return formatAmount(recommendedUSD / price)
	}

	return FallbackAmount
}

// lookupPrice asks the external price service for the symbol's USD
// price.
func (p *Pricer) lookupPrice(ctx context.Context, symbol string) (float64, error) {
	if p.priceAPIURL == "" {
		return 0, fmt.Errorf("no price service configured")
	}

	endpoint := p.priceAPIURL + "/price?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price service returned status %d", resp.StatusCode)
	}

	var body struct {
		Price json.Number `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Price.Float64()
}

func formatAmount(v float64) string {
	// Keep a readable number of significant digits for the input field.
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "0" {
		return FallbackAmount
	}
	return s
}
