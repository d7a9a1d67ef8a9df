package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"cross-swap/pkg/types"
)

const (
	// CatalogTimeout is the hard limit on currency and pair lookups.
	CatalogTimeout = 20 * time.Second

	apiKeyHeader = "x-api-key"
)

// Client talks to the swap provider's REST API. Every endpoint is a POST
// carrying and returning JSON.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a provider API client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrencyInfo is a currency metadata entry from /currencies/info.
type CurrencyInfo struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	ImageURL         string `json:"imageUrl"`
	RequiresExtraTag bool   `json:"requiresExtraTag"`
}

// NetworkInfo is a network metadata entry from /currencies/info.
type NetworkInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type currenciesInfoRequest struct {
	Currencies []string `json:"currencies,omitempty"`
	Networks   []string `json:"networks,omitempty"`
}

type currenciesInfoResponse struct {
	Currencies []CurrencyInfo `json:"currencies"`
	Networks   []NetworkInfo  `json:"networks"`
}

// PairsRequest narrows the pair listing. Singular one-to-one currency
// pairing is the canonical shape; all fields are optional filters.
type PairsRequest struct {
	FromCurrency string `json:"fromCurrency,omitempty"`
	FromNetwork  string `json:"fromNetwork,omitempty"`
	ToCurrency   string `json:"toCurrency,omitempty"`
	ToNetwork    string `json:"toNetwork,omitempty"`
}

type pairEntry struct {
	FromCurrency string `json:"fromCurrency"`
	FromNetwork  string `json:"fromNetwork"`
	ToCurrency   string `json:"toCurrency"`
	ToNetwork    string `json:"toNetwork"`
	IsEnabled    bool   `json:"isEnabled"`
}

type pairsResponse struct {
	Pairs []pairEntry `json:"pairs"`
}

// QuoteRequest asks for a signed price commitment.
type QuoteRequest struct {
	FromCurrency      string `json:"fromCurrency"`
	FromNetwork       string `json:"fromNetwork"`
	ToCurrency        string `json:"toCurrency"`
	ToNetwork         string `json:"toNetwork"`
	FromAmount        string `json:"fromAmount"`
	FromWalletAddress string `json:"fromWalletAddress,omitempty"`
	Flow              string `json:"flow,omitempty"`
}

// QuoteResponse is the raw wire shape of a quote. ExpiresIn is seconds
// from receipt.
type QuoteResponse struct {
	FromAmount string `json:"fromAmount"`
	ToAmount   string `json:"toAmount"`
	NetworkFee string `json:"networkFee"`
	ExpiresIn  int64  `json:"expiresIn"`
	Signature  string `json:"signature"`
	RateID     string `json:"rateId"`
}

// ExecuteRequest creates a swap from a quote signature.
type ExecuteRequest struct {
	Signature                string `json:"signature"`
	ToWalletAddress          string `json:"toWalletAddress"`
	RefundWalletAddress      string `json:"refundWalletAddress"`
	ToWalletAddressExtra     string `json:"toWalletAddressExtra,omitempty"`
	RefundWalletAddressExtra string `json:"refundWalletAddressExtra,omitempty"`
}

type statusRequest struct {
	ID string `json:"id"`
}

// transactionResponse is the wire shape of a swap record.
type transactionResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	FromCurrency      string `json:"fromCurrency"`
	FromNetwork       string `json:"fromNetwork"`
	FromAmount        string `json:"fromAmount"`
	FromWalletAddress string `json:"fromWalletAddress"`
	ToCurrency        string `json:"toCurrency"`
	ToNetwork         string `json:"toNetwork"`
	ToAmount          string `json:"toAmount"`
	ToWalletAddress   string `json:"toWalletAddress"`
	DepositAddress    string `json:"depositAddress"`
	DepositExtraID    string `json:"depositExtraId"`
	ExternalID        string `json:"externalId"`
	CompletedAt       string `json:"completedAt"`
}

func (r *transactionResponse) toTransaction() types.Transaction {
	tx := types.Transaction{
		ID:                r.ID,
		Status:            types.Status(strings.ToLower(r.Status)),
		FromCurrency:      r.FromCurrency,
		FromNetwork:       r.FromNetwork,
		FromAmount:        r.FromAmount,
		FromWalletAddress: r.FromWalletAddress,
		ToCurrency:        r.ToCurrency,
		ToNetwork:         r.ToNetwork,
		ToAmount:          r.ToAmount,
		ToWalletAddress:   r.ToWalletAddress,
		DepositAddress:    r.DepositAddress,
		DepositExtraID:    r.DepositExtraID,
		ExternalID:        r.ExternalID,
	}
	if r.CompletedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.CompletedAt); err == nil {
			tx.CompletedAt = &ts
		}
	}
	return tx
}

// Currencies fetches currency metadata.
func (c *Client) Currencies(ctx context.Context, codes []string) ([]CurrencyInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, CatalogTimeout)
	defer cancel()

	var resp currenciesInfoResponse
	if err := c.post(ctx, "/currencies/info", currenciesInfoRequest{Currencies: codes}, &resp); err != nil {
		return nil, err
	}
	return resp.Currencies, nil
}

// Networks fetches network metadata.
func (c *Client) Networks(ctx context.Context, codes []string) ([]NetworkInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, CatalogTimeout)
	defer cancel()

	var resp currenciesInfoResponse
	if err := c.post(ctx, "/currencies/info", currenciesInfoRequest{Networks: codes}, &resp); err != nil {
		return nil, err
	}
	return resp.Networks, nil
}

// Pairs fetches the enabled swap pairs matching the filter.
func (c *Client) Pairs(ctx context.Context, req PairsRequest) ([]types.Pair, error) {
	ctx, cancel := context.WithTimeout(ctx, CatalogTimeout)
	defer cancel()

	var resp pairsResponse
	if err := c.post(ctx, "/currencies/pairs", req, &resp); err != nil {
		return nil, err
	}

	pairs := make([]types.Pair, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		pairs = append(pairs, types.Pair{
			FromCurrency: p.FromCurrency,
			FromNetwork:  p.FromNetwork,
			ToCurrency:   p.ToCurrency,
			ToNetwork:    p.ToNetwork,
			Enabled:      p.IsEnabled,
		})
	}
	return pairs, nil
}

// Quote fetches a signed price commitment for the request.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*types.Quote, error) {
	var resp QuoteResponse
	if err := c.post(ctx, "/swap/quote", req, &resp); err != nil {
		return nil, err
	}
	if resp.Signature == "" {
		return nil, &types.UpstreamError{Endpoint: "/swap/quote", Message: "quote response missing signature"}
	}

	return &types.Quote{
		FromCurrency: req.FromCurrency,
		FromNetwork:  req.FromNetwork,
		ToCurrency:   req.ToCurrency,
		ToNetwork:    req.ToNetwork,
		FromAmount:   resp.FromAmount,
		ToAmount:     resp.ToAmount,
		NetworkFee:   resp.NetworkFee,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Signature:    resp.Signature,
		RateID:       resp.RateID,
	}, nil
}

// Execute creates a swap transaction from a quote signature. The call is
// not idempotent and is never retried here.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*types.Transaction, error) {
	var resp transactionResponse
	if err := c.post(ctx, "/swap/execute", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &types.UpstreamError{Endpoint: "/swap/execute", Message: "execute response missing transaction id"}
	}
	tx := resp.toTransaction()
	return &tx, nil
}

// Status fetches the full transaction record for a swap id.
func (c *Client) Status(ctx context.Context, id string) (*types.Transaction, error) {
	var resp transactionResponse
	if err := c.post(ctx, "/swap/status", statusRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	tx := resp.toTransaction()
	return &tx, nil
}

// post sends a JSON POST and decodes the response into out. Non-2xx
// responses are turned into UpstreamError with the best available
// message; deadline hits become UpstreamTimeout.
func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return &types.UpstreamTimeout{Endpoint: endpoint, Timeout: CatalogTimeout}
		}
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return c.parseAPIError(endpoint, httpResp)
	}

	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return &types.UpstreamError{Endpoint: endpoint, StatusCode: httpResp.StatusCode, Message: "malformed response body"}
		}
	}
	return nil
}

// parseAPIError extracts the most useful message from an error response:
// structured "message" field, then "errors", then the raw body.
func (c *Client) parseAPIError(endpoint string, httpResp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(httpResp.Body)
	if readErr == nil && len(bodyBytes) > 0 {
		var errorResp map[string]interface{}
		if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
			if message, ok := errorResp["message"].(string); ok && message != "" {
				return &types.UpstreamError{Endpoint: endpoint, StatusCode: httpResp.StatusCode, Message: message}
			}
			if errs, ok := errorResp["errors"]; ok {
				return &types.UpstreamError{Endpoint: endpoint, StatusCode: httpResp.StatusCode, Message: fmt.Sprintf("%v", errs)}
			}
		}
		return &types.UpstreamError{Endpoint: endpoint, StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	}
	return &types.UpstreamError{Endpoint: endpoint, StatusCode: httpResp.StatusCode}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
