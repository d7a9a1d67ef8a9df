package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/types"
)

func TestQuote(t *testing.T) {
	var gotBody QuoteRequest
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/swap/quote", r.URL.Path)
		gotAPIKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(QuoteResponse{
			FromAmount: "1",
			ToAmount:   "0.065",
			NetworkFee: "0.0001",
			ExpiresIn:  120,
			Signature:  "sig123",
			RateID:     "rate-1",
		})
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	before := time.Now()
	q, err := c.Quote(context.Background(), QuoteRequest{
		FromCurrency: "SOL",
		FromNetwork:  "sol",
		ToCurrency:   "ETH",
		ToNetwork:    "eth",
		FromAmount:   "1",
		Flow:         "standard",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "SOL", gotBody.FromCurrency)
	assert.Equal(t, "standard", gotBody.Flow)

	assert.Equal(t, "sig123", q.Signature)
	assert.Equal(t, "0.065", q.ToAmount)
	assert.Equal(t, "rate-1", q.RateID)
	assert.True(t, q.ExpiresAt.After(before.Add(119*time.Second)))
	assert.True(t, q.Valid(time.Now()))
	assert.False(t, q.Valid(time.Now().Add(3*time.Minute)))
}

func TestQuoteMissingSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QuoteResponse{FromAmount: "1", ToAmount: "0.065"})
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	_, err := c.Quote(context.Background(), QuoteRequest{FromAmount: "1"})
	require.Error(t, err)

	var upstreamErr *types.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Contains(t, upstreamErr.Message, "missing signature")
}

func TestTimeoutIsDistinct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Quote(ctx, QuoteRequest{FromAmount: "1"})
	require.Error(t, err)

	var timeoutErr *types.UpstreamTimeout
	assert.True(t, errors.As(err, &timeoutErr), "timeout should surface as UpstreamTimeout, got %T", err)
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "structured message field",
			status:  http.StatusBadRequest,
			body:    `{"message": "pair not supported", "errors": ["ignored"]}`,
			wantMsg: "pair not supported",
		},
		{
			name:    "errors field fallback",
			status:  http.StatusUnprocessableEntity,
			body:    `{"errors": ["amount too small"]}`,
			wantMsg: "amount too small",
		},
		{
			name:    "raw body fallback",
			status:  http.StatusBadGateway,
			body:    `upstream unavailable`,
			wantMsg: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(server.URL, "test-key")
			_, err := c.Quote(context.Background(), QuoteRequest{FromAmount: "1"})
			require.Error(t, err)

			var upstreamErr *types.UpstreamError
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, tt.status, upstreamErr.StatusCode)
			assert.Contains(t, upstreamErr.Message, tt.wantMsg)
		})
	}
}

func TestEmptyErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	_, err := c.Quote(context.Background(), QuoteRequest{FromAmount: "1"})
	require.Error(t, err)

	var upstreamErr *types.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.NotEmpty(t, upstreamErr.Error())
}

func TestStatusDecodesTransaction(t *testing.T) {
	completed := time.Now().UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap/status", r.URL.Path)

		var req statusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tx1", req.ID)

		json.NewEncoder(w).Encode(transactionResponse{
			ID:             "tx1",
			Status:         "COMPLETED",
			FromCurrency:   "SOL",
			FromNetwork:    "sol",
			FromAmount:     "1",
			ToCurrency:     "ETH",
			ToNetwork:      "eth",
			ToAmount:       "0.065",
			DepositAddress: "dep-addr",
			CompletedAt:    completed.Format(time.RFC3339),
		})
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	tx, err := c.Status(context.Background(), "tx1")
	require.NoError(t, err)

	assert.Equal(t, "tx1", tx.ID)
	assert.Equal(t, types.StatusCompleted, tx.Status)
	assert.True(t, tx.Status.Terminal())
	require.NotNil(t, tx.CompletedAt)
	assert.True(t, completed.Equal(*tx.CompletedAt))
}

func TestExecuteMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	_, err := c.Execute(context.Background(), ExecuteRequest{Signature: "sig123"})
	require.Error(t, err)

	var upstreamErr *types.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Contains(t, upstreamErr.Message, "missing transaction id")
}

func TestPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/currencies/pairs", r.URL.Path)
		json.NewEncoder(w).Encode(pairsResponse{Pairs: []pairEntry{
			{FromCurrency: "SOL", FromNetwork: "sol", ToCurrency: "ETH", ToNetwork: "eth", IsEnabled: true},
			{FromCurrency: "SOL", FromNetwork: "sol", ToCurrency: "BTC", ToNetwork: "btc", IsEnabled: false},
		}})
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	pairs, err := c.Pairs(context.Background(), PairsRequest{FromCurrency: "SOL"})
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.True(t, pairs[0].Enabled)
	assert.False(t, pairs[1].Enabled)
	assert.True(t, pairs[0].Matches("sol", "SOL", "eth", "ETH"))
}
