package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

// quoteServer echoes the requested amount back as a signed quote and
// records every request it sees. delays maps amounts to artificial
// response latency.
type quoteServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []client.QuoteRequest
	delays   map[string]time.Duration
	failing  bool
}

func newQuoteServer() *quoteServer {
	qs := &quoteServer{delays: make(map[string]time.Duration)}
	qs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		qs.mu.Lock()
		qs.requests = append(qs.requests, req)
		delay := qs.delays[req.FromAmount]
		failing := qs.failing
		qs.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "no liquidity"}`))
			return
		}

		json.NewEncoder(w).Encode(client.QuoteResponse{
			FromAmount: req.FromAmount,
			ToAmount:   "0.5",
			NetworkFee: "0.0001",
			ExpiresIn:  60,
			Signature:  "sig-" + req.FromAmount,
		})
	}))
	return qs
}

func (qs *quoteServer) requestAmounts() []string {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	amounts := make([]string, 0, len(qs.requests))
	for _, r := range qs.requests {
		amounts = append(amounts, r.FromAmount)
	}
	return amounts
}

func (qs *quoteServer) setFailing(v bool) {
	qs.mu.Lock()
	qs.failing = v
	qs.mu.Unlock()
}

func newTestEngine(qs *quoteServer, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithDebounce(20 * time.Millisecond)}, opts...)
	e := NewEngine(client.New(qs.URL, "test-key"), opts...)
	e.SetPair(
		types.Currency{Symbol: "SOL", Network: "sol"},
		types.Currency{Symbol: "ETH", Network: "eth"},
	)
	return e
}

func TestDebounceCoalesces(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := newTestEngine(qs)

	// Three keystrokes inside one debounce window.
	require.NoError(t, e.Request("1"))
	require.NoError(t, e.Request("12"))
	require.NoError(t, e.Request("123"))

	require.Eventually(t, func() bool {
		return e.State().Quote != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"123"}, qs.requestAmounts())
	assert.Equal(t, "sig-123", e.State().Quote.Signature)
}

func TestStaleResponseDiscarded(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()
	qs.delays["1"] = 300 * time.Millisecond

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	// Let the first request actually fire and get stuck in flight.
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, e.Request("2"))

	require.Eventually(t, func() bool {
		s := e.State()
		return s.Quote != nil && s.Quote.FromAmount == "2"
	}, 2*time.Second, 10*time.Millisecond)

	// After the slow response for "1" lands, the state must still show
	// the newer quote.
	time.Sleep(400 * time.Millisecond)
	s := e.State()
	require.NotNil(t, s.Quote)
	assert.Equal(t, "2", s.Quote.FromAmount)
}

func TestEmptyAndZeroAmountsClear(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	require.Eventually(t, func() bool {
		return e.State().Quote != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, e.Request(""))
	s := e.State()
	assert.Nil(t, s.Quote)
	assert.NoError(t, s.Err)

	require.NoError(t, e.Request("1"))
	require.NoError(t, e.Request("0"))
	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, e.State().Quote, "zero amount must not fire a request")
	assert.Equal(t, []string{"1"}, qs.requestAmounts())
}

func TestInvalidAmount(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := newTestEngine(qs)

	err := e.Request("abc")
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorAs(t, e.State().Err, &validationErr)

	err = e.Request("-5")
	require.ErrorAs(t, err, &validationErr)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, qs.requestAmounts(), "invalid input must not reach the network")
}

func TestErrorClearsPreviousQuote(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	require.Eventually(t, func() bool {
		return e.State().Quote != nil
	}, 2*time.Second, 10*time.Millisecond)

	qs.setFailing(true)
	require.NoError(t, e.Request("2"))
	require.Eventually(t, func() bool {
		return e.State().Err != nil
	}, 2*time.Second, 10*time.Millisecond)

	s := e.State()
	assert.Nil(t, s.Quote, "an errored fetch must not leave the old quote selectable")

	var upstreamErr *types.UpstreamError
	require.ErrorAs(t, s.Err, &upstreamErr)
	assert.Contains(t, upstreamErr.Message, "no liquidity")
}

func TestSetPairClearsState(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	require.Eventually(t, func() bool {
		return e.State().Quote != nil
	}, 2*time.Second, 10*time.Millisecond)

	e.SetPair(
		types.Currency{Symbol: "BTC", Network: "btc"},
		types.Currency{Symbol: "ETH", Network: "eth"},
	)
	assert.Nil(t, e.State().Quote)
}

func TestSetPairDiscardsInFlightResponse(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()
	qs.delays["1"] = 200 * time.Millisecond

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	// Let the request fire and get stuck in flight, then switch pairs.
	time.Sleep(80 * time.Millisecond)
	e.SetPair(
		types.Currency{Symbol: "BTC", Network: "btc"},
		types.Currency{Symbol: "ETH", Network: "eth"},
	)

	time.Sleep(300 * time.Millisecond)
	s := e.State()
	assert.Nil(t, s.Quote, "the old pair's late response must not become selectable")
	assert.NoError(t, s.Err)
}

func TestClearDiscardsInFlightResponse(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()
	qs.delays["1"] = 200 * time.Millisecond

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, e.Request(""))

	time.Sleep(300 * time.Millisecond)
	s := e.State()
	assert.Nil(t, s.Quote, "a cleared amount must stay cleared when the late response lands")
	assert.NoError(t, s.Err)
}

func TestValidationErrorSurvivesInFlightResponse(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()
	qs.delays["1"] = 200 * time.Millisecond

	e := newTestEngine(qs)

	require.NoError(t, e.Request("1"))
	time.Sleep(80 * time.Millisecond)

	var validationErr *types.ValidationError
	require.ErrorAs(t, e.Request("abc"), &validationErr)

	time.Sleep(300 * time.Millisecond)
	s := e.State()
	assert.Nil(t, s.Quote)
	assert.ErrorAs(t, s.Err, &validationErr, "the late success must not overwrite the newer validation error")
}

func TestNetworkRemap(t *testing.T) {
	qs := newQuoteServer()
	defer qs.Close()

	e := NewEngine(client.New(qs.URL, "test-key"))
	e.SetPair(
		types.Currency{Symbol: "BNB", Network: "bsc"},
		types.Currency{Symbol: "AVAX", Network: "avax"},
	)

	_, err := e.Fetch(context.Background(), "1")
	require.NoError(t, err)

	qs.mu.Lock()
	defer qs.mu.Unlock()
	require.Len(t, qs.requests, 1)
	assert.Equal(t, "bep20", qs.requests[0].FromNetwork)
	assert.Equal(t, "cchain", qs.requests[0].ToNetwork)
}

func TestRemapNetwork(t *testing.T) {
	assert.Equal(t, "cchain", RemapNetwork("avax"))
	assert.Equal(t, "bep20", RemapNetwork("BSC"))
	assert.Equal(t, "sol", RemapNetwork("sol"))
}

func TestFallbackFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.QuoteResponse{
			FromAmount: "100",
			ToAmount:   "0.5",
			ExpiresIn:  60,
			Signature:  "sig123",
		})
	}))
	defer server.Close()

	e := NewEngine(client.New(server.URL, "test-key"))
	e.SetPair(
		types.Currency{Symbol: "USDT", Network: "trx"},
		types.Currency{Symbol: "ETH", Network: "eth"},
	)

	q, err := e.Fetch(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "0.1", q.NetworkFee)
	assert.True(t, q.EstimatedFee)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1.5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	_, err = ParseAmount("abc")
	var validationErr *types.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = ParseAmount("-1")
	assert.ErrorAs(t, err, &validationErr)
}
