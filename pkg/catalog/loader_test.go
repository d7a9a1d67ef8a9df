package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

const catalogInfoBody = `{
	"currencies": [
		{"code": "SOL", "name": "Solana", "imageUrl": "https://img/sol.svg"},
		{"code": "ETH", "name": "Ethereum", "imageUrl": "https://img/eth.svg"},
		{"code": "USDT", "name": "Tether", "requiresExtraTag": false},
		{"code": "XRP", "name": "Ripple", "requiresExtraTag": true}
	],
	"networks": [
		{"code": "sol", "name": "Solana"},
		{"code": "eth", "name": "Ethereum"},
		{"code": "trx", "name": "Tron"},
		{"code": "xrp", "name": "Ripple"}
	]
}`

const catalogPairsBody = `{
	"pairs": [
		{"fromCurrency": "SOL", "fromNetwork": "sol", "toCurrency": "ETH", "toNetwork": "eth", "isEnabled": true},
		{"fromCurrency": "SOL", "fromNetwork": "sol", "toCurrency": "USDT", "toNetwork": "trx", "isEnabled": true},
		{"fromCurrency": "SOL", "fromNetwork": "sol", "toCurrency": "USDT", "toNetwork": "trx", "isEnabled": true},
		{"fromCurrency": "SOL", "fromNetwork": "sol", "toCurrency": "XYZ", "toNetwork": "xyz", "isEnabled": true},
		{"fromCurrency": "SOL", "fromNetwork": "sol", "toCurrency": "XRP", "toNetwork": "xrp", "isEnabled": false},
		{"fromCurrency": "ETH", "fromNetwork": "eth", "toCurrency": "SOL", "toNetwork": "sol", "isEnabled": true},
		{"fromCurrency": "BTC", "fromNetwork": "btc", "toCurrency": "SOL", "toNetwork": "sol", "isEnabled": true}
	]
}`

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/currencies/info":
			w.Write([]byte(catalogInfoBody))
		case "/currencies/pairs":
			w.Write([]byte(catalogPairsBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLoad(t *testing.T) {
	server := newCatalogServer(t)
	defer server.Close()

	loader := NewLoader(client.New(server.URL, "test-key"))
	cat, err := loader.Load(context.Background(), Seed{FromCurrency: "SOL", FromNetwork: "sol"})
	require.NoError(t, err)
	require.Same(t, cat, loader.Current())

	fromIDs := currencyIDs(cat.FromCurrencies)
	// Seed plus every enabled pair source with known metadata. BTC has no
	// currency entry so its pair is dropped.
	assert.ElementsMatch(t, []string{"sol-sol", "eth-eth"}, fromIDs)

	toIDs := currencyIDs(cat.ToCurrencies)
	// USDT/trx deduplicated, XYZ unknown, XRP pair disabled.
	assert.ElementsMatch(t, []string{"eth-eth", "usdt-trx"}, toIDs)

	for _, c := range cat.FromCurrencies {
		if c.ID == "sol-sol" {
			assert.Equal(t, "SOL", c.Symbol)
			assert.Equal(t, "Solana", c.DisplayName)
			assert.Equal(t, "Solana", c.NetworkName)
		}
	}
}

func TestLoadDefaultsSeed(t *testing.T) {
	server := newCatalogServer(t)
	defer server.Close()

	loader := NewLoader(client.New(server.URL, "test-key"))
	cat, err := loader.Load(context.Background(), Seed{})
	require.NoError(t, err)

	// With no seed the catalog is scoped to ETH/eth.
	assert.ElementsMatch(t, []string{"sol-sol"}, currencyIDs(cat.ToCurrencies))
}

func TestLoadSingleFailureFailsWholeLoad(t *testing.T) {
	var pairCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/currencies/info":
			w.Write([]byte(catalogInfoBody))
		case "/currencies/pairs":
			pairCalls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	loader := NewLoader(client.New(server.URL, "test-key"))
	_, err := loader.Load(context.Background(), Seed{FromCurrency: "SOL", FromNetwork: "sol"})
	require.Error(t, err)
	assert.Positive(t, pairCalls.Load())
	assert.Nil(t, loader.Current(), "failed load must not install a partial catalog")
}

func TestLoadFailureKeepsPreviousSnapshot(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case "/currencies/info":
			w.Write([]byte(catalogInfoBody))
		case "/currencies/pairs":
			w.Write([]byte(catalogPairsBody))
		}
	}))
	defer server.Close()

	loader := NewLoader(client.New(server.URL, "test-key"))
	first, err := loader.Load(context.Background(), Seed{FromCurrency: "SOL", FromNetwork: "sol"})
	require.NoError(t, err)

	fail.Store(true)
	_, err = loader.Load(context.Background(), Seed{FromCurrency: "ETH", FromNetwork: "eth"})
	require.Error(t, err)
	assert.Same(t, first, loader.Current())
}

func TestReverseAllowed(t *testing.T) {
	server := newCatalogServer(t)
	defer server.Close()

	loader := NewLoader(client.New(server.URL, "test-key"))
	_, err := loader.Load(context.Background(), Seed{FromCurrency: "SOL", FromNetwork: "sol"})
	require.NoError(t, err)

	sol := types.Currency{Symbol: "SOL", Network: "sol"}
	eth := types.Currency{Symbol: "ETH", Network: "eth"}
	usdt := types.Currency{Symbol: "USDT", Network: "trx"}

	// ETH/eth -> SOL/sol exists and is enabled, so SOL->ETH can reverse.
	assert.NoError(t, loader.ReverseAllowed(sol, eth))

	// No USDT/trx -> SOL/sol pair.
	err = loader.ReverseAllowed(sol, usdt)
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestReverseAllowedBeforeLoad(t *testing.T) {
	loader := NewLoader(client.New("http://unused", "test-key"))
	err := loader.ReverseAllowed(types.Currency{Symbol: "SOL", Network: "sol"}, types.Currency{Symbol: "ETH", Network: "eth"})
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestDefaultSelection(t *testing.T) {
	eth := types.Currency{ID: "eth-eth", Symbol: "ETH", Network: "eth"}
	sol := types.Currency{ID: "sol-sol", Symbol: "SOL", Network: "sol"}

	got, ok := DefaultSelection([]types.Currency{sol, eth})
	require.True(t, ok)
	assert.Equal(t, "eth-eth", got.ID)

	got, ok = DefaultSelection([]types.Currency{sol})
	require.True(t, ok)
	assert.Equal(t, "sol-sol", got.ID)

	_, ok = DefaultSelection(nil)
	assert.False(t, ok)
}

func currencyIDs(list []types.Currency) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}
