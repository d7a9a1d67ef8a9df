package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

// Default selection when the seed names no currency.
const (
	defaultSymbol  = "ETH"
	defaultNetwork = "eth"
)

// Seed names the currently selected pair used to scope a catalog load.
type Seed struct {
	FromCurrency string
	FromNetwork  string
	ToCurrency   string
	ToNetwork    string
}

// Catalog is one atomically built snapshot of the selectable currency
// sets. It is never partially updated in place.
type Catalog struct {
	FromCurrencies []types.Currency
	ToCurrencies   []types.Currency
	Pairs          []types.Pair
}

// Loader fetches and normalizes the currency catalog. Load replaces the
// current snapshot as a unit; readers always see either the previous or
// the new catalog, never a mix.
type Loader struct {
	client *client.Client

	mu      sync.RWMutex
	current *Catalog
}

// NewLoader creates a catalog loader.
func NewLoader(c *client.Client) *Loader {
	return &Loader{client: c}
}

// Current returns the last successfully loaded catalog, or nil before the
// first Load.
func (l *Loader) Current() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Load fetches currency metadata, network metadata, and pairs in
// parallel and builds a fresh catalog scoped to the seed's "from"
// currency. Any single upstream failure fails the whole load and leaves
// the previous snapshot untouched.
func (l *Loader) Load(ctx context.Context, seed Seed) (*Catalog, error) {
	if seed.FromCurrency == "" {
		seed.FromCurrency = defaultSymbol
		seed.FromNetwork = defaultNetwork
	}

	var (
		wg         sync.WaitGroup
		currencies []client.CurrencyInfo
		networks   []client.NetworkInfo
		pairs      []types.Pair
		curErr     error
		netErr     error
		pairErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		currencies, curErr = l.client.Currencies(ctx, nil)
	}()
	go func() {
		defer wg.Done()
		networks, netErr = l.client.Networks(ctx, nil)
	}()
	go func() {
		defer wg.Done()
		// Unfiltered: the full pair table is needed both for the
		// destination list and for reversal checks.
		pairs, pairErr = l.client.Pairs(ctx, client.PairsRequest{})
	}()
	wg.Wait()

	for _, err := range []error{curErr, netErr, pairErr} {
		if err != nil {
			return nil, fmt.Errorf("catalog load failed: %w", err)
		}
	}

	cat := build(seed, currencies, networks, pairs)

	l.mu.Lock()
	l.current = cat
	l.mu.Unlock()
	return cat, nil
}

// build joins pairs against currency and network metadata. Pairs that
// reference unknown currencies are dropped.
func build(seed Seed, currencies []client.CurrencyInfo, networks []client.NetworkInfo, pairs []types.Pair) *Catalog {
	currencyByCode := make(map[string]client.CurrencyInfo, len(currencies))
	for _, c := range currencies {
		currencyByCode[strings.ToLower(c.Code)] = c
	}
	networkByCode := make(map[string]client.NetworkInfo, len(networks))
	for _, n := range networks {
		networkByCode[strings.ToLower(n.Code)] = n
	}

	makeCurrency := func(symbol, network string) (types.Currency, bool) {
		info, ok := currencyByCode[strings.ToLower(symbol)]
		if !ok {
			return types.Currency{}, false
		}
		cur := types.Currency{
			ID:               types.CurrencyID(symbol, network),
			Symbol:           strings.ToUpper(symbol),
			Network:          strings.ToLower(network),
			DisplayName:      info.Name,
			ImageURL:         info.ImageURL,
			RequiresExtraTag: info.RequiresExtraTag,
		}
		if net, ok := networkByCode[strings.ToLower(network)]; ok {
			cur.NetworkName = net.Name
		}
		return cur, true
	}

	cat := &Catalog{Pairs: pairs}

	// From side: every unique (fromCurrency, fromNetwork) seen in pairs,
	// plus the seed itself so the current selection stays selectable.
	fromSeen := make(map[string]bool)
	addFrom := func(symbol, network string) {
		id := types.CurrencyID(symbol, network)
		if fromSeen[id] {
			return
		}
		if cur, ok := makeCurrency(symbol, network); ok {
			fromSeen[id] = true
			cat.FromCurrencies = append(cat.FromCurrencies, cur)
		}
	}
	addFrom(seed.FromCurrency, seed.FromNetwork)
	for _, p := range pairs {
		if !p.Enabled {
			continue
		}
		addFrom(p.FromCurrency, p.FromNetwork)
	}

	// To side: only tuples reachable from the seed's from-currency
	// through an enabled pair, deduplicated by composite id.
	toSeen := make(map[string]bool)
	for _, p := range pairs {
		if !p.Enabled {
			continue
		}
		if !strings.EqualFold(p.FromCurrency, seed.FromCurrency) || !strings.EqualFold(p.FromNetwork, seed.FromNetwork) {
			continue
		}
		id := types.CurrencyID(p.ToCurrency, p.ToNetwork)
		if toSeen[id] {
			continue
		}
		if cur, ok := makeCurrency(p.ToCurrency, p.ToNetwork); ok {
			toSeen[id] = true
			cat.ToCurrencies = append(cat.ToCurrencies, cur)
		}
	}

	return cat
}

// DefaultSelection picks the default currency from a list: ETH on the
// eth network when present, otherwise the first entry.
func DefaultSelection(list []types.Currency) (types.Currency, bool) {
	for _, c := range list {
		if strings.EqualFold(c.Symbol, defaultSymbol) && strings.EqualFold(c.Network, defaultNetwork) {
			return c, true
		}
	}
	if len(list) > 0 {
		return list[0], true
	}
	return types.Currency{}, false
}

// ReverseAllowed reports whether swapping direction from (from → to) is
// legal, i.e. the reverse pair exists and is enabled in the current
// snapshot.
func (l *Loader) ReverseAllowed(from, to types.Currency) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.current == nil {
		return &types.ValidationError{Reason: "currency catalog not loaded"}
	}
	for _, p := range l.current.Pairs {
		if p.Enabled && p.Matches(to.Symbol, to.Network, from.Symbol, from.Network) {
			return nil
		}
	}
	return &types.ValidationError{
		Reason: fmt.Sprintf("swapping %s/%s to %s/%s is not supported", to.Symbol, to.Network, from.Symbol, from.Network),
	}
}
