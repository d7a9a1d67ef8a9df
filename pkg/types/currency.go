package types

import "strings"

// Currency is a swappable asset on a specific network. Identity is the
// (symbol, network) pair; ID is the derived composite key.
type Currency struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	Network          string `json:"network"`
	NetworkName      string `json:"network_name"`
	DisplayName      string `json:"display_name"`
	ImageURL         string `json:"image_url"`
	RequiresExtraTag bool   `json:"requires_extra_tag"`
}

// CurrencyID derives the composite key for a (symbol, network) pair.
func CurrencyID(symbol, network string) string {
	return strings.ToLower(symbol) + "-" + strings.ToLower(network)
}

// Key returns the currency's composite id, deriving it if unset.
func (c Currency) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return CurrencyID(c.Symbol, c.Network)
}

// Pair is a directed swap relation between two (currency, network) tuples.
// Direction reversal is only legal when the reverse pair exists and is
// enabled.
type Pair struct {
	FromCurrency string `json:"from_currency"`
	FromNetwork  string `json:"from_network"`
	ToCurrency   string `json:"to_currency"`
	ToNetwork    string `json:"to_network"`
	Enabled      bool   `json:"enabled"`
}

// Matches reports whether the pair goes from (fromSym, fromNet) to
// (toSym, toNet), case-insensitively.
func (p Pair) Matches(fromSym, fromNet, toSym, toNet string) bool {
	return strings.EqualFold(p.FromCurrency, fromSym) &&
		strings.EqualFold(p.FromNetwork, fromNet) &&
		strings.EqualFold(p.ToCurrency, toSym) &&
		strings.EqualFold(p.ToNetwork, toNet)
}
