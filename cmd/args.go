package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"cross-swap/pkg/catalog"
	"cross-swap/pkg/types"
)

// swapArgs is a parsed "<amount> <FROM> to <TO>" command line.
type swapArgs struct {
	Amount string
	From   currencyRef
	To     currencyRef
}

// currencyRef is a SYMBOL or SYMBOL/network token from the command line.
type currencyRef struct {
	Symbol  string
	Network string
}

var swapArgPattern = regexp.MustCompile(`^(?:(\d*\.?\d+|\d+\.?\d*)\s+)?([A-Za-z0-9/]+)\s+(?:to|TO|To)\s+([A-Za-z0-9/]+)$`)

// parseSwapArgs parses the positional swap arguments. The amount is
// optional; callers that need one check for it.
// Examples: "1 SOL/sol to ETH/eth", "0.5 BTC to USDT/trx", "SOL to ETH".
func parseSwapArgs(args []string) (*swapArgs, error) {
	joined := strings.TrimSpace(strings.Join(args, " "))

	matches := swapArgPattern.FindStringSubmatch(joined)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap format. Expected: '<amount> <currency> to <currency>' (e.g., '1 SOL/sol to ETH/eth')")
	}

	return &swapArgs{
		Amount: matches[1],
		From:   parseCurrencyRef(matches[2]),
		To:     parseCurrencyRef(matches[3]),
	}, nil
}

func parseCurrencyRef(token string) currencyRef {
	parts := strings.SplitN(token, "/", 2)
	ref := currencyRef{Symbol: strings.ToUpper(parts[0])}
	if len(parts) > 1 {
		ref.Network = strings.ToLower(parts[1])
	}
	return ref
}

// resolve finds the referenced currency in the list, matching by symbol
// and, when given, network.
func (r currencyRef) resolve(list []types.Currency) (types.Currency, error) {
	for _, c := range list {
		if !strings.EqualFold(c.Symbol, r.Symbol) {
			continue
		}
		if r.Network == "" || strings.EqualFold(c.Network, r.Network) {
			return c, nil
		}
	}
	if r.Network != "" {
		return types.Currency{}, fmt.Errorf("currency '%s' on network '%s' is not supported", r.Symbol, r.Network)
	}
	return types.Currency{}, fmt.Errorf("currency '%s' is not supported", r.Symbol)
}

// seedFor builds the catalog seed for a parsed argument pair.
func (a *swapArgs) seedFor() catalog.Seed {
	return catalog.Seed{
		FromCurrency: a.From.Symbol,
		FromNetwork:  a.From.Network,
		ToCurrency:   a.To.Symbol,
		ToNetwork:    a.To.Network,
	}
}
