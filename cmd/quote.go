package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/catalog"
	"cross-swap/pkg/client"
	"cross-swap/pkg/quote"
	"cross-swap/pkg/types"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [amount] <from-currency> to <to-currency>",
	Short: "Fetch a price quote for a swap",
	Long: `Fetch a signed price quote for a currency pair without executing
anything. Omitting the amount seeds it with roughly $100 worth of the
source currency.

Examples:
  cross-swap quote 1 SOL/sol to ETH/eth
  cross-swap quote SOL/sol to ETH/eth
  cross-swap quote 0.05 BTC/btc to USDT/trx --json`,
	Args: cobra.MinimumNArgs(3),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	parsed, err := parseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := client.New(cfg.BaseURL, cfg.APIKey)
	from, to, err := resolvePair(apiClient, parsed, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	engine := quote.NewEngine(apiClient)
	engine.SetPair(from, to)

	amount := parsed.Amount
	if amount == "" {
		amount = quote.NewPricer(cfg.PriceAPIURL).RecommendedAmount(context.Background(), from.Symbol)
		if verbose {
			fmt.Printf("\nDebug: seeding recommended amount %s %s\n", amount, from.Symbol)
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	q, err := engine.Fetch(context.Background(), amount)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(q, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displaySwapQuote(q)
}

// resolvePair loads the catalog scoped to the parsed source currency and
// resolves both sides against it.
func resolvePair(apiClient *client.Client, parsed *swapArgs, quietSpinner bool) (types.Currency, types.Currency, error) {
	loader := catalog.NewLoader(apiClient)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !quietSpinner {
		s.Suffix = " Loading currency catalog..."
		s.Start()
	}
	cat, err := loader.Load(context.Background(), parsed.seedFor())
	if !quietSpinner {
		s.Stop()
	}
	if err != nil {
		return types.Currency{}, types.Currency{}, err
	}

	from, err := parsed.From.resolve(cat.FromCurrencies)
	if err != nil {
		return types.Currency{}, types.Currency{}, err
	}
	to, err := parsed.To.resolve(cat.ToCurrencies)
	if err != nil {
		return types.Currency{}, types.Currency{}, fmt.Errorf("%w (no enabled pair from %s/%s)", err, from.Symbol, from.Network)
	}
	return from, to, nil
}

func displaySwapQuote(q *types.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:          %s %s\n", q.FromAmount, color.YellowString("%s/%s", q.FromCurrency, q.FromNetwork))
	fmt.Printf("  To:            ~%s %s\n", q.ToAmount, color.YellowString("%s/%s", q.ToCurrency, q.ToNetwork))
	fee := q.NetworkFee
	if q.EstimatedFee {
		fee += " (estimated)"
	}
	fmt.Printf("  Network Fee:   %s\n", fee)
	fmt.Printf("  Expires:       %s\n", q.ExpiresAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
