package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/catalog"
	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

var (
	currenciesFrom   string
	currenciesSymbol string
)

var currenciesCmd = &cobra.Command{
	Use:     "currencies",
	Aliases: []string{"ls"},
	Short:   "List supported currencies",
	Long: `List the currencies supported by the swap provider.

With --from, only the valid destination currencies for that source are
shown, derived from the enabled swap pairs.

Examples:
  cross-swap currencies
  cross-swap currencies --from SOL/sol
  cross-swap currencies --symbol USDC`,
	Run: runCurrencies,
}

func init() {
	rootCmd.AddCommand(currenciesCmd)

	currenciesCmd.Flags().StringVar(&currenciesFrom, "from", "", "Source currency (SYMBOL/network); lists valid destinations")
	currenciesCmd.Flags().StringVar(&currenciesSymbol, "symbol", "", "Filter by currency symbol")
}

func runCurrencies(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := client.New(cfg.BaseURL, cfg.APIKey)
	loader := catalog.NewLoader(apiClient)

	seed := catalog.Seed{}
	if currenciesFrom != "" {
		ref := parseCurrencyRef(currenciesFrom)
		seed.FromCurrency = ref.Symbol
		seed.FromNetwork = ref.Network
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Loading currency catalog..."
		s.Start()
	}

	cat, err := loader.Load(context.Background(), seed)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	list := cat.FromCurrencies
	heading := "SUPPORTED CURRENCIES"
	if currenciesFrom != "" {
		list = cat.ToCurrencies
		heading = fmt.Sprintf("DESTINATIONS FOR %s", strings.ToUpper(currenciesFrom))
	}

	if currenciesSymbol != "" {
		var filtered []types.Currency
		for _, c := range list {
			if strings.Contains(strings.ToUpper(c.Symbol), strings.ToUpper(currenciesSymbol)) {
				filtered = append(filtered, c)
			}
		}
		list = filtered
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayCurrencies(list, heading)

	if currenciesFrom != "" {
		if def, ok := catalog.DefaultSelection(list); ok {
			fmt.Printf("Default destination: %s\n\n", color.YellowString("%s/%s", def.Symbol, def.Network))
		}
	}
}

func displayCurrencies(currencies []types.Currency, heading string) {
	if len(currencies) == 0 {
		fmt.Println("\nNo currencies found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("      %s", heading)
	fmt.Println(strings.Repeat("=", 80))

	// Group by network
	byNetwork := make(map[string][]types.Currency)
	for _, c := range currencies {
		byNetwork[c.Network] = append(byNetwork[c.Network], c)
	}

	networks := make([]string, 0, len(byNetwork))
	for network := range byNetwork {
		networks = append(networks, network)
	}
	sort.Strings(networks)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, network := range networks {
		color.Cyan("\n%s", strings.ToUpper(network))
		fmt.Println(strings.Repeat("-", 80))

		for _, c := range byNetwork[network] {
			extra := ""
			if c.RequiresExtraTag {
				extra = "memo/tag required"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n",
				color.YellowString(c.Symbol), c.DisplayName, color.HiBlackString(extra))
		}
		w.Flush()
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("\nTotal: %d currencies across %d networks\n\n", len(currencies), len(networks))
}
