package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cross-swap",
	Short: "A CLI for cross-chain currency swaps",
	Long: `cross-swap is a command-line tool for swapping currencies across
blockchains through the swap provider API: browse supported currencies,
fetch price quotes, execute swaps, fund them from a configured wallet,
and track them until completion.

Examples:
  cross-swap currencies --from SOL/sol
  cross-swap quote 1 SOL/sol to ETH/eth
  cross-swap swap 1 SOL/sol to ETH/eth --recipient 0xabc... --refund-to <sol-addr>
  cross-swap status <transaction-id> --watch`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
