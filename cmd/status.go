package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cross-swap/config"
	"cross-swap/pkg/client"
	"cross-swap/pkg/swap"
	"cross-swap/pkg/types"
)

var (
	statusWatch    bool
	statusInterval time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [transaction-id]",
	Short: "Show the status of a swap transaction",
	Long: `Fetch the current status of a swap transaction from the provider.

Without an id, the last executed swap recorded in the session state file
is resumed, so a restarted shell can pick up tracking where it left off.
With --watch, the status is re-fetched every interval until the swap
completes or fails.

Examples:
  cross-swap status
  cross-swap status a1b2c3
  cross-swap status a1b2c3 --watch --interval 30s`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Keep polling until the swap completes or fails")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", swap.DefaultPollInterval, "Poll interval for --watch")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store, err := swap.NewStore(cfg.StatePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		id = store.ActiveID()
		if id == "" {
			printError(fmt.Errorf("no transaction id given and no previous swap recorded"))
			os.Exit(1)
		}
		if !jsonOutput {
			fmt.Printf("\nResuming last swap %s\n", color.YellowString(id))
		}
	}

	apiClient := client.New(cfg.BaseURL, cfg.APIKey)

	if statusWatch {
		watchTransaction(apiClient, store, id, jsonOutput)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), client.CatalogTimeout)
	defer cancel()
	tx, err := apiClient.Status(ctx, id)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	_ = store.Record(*tx)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(tx, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayTransaction(tx)
	fmt.Println()
}

// watchTransaction polls the transaction until a terminal status or
// Ctrl-C. Terminal statuses stop the poller on their own.
func watchTransaction(apiClient *client.Client, store *swap.Store, id string, jsonOutput bool) {
	interval := statusInterval
	if interval <= 0 {
		interval = swap.DefaultPollInterval
	}

	terminal := make(chan types.Transaction, 1)

	tracker := swap.NewTracker(apiClient, store, swap.WithPollInterval(interval))
	tracker.OnStatus = func(tx types.Transaction) {
		if jsonOutput {
			jsonData, _ := json.Marshal(tx)
			fmt.Println(string(jsonData))
		} else {
			fmt.Printf("[%s] %s  status: %s\n",
				time.Now().Format("15:04:05"), tx.ID, colorStatus(tx.Status))
		}
		if tx.Status.Terminal() {
			terminal <- tx
		}
	}
	if jsonOutput {
		tracker.Logf = func(string, ...interface{}) {}
	}

	if !jsonOutput {
		fmt.Printf("\nWatching %s every %s (Ctrl-C to stop)...\n\n", id, interval)
	}
	tracker.Track(id)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case tx := <-terminal:
		tracker.Stop()
		if !jsonOutput {
			fmt.Println()
			displayTransaction(&tx)
			fmt.Println()
		}
		if tx.Status == types.StatusFailed {
			os.Exit(1)
		}
	case <-sigs:
		tracker.Stop()
		if !jsonOutput {
			fmt.Println("\nStopped watching. The swap continues upstream.")
		}
	}
}
