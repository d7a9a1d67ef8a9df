package cmd

import (
	"bufio"
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
	"cross-swap/pkg/client"
	"cross-swap/pkg/quote"
	"cross-swap/pkg/swap"
	"cross-swap/pkg/types"
	"cross-swap/pkg/wallet"
)

var (
	swapRecipient    string
	swapRefundTo     string
	swapRecipientTag string
	swapRefundTag    string
	swapSend         bool
	swapWatch        bool
	swapSkipConfirm  bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-currency> to <to-currency>",
	Short: "Execute a cross-chain swap",
	Long: `Quote and execute a swap. The quote is shown for confirmation before
anything is committed; once executed, the swap exists upstream and the
deposit address must be funded within the deposit window.

With --send and a configured wallet for the source network, the deposit
is funded automatically from that wallet. With --watch, the command keeps
polling the transaction status until it completes or fails.

Examples:
  cross-swap swap 1 SOL/sol to ETH/eth --recipient 0xabc...
  cross-swap swap 0.5 ETH/eth to USDT/trx --recipient T... --refund-to 0xdef...
  cross-swap swap 1 SOL/sol to ETH/eth --recipient 0xabc... --send --watch`,
	Args: cobra.MinimumNArgs(3),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapRecipient, "recipient", "", "Destination wallet address (required)")
	swapCmd.Flags().StringVar(&swapRefundTo, "refund-to", "", "Refund address on the source network (defaults to the connected wallet)")
	swapCmd.Flags().StringVar(&swapRecipientTag, "recipient-tag", "", "Destination memo/tag, if the currency requires one")
	swapCmd.Flags().StringVar(&swapRefundTag, "refund-tag", "", "Refund memo/tag, if the currency requires one")
	swapCmd.Flags().BoolVar(&swapSend, "send", false, "Fund the deposit address from the configured wallet")
	swapCmd.Flags().BoolVar(&swapWatch, "watch", false, "Keep polling status until the swap completes or fails")
	swapCmd.Flags().BoolVarP(&swapSkipConfirm, "yes", "y", false, "Skip the confirmation prompt")

	swapCmd.MarkFlagRequired("recipient")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	parsed, err := parseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if parsed.Amount == "" {
		printError(&types.ValidationError{Field: "amount", Reason: "must be given for swap"})
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

	// Connect the wallet up front when it is needed, either to fund the
	// deposit or to default the refund address.
	session := wallet.NewSession(cfg.Wallet)
	if verbose {
		session.Logf = func(format string, a ...interface{}) {
			fmt.Printf("[wallet] "+format+"\n", a...)
		}
	}
	if swapSend || swapRefundTo == "" {
		if session.Supports(from.Network) {
			if err := session.ConnectFor(context.Background(), from.Network); err != nil {
				if swapSend {
					printError(err)
					os.Exit(1)
				}
				if verbose {
					fmt.Printf("Debug: wallet connect failed: %v\n", err)
				}
			}
		} else if swapSend {
			printError(&types.WalletError{
				Reason: types.WalletNotConnected,
				Detail: fmt.Sprintf("no wallet configured for network %s", from.Network),
			})
			os.Exit(1)
		}
	}
	defer session.Disconnect()

	engine := quote.NewEngine(apiClient)
	engine.SetPair(from, to)
	if session.IsConnected() {
		engine.SetFromWalletAddress(session.UserAccount())
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	q, err := engine.Fetch(context.Background(), parsed.Amount)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displaySwapQuote(q)
	}

	if !swapSkipConfirm && !jsonOutput {
		if !confirm(fmt.Sprintf("Swap %s %s for ~%s %s?", q.FromAmount, q.FromCurrency, q.ToAmount, q.ToCurrency)) {
			fmt.Println("\nSwap cancelled.")
			return
		}
	}

	store, err := swap.NewStore(cfg.StatePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	controller := swap.NewController(apiClient, store, session)
	tx, err := controller.Execute(context.Background(), q, swap.ExecuteParams{
		ToWalletAddress:          swapRecipient,
		RefundWalletAddress:      swapRefundTo,
		ToWalletAddressExtra:     swapRecipientTag,
		RefundWalletAddressExtra: swapRefundTag,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(tx, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTransaction(tx)
	}

	if swapSend {
		outcome, err := fundDeposit(session, tx, jsonOutput)
		if err != nil {
			printError(err)
			fmt.Printf("The swap still exists; fund %s manually to proceed.\n\n", tx.DepositAddress)
			os.Exit(1)
		}
		if !jsonOutput {
			switch outcome.Status {
			case wallet.ConfirmConfirmed:
				color.Green("\nDeposit confirmed on chain: %s\n", outcome.TxHash)
			default:
				color.Yellow("\nDeposit submitted, confirmation still pending: %s\n", outcome.TxHash)
			}
		}
	} else if !jsonOutput {
		color.Yellow("\nSend exactly %s %s to the deposit address above to start the swap.", tx.FromAmount, tx.FromCurrency)
		if tx.DepositExtraID != "" {
			color.Yellow("Include the memo/tag %s or the deposit cannot be credited.", tx.DepositExtraID)
		}
		fmt.Println()
	}

	if swapWatch {
		watchTransaction(apiClient, store, tx.ID, jsonOutput)
	} else if !jsonOutput {
		fmt.Printf("Track progress with: cross-swap status %s --watch\n\n", tx.ID)
	}
}

// fundDeposit sends the deposit amount from the connected wallet.
func fundDeposit(session *wallet.Session, tx *types.Transaction, jsonOutput bool) (wallet.Outcome, error) {
	if !jsonOutput {
		session.Approve = func(t wallet.Transfer) bool {
			return confirm(fmt.Sprintf("Send %s from your wallet to %s?", t.Amount, t.DepositAddress))
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Sending deposit transaction..."
		s.Start()
	}
	outcome, err := session.SendTransaction(context.Background(), *tx)
	if !jsonOutput {
		s.Stop()
	}
	return outcome, err
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func displayTransaction(tx *types.Transaction) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  SWAP TRANSACTION")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  ID:              %s\n", color.YellowString(tx.ID))
	fmt.Printf("  Status:          %s\n", colorStatus(tx.Status))
	fmt.Printf("  From:            %s %s/%s\n", tx.FromAmount, tx.FromCurrency, tx.FromNetwork)
	fmt.Printf("  To:              ~%s %s/%s\n", tx.ToAmount, tx.ToCurrency, tx.ToNetwork)
	fmt.Printf("  Recipient:       %s\n", tx.ToWalletAddress)
	fmt.Printf("  Deposit Address: %s\n", color.CyanString(tx.DepositAddress))
	if tx.DepositExtraID != "" {
		fmt.Printf("  Deposit Memo:    %s\n", color.CyanString(tx.DepositExtraID))
	}
	if tx.CompletedAt != nil {
		fmt.Printf("  Completed At:    %s\n", tx.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func colorStatus(status types.Status) string {
	switch status {
	case types.StatusCompleted:
		return color.GreenString(string(status))
	case types.StatusFailed:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}
