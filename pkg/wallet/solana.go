package wallet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"cross-swap/config"
	"cross-swap/pkg/types"
)

const (
	// lamportsPerSOL is the native unit scale.
	lamportsPerSOL = 1e9
	// solanaFeeLamports is the flat per-signature fee reserved on top of
	// the transfer amount.
	solanaFeeLamports = 5000

	confirmInterval = 2 * time.Second
	confirmTimeout  = 60 * time.Second
)

// SolanaConnector is the chain-native transfer wallet: it signs and
// submits a system transfer to the deposit address and polls the RPC for
// confirmation.
type SolanaConnector struct {
	cfg        config.SolanaConfig
	client     *rpc.Client
	fallback   *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	connected  bool
}

// NewSolanaConnector creates a Solana connector from config.
func NewSolanaConnector(cfg config.SolanaConfig) (*SolanaConnector, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}
	return &SolanaConnector{cfg: cfg}, nil
}

// Connect parses the key material and opens the RPC clients.
func (s *SolanaConnector) Connect(ctx context.Context) error {
	privateKey, err := solana.PrivateKeyFromBase58(s.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	s.privateKey = privateKey
	s.publicKey = privateKey.PublicKey()
	s.client = rpc.New(s.cfg.RPCUrl)
	if s.cfg.FallbackRPCUrl != "" {
		s.fallback = rpc.New(s.cfg.FallbackRPCUrl)
	}
	s.connected = true
	return nil
}

// Disconnect drops the connection state.
func (s *SolanaConnector) Disconnect() {
	s.connected = false
	s.client = nil
	s.fallback = nil
}

// IsConnected reports whether Connect succeeded.
func (s *SolanaConnector) IsConnected() bool { return s.connected }

// UserAccount returns the wallet's public key in base58.
func (s *SolanaConnector) UserAccount() string {
	if !s.connected {
		return ""
	}
	return s.publicKey.String()
}

// Network returns the connector's network code.
func (s *SolanaConnector) Network() string { return "sol" }

// SendTransaction builds, signs, and broadcasts a native transfer of the
// exact amount to the deposit address, then waits for confirmation.
func (s *SolanaConnector) SendTransaction(ctx context.Context, transfer Transfer) (Outcome, error) {
	if !s.connected {
		return Outcome{}, &types.WalletError{Reason: types.WalletNotConnected}
	}

	recipient, err := solana.PublicKeyFromBase58(transfer.DepositAddress)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "invalid deposit address", Err: err}
	}

	amountFloat, err := strconv.ParseFloat(transfer.Amount, 64)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "invalid amount", Err: err}
	}
	lamports := uint64(amountFloat * lamportsPerSOL)

	balance, err := s.client.GetBalance(ctx, s.publicKey, rpc.CommitmentFinalized)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to get balance", Err: err}
	}
	minRequired := lamports + solanaFeeLamports
	if balance.Value < minRequired {
		return Outcome{}, &types.WalletError{
			Reason: types.WalletInsufficientBalance,
			Detail: fmt.Sprintf("have %.9f SOL, need %.9f SOL (including fees)",
				float64(balance.Value)/lamportsPerSOL, float64(minRequired)/lamportsPerSOL),
		}
	}

	blockhash, err := s.recentBlockhash(ctx)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to get recent blockhash", Err: err}
	}

	instruction := system.NewTransferInstruction(lamports, s.publicKey, recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to build transaction", Err: err}
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to sign transaction", Err: err}
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.cfg.SkipPreflight,
		PreflightCommitment: s.commitment(),
	})
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to send transaction", Err: err}
	}

	return s.awaitConfirmation(ctx, sig)
}

// recentBlockhash asks the configured RPC first and falls back to the
// provider endpoint when the primary call fails.
func (s *SolanaConnector) recentBlockhash(ctx context.Context) (solana.Hash, error) {
	recent, err := s.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err == nil {
		return recent.Value.Blockhash, nil
	}
	if s.fallback != nil {
		recent, fallbackErr := s.fallback.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
		if fallbackErr == nil {
			return recent.Value.Blockhash, nil
		}
	}
	return solana.Hash{}, err
}

// awaitConfirmation polls signature status until the transaction
// confirms, errors, or the window elapses. A timeout yields a pending
// outcome, never a failure, since the transaction may still confirm.
func (s *SolanaConnector) awaitConfirmation(ctx context.Context, sig solana.Signature) (Outcome, error) {
	deadline := time.Now().Add(confirmTimeout)
	ticker := time.NewTicker(confirmInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return Outcome{TxHash: sig.String(), Status: ConfirmPending}, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{TxHash: sig.String(), Status: ConfirmPending}, nil
		case <-ticker.C:
		}

		statuses, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil || statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}
		status := statuses.Value[0]
		if status.Err != nil {
			return Outcome{TxHash: sig.String()}, &types.WalletError{
				Reason: types.WalletTxFailed,
				Detail: fmt.Sprintf("transaction failed on chain: %v", status.Err),
			}
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return Outcome{TxHash: sig.String(), Status: ConfirmConfirmed}, nil
		}
	}
}

func (s *SolanaConnector) commitment() rpc.CommitmentType {
	switch strings.ToLower(s.cfg.Commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
