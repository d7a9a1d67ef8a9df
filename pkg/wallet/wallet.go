package wallet

import (
	"context"
	"strings"
)

// Family is the wallet capability family a network belongs to.
type Family string

const (
	// FamilySolana covers chain-native transfer wallets (Phantom-style).
	FamilySolana Family = "solana"
	// FamilyEVM covers chain-switching, signing wallets
	// (WalletConnect-style).
	FamilyEVM Family = "evm"
	// FamilyNone marks networks with no wallet support.
	FamilyNone Family = ""
)

// evmNetworks are the network codes handled by the EVM connector.
var evmNetworks = map[string]bool{
	"eth":      true,
	"bsc":      true,
	"bep20":    true,
	"matic":    true,
	"polygon":  true,
	"avax":     true,
	"cchain":   true,
	"arbitrum": true,
	"op":       true,
	"base":     true,
}

// FamilyFor maps a network code to its wallet family.
func FamilyFor(network string) Family {
	switch strings.ToLower(network) {
	case "sol", "solana":
		return FamilySolana
	}
	if evmNetworks[strings.ToLower(network)] {
		return FamilyEVM
	}
	return FamilyNone
}

// Transfer is the on-chain funding leg of a swap: the exact quoted
// amount sent to the provider's deposit address.
type Transfer struct {
	DepositAddress string
	DepositExtraID string
	Amount         string
	Network        string
}

// ConfirmStatus is the outcome of waiting for chain confirmation.
type ConfirmStatus string

const (
	// ConfirmConfirmed means the transaction confirmed on chain.
	ConfirmConfirmed ConfirmStatus = "confirmed"
	// ConfirmPending means the confirmation window elapsed without a
	// result. The transaction may still confirm later, so a timeout is
	// never reported as failure.
	ConfirmPending ConfirmStatus = "pending"
)

// Outcome reports a broadcast funding transaction.
type Outcome struct {
	TxHash string
	Status ConfirmStatus
}

// Connector is the capability interface both wallet variants implement.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	UserAccount() string
	Network() string
	SendTransaction(ctx context.Context, transfer Transfer) (Outcome, error)
}
