package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"cross-swap/config"
	"cross-swap/pkg/types"
)

// Session owns the process-wide wallet connection: a single writer (the
// connect/disconnect flow) and many readers. It is constructed once at
// the top level and passed down explicitly.
type Session struct {
	cfg config.WalletConfig

	// Approve, when set, is consulted before signing. Returning false
	// reports user rejection, distinct from any network failure.
	Approve func(Transfer) bool
	// Logf receives background progress lines.
	Logf func(format string, args ...interface{})

	mu        sync.RWMutex
	connector Connector

	inFlight atomic.Bool
}

// NewSession creates a wallet session from the configured connectors.
func NewSession(cfg config.WalletConfig) *Session {
	return &Session{
		cfg:  cfg,
		Logf: func(string, ...interface{}) {},
	}
}

// Supports reports whether a connector is configured for the network.
func (s *Session) Supports(network string) bool {
	switch FamilyFor(network) {
	case FamilySolana:
		return s.cfg.Solana.Enabled
	case FamilyEVM:
		if !s.cfg.EVM.Enabled {
			return false
		}
		_, ok := s.cfg.EVM.Networks[strings.ToLower(network)]
		return ok
	default:
		return false
	}
}

// ConnectFor establishes the connector for the source network's wallet
// family, replacing any previous connection.
func (s *Session) ConnectFor(ctx context.Context, network string) error {
	var (
		connector Connector
		err       error
	)
	switch FamilyFor(network) {
	case FamilySolana:
		if !s.cfg.Solana.Enabled {
			return &types.WalletError{Reason: types.WalletNotConnected, Detail: "Solana wallet not configured"}
		}
		connector, err = NewSolanaConnector(s.cfg.Solana)
	case FamilyEVM:
		if !s.cfg.EVM.Enabled {
			return &types.WalletError{Reason: types.WalletNotConnected, Detail: "EVM wallet not configured"}
		}
		connector, err = NewEVMConnector(s.cfg.EVM, strings.ToLower(network))
	default:
		return &types.WalletError{Reason: types.WalletNotConnected, Detail: fmt.Sprintf("no wallet support for network %q", network)}
	}
	if err != nil {
		return &types.WalletError{Reason: types.WalletNotConnected, Err: err}
	}
	if err := connector.Connect(ctx); err != nil {
		return &types.WalletError{Reason: types.WalletNotConnected, Err: err}
	}

	s.mu.Lock()
	if s.connector != nil {
		s.connector.Disconnect()
	}
	s.connector = connector
	s.mu.Unlock()
	return nil
}

// Disconnect tears down the current connection, if any.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connector != nil {
		s.connector.Disconnect()
		s.connector = nil
	}
}

// IsConnected reports whether a wallet is connected.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connector != nil && s.connector.IsConnected()
}

// UserAccount returns the connected account address, or empty.
func (s *Session) UserAccount() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connector == nil {
		return ""
	}
	return s.connector.UserAccount()
}

// Network returns the connected wallet's network, or empty.
func (s *Session) Network() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connector == nil {
		return ""
	}
	return s.connector.Network()
}

// SendTransaction funds the swap's deposit address on chain. Only legal
// when the swap's source network matches the connected wallet's network.
// Duplicate calls while one submission is in flight are rejected, since
// a double submission would double-spend funds.
func (s *Session) SendTransaction(ctx context.Context, tx types.Transaction) (Outcome, error) {
	s.mu.RLock()
	connector := s.connector
	s.mu.RUnlock()

	if connector == nil || !connector.IsConnected() {
		return Outcome{}, &types.WalletError{Reason: types.WalletNotConnected}
	}
	if !networkMatches(connector.Network(), tx.FromNetwork) {
		return Outcome{}, &types.WalletError{
			Reason: types.WalletWrongNetwork,
			Detail: fmt.Sprintf("wallet is on %s, swap funds from %s", connector.Network(), tx.FromNetwork),
		}
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, &types.WalletError{Reason: types.WalletBusy}
	}
	defer s.inFlight.Store(false)

	transfer := Transfer{
		DepositAddress: tx.DepositAddress,
		DepositExtraID: tx.DepositExtraID,
		Amount:         tx.FromAmount,
		Network:        tx.FromNetwork,
	}

	if s.Approve != nil && !s.Approve(transfer) {
		return Outcome{}, &types.WalletError{Reason: types.WalletUserRejected}
	}

	s.Logf("sending %s to deposit address %s", transfer.Amount, transfer.DepositAddress)
	return connector.SendTransaction(ctx, transfer)
}

// networkAliases folds the known code variants onto one canonical form.
var networkAliases = map[string]string{
	"solana":  "sol",
	"bep20":   "bsc",
	"cchain":  "avax",
	"polygon": "matic",
}

func canonicalNetwork(code string) string {
	code = strings.ToLower(code)
	if canon, ok := networkAliases[code]; ok {
		return canon
	}
	return code
}

// networkMatches treats alias pairs (sol/solana, bsc/bep20, avax/cchain)
// as the same network.
func networkMatches(a, b string) bool {
	return canonicalNetwork(a) == canonicalNetwork(b)
}

// connectorForTest swaps in a connector directly. Test hook.
func (s *Session) connectorForTest(c Connector) {
	s.mu.Lock()
	s.connector = c
	s.mu.Unlock()
}
