package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"cross-swap/config"
	"cross-swap/pkg/types"
)

const nativeTransferGas = uint64(21000)

// EVMConnector is the signing wallet for EVM networks. It refuses to
// send when the node's chain id differs from the configured network,
// the switch-network analog.
type EVMConnector struct {
	cfg        config.EVMNetwork
	network    string
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	account    common.Address
	connected  bool
}

// NewEVMConnector creates an EVM connector for the named network.
func NewEVMConnector(cfg config.EVMConfig, networkName string) (*EVMConnector, error) {
	network, exists := cfg.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not configured", networkName)
	}
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", networkName)
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for network %s", networkName)
	}
	return &EVMConnector{cfg: network, network: networkName}, nil
}

// Connect dials the RPC endpoint and derives the account address.
func (e *EVMConnector) Connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, e.cfg.RPCUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(e.cfg.PrivateKey, "0x"))
	if err != nil {
		client.Close()
		return fmt.Errorf("invalid private key: %w", err)
	}

	e.client = client
	e.privateKey = privateKey
	e.account = crypto.PubkeyToAddress(privateKey.PublicKey)
	e.connected = true
	return nil
}

// Disconnect closes the RPC connection.
func (e *EVMConnector) Disconnect() {
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	e.connected = false
}

// IsConnected reports whether Connect succeeded.
func (e *EVMConnector) IsConnected() bool { return e.connected }

// UserAccount returns the wallet's checksummed address.
func (e *EVMConnector) UserAccount() string {
	if !e.connected {
		return ""
	}
	return e.account.Hex()
}

// Network returns the connector's network code.
func (e *EVMConnector) Network() string { return e.network }

// SendTransaction signs and broadcasts a native transfer of the exact
// amount to the deposit address, then waits for the receipt.
func (e *EVMConnector) SendTransaction(ctx context.Context, transfer Transfer) (Outcome, error) {
	if !e.connected {
		return Outcome{}, &types.WalletError{Reason: types.WalletNotConnected}
	}
	if !common.IsHexAddress(transfer.DepositAddress) {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: fmt.Sprintf("invalid deposit address: %s", transfer.DepositAddress)}
	}

	// The node must actually be on the configured chain before anything
	// is signed against its id.
	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to read chain id", Err: err}
	}
	if chainID.Int64() != e.cfg.ChainID {
		return Outcome{}, &types.WalletError{
			Reason: types.WalletWrongNetwork,
			Detail: fmt.Sprintf("node reports chain %d, configured chain is %d", chainID.Int64(), e.cfg.ChainID),
		}
	}

	amountWei, err := parseAmount(transfer.Amount)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "invalid amount", Err: err}
	}

	balance, err := e.client.BalanceAt(ctx, e.account, nil)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to get balance", Err: err}
	}
	if balance.Cmp(amountWei) < 0 {
		return Outcome{}, &types.WalletError{
			Reason: types.WalletInsufficientBalance,
			Detail: fmt.Sprintf("have %s wei, need %s wei", balance.String(), amountWei.String()),
		}
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.account)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to get nonce", Err: err}
	}

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to get gas price", Err: err}
	}

	gasLimit := nativeTransferGas
	if e.cfg.GasLimit != nil {
		gasLimit = *e.cfg.GasLimit
	}

	tx := ethtypes.NewTransaction(nonce, common.HexToAddress(transfer.DepositAddress), amountWei, gasLimit, gasPrice, nil)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(big.NewInt(e.cfg.ChainID)), e.privateKey)
	if err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to sign transaction", Err: err}
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return Outcome{}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "failed to send transaction", Err: err}
	}

	return e.awaitReceipt(ctx, signedTx.Hash())
}

// awaitReceipt polls for the transaction receipt until it lands, fails,
// or the window elapses. A timeout yields a pending outcome, never a
// failure.
func (e *EVMConnector) awaitReceipt(ctx context.Context, hash common.Hash) (Outcome, error) {
	deadline := time.Now().Add(confirmTimeout)
	ticker := time.NewTicker(confirmInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return Outcome{TxHash: hash.Hex(), Status: ConfirmPending}, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{TxHash: hash.Hex(), Status: ConfirmPending}, nil
		case <-ticker.C:
		}

		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				continue
			}
			continue
		}
		if receipt.Status == ethtypes.ReceiptStatusFailed {
			return Outcome{TxHash: hash.Hex()}, &types.WalletError{Reason: types.WalletTxFailed, Detail: "transaction reverted"}
		}
		return Outcome{TxHash: hash.Hex(), Status: ConfirmConfirmed}, nil
	}
}

func (e *EVMConnector) gasPrice(ctx context.Context) (*big.Int, error) {
	if e.cfg.GasPrice != nil {
		return big.NewInt(*e.cfg.GasPrice), nil
	}
	return e.client.SuggestGasPrice(ctx)
}

// parseAmount converts a decimal string in the main unit to wei.
func parseAmount(amount string) (*big.Int, error) {
	amountFloat := new(big.Float)
	if _, ok := amountFloat.SetString(amount); !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}

	weiPerEther := new(big.Float).SetInt(big.NewInt(1e18))
	amountWei := new(big.Float).Mul(amountFloat, weiPerEther)

	result := new(big.Int)
	amountWei.Int(result)
	return result, nil
}
