package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-swap/config"
)

func TestNewSolanaConnector(t *testing.T) {
	_, err := NewSolanaConnector(config.SolanaConfig{PrivateKey: "key"})
	assert.Error(t, err, "missing RPC URL")

	_, err = NewSolanaConnector(config.SolanaConfig{RPCUrl: "https://rpc.example"})
	assert.Error(t, err, "missing private key")

	c, err := NewSolanaConnector(config.SolanaConfig{RPCUrl: "https://rpc.example", PrivateKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "sol", c.Network())
	assert.False(t, c.IsConnected())
}

func TestSolanaCommitment(t *testing.T) {
	tests := map[string]rpc.CommitmentType{
		"finalized": rpc.CommitmentFinalized,
		"confirmed": rpc.CommitmentConfirmed,
		"processed": rpc.CommitmentProcessed,
		"":          rpc.CommitmentConfirmed,
		"bogus":     rpc.CommitmentConfirmed,
	}
	for in, want := range tests {
		c := &SolanaConnector{cfg: config.SolanaConfig{Commitment: in}}
		assert.Equal(t, want, c.commitment(), "commitment %q", in)
	}
}
