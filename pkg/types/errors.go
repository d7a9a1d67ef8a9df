package types

import (
	"fmt"
	"time"
)

// ValidationError reports missing or invalid user input. It is raised
// before any network call and never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UpstreamTimeout reports that a provider call exceeded its hard timeout.
// Surfaced distinctly from UpstreamError so the caller can suggest retry.
type UpstreamTimeout struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *UpstreamTimeout) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.Endpoint, e.Timeout)
}

// UpstreamError reports a non-2xx or malformed response from the swap
// provider. Message carries the extracted error body when available.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "swap service returned an error"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
	}
	return msg
}

// StaleQuoteError blocks execution with an expired or superseded quote.
// It must be raised client-side, never forwarded upstream.
type StaleQuoteError struct {
	ExpiredAt time.Time
}

func (e *StaleQuoteError) Error() string {
	if e.ExpiredAt.IsZero() {
		return "quote is no longer valid, request a new one"
	}
	return fmt.Sprintf("quote expired at %s, request a new one", e.ExpiredAt.Format(time.RFC3339))
}

// WalletReason classifies wallet failures; each is a distinct reported
// condition and none is silently swallowed.
type WalletReason string

const (
	WalletNotConnected        WalletReason = "not_connected"
	WalletWrongNetwork        WalletReason = "wrong_network"
	WalletInsufficientBalance WalletReason = "insufficient_balance"
	WalletUserRejected        WalletReason = "user_rejected"
	WalletTxFailed            WalletReason = "tx_failed"
	WalletBusy                WalletReason = "busy"
)

// WalletError reports a wallet-side failure. User rejection is kept
// separate from network failure.
type WalletError struct {
	Reason WalletReason
	Detail string
	Err    error
}

func (e *WalletError) Error() string {
	msg := string(e.Reason)
	switch e.Reason {
	case WalletNotConnected:
		msg = "wallet is not connected"
	case WalletWrongNetwork:
		msg = "wallet is on the wrong network, switch network and retry"
	case WalletInsufficientBalance:
		msg = "insufficient wallet balance"
	case WalletUserRejected:
		msg = "transaction rejected in wallet"
	case WalletTxFailed:
		msg = "on-chain transaction failed"
	case WalletBusy:
		msg = "a wallet transaction is already in flight"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WalletError) Unwrap() error { return e.Err }
