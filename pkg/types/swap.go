package types

import "time"

// Quote is a time-bounded, signed price commitment from the upstream
// provider for a specific amount and currency pair. The signature is the
// opaque authorization token required to execute the swap; it is
// single-use from the provider's perspective.
type Quote struct {
	FromCurrency string    `json:"from_currency"`
	FromNetwork  string    `json:"from_network"`
	ToCurrency   string    `json:"to_currency"`
	ToNetwork    string    `json:"to_network"`
	FromAmount   string    `json:"from_amount"`
	ToAmount     string    `json:"to_amount"`
	NetworkFee   string    `json:"network_fee"`
	ExpiresAt    time.Time `json:"expires_at"`
	Signature    string    `json:"signature"`
	RateID       string    `json:"rate_id"`

	// EstimatedFee marks NetworkFee as a display fallback synthesized
	// locally because the provider omitted it.
	EstimatedFee bool `json:"estimated_fee,omitempty"`
}

// Valid reports whether the quote can still be used for execution.
func (q *Quote) Valid(now time.Time) bool {
	return q != nil && q.Signature != "" && now.Before(q.ExpiresAt)
}

// Status is the upstream-owned lifecycle state of a swap transaction.
// The client only ever reflects it, never writes it locally.
type Status string

const (
	StatusCreated       Status = "created"
	StatusPending       Status = "pending"
	StatusPayoutCreated Status = "payout_created"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Terminal reports whether the status ends the swap's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is a swap record created by the execute endpoint and
// mutated only by upstream status responses.
type Transaction struct {
	ID                string     `json:"id"`
	Status            Status     `json:"status"`
	FromCurrency      string     `json:"from_currency"`
	FromNetwork       string     `json:"from_network"`
	FromAmount        string     `json:"from_amount"`
	FromWalletAddress string     `json:"from_wallet_address,omitempty"`
	ToCurrency        string     `json:"to_currency"`
	ToNetwork         string     `json:"to_network"`
	ToAmount          string     `json:"to_amount"`
	ToWalletAddress   string     `json:"to_wallet_address"`
	DepositAddress    string     `json:"deposit_address"`
	DepositExtraID    string     `json:"deposit_extra_id,omitempty"`
	ExternalID        string     `json:"external_id,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
