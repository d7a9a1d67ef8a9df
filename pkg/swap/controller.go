package swap

import (
	"context"
	"time"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

// AccountProvider is the slice of the wallet session the controller
// needs: whether a wallet is connected and which account it exposes.
type AccountProvider interface {
	IsConnected() bool
	UserAccount() string
}

// Controller turns a valid quote into a swap transaction. Execution is
// not idempotent upstream, so a failed call is reported and never
// retried here.
type Controller struct {
	client *client.Client
	store  *Store
	wallet AccountProvider
}

// NewController creates an execution controller. store and wallet may be
// nil; then no state is persisted and no wallet address substitution
// happens.
func NewController(c *client.Client, store *Store, wallet AccountProvider) *Controller {
	return &Controller{client: c, store: store, wallet: wallet}
}

// ExecuteParams carries the user-supplied execution inputs.
type ExecuteParams struct {
	ToWalletAddress          string
	RefundWalletAddress      string
	ToWalletAddressExtra     string
	RefundWalletAddressExtra string
}

// Execute validates the quote and addresses, then calls the upstream
// execute endpoint. A stale or superseded quote is rejected client-side
// without any network call. On success the returned transaction becomes
// the active tracked transaction.
func (c *Controller) Execute(ctx context.Context, q *types.Quote, params ExecuteParams) (*types.Transaction, error) {
	if q == nil || q.Signature == "" {
		return nil, &types.ValidationError{Field: "quote", Reason: "no quote selected"}
	}
	if !q.Valid(time.Now()) {
		return nil, &types.StaleQuoteError{ExpiredAt: q.ExpiresAt}
	}
	if params.ToWalletAddress == "" {
		return nil, &types.ValidationError{Field: "recipient address", Reason: "must not be empty"}
	}

	refund := params.RefundWalletAddress
	if refund == "" && c.wallet != nil && c.wallet.IsConnected() {
		refund = c.wallet.UserAccount()
	}
	if refund == "" {
		return nil, &types.ValidationError{Field: "refund address", Reason: "must not be empty"}
	}

	tx, err := c.client.Execute(ctx, client.ExecuteRequest{
		Signature:                q.Signature,
		ToWalletAddress:          params.ToWalletAddress,
		RefundWalletAddress:      refund,
		ToWalletAddressExtra:     params.ToWalletAddressExtra,
		RefundWalletAddressExtra: params.RefundWalletAddressExtra,
	})
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.SetActive(*tx); err != nil {
			// The swap exists upstream regardless; persistence failure
			// must not mask that.
			return tx, nil
		}
	}
	return tx, nil
}
