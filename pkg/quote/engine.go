package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"cross-swap/pkg/client"
	"cross-swap/pkg/types"
)

const (
	// DebounceDelay is how long amount input must settle before a quote
	// request fires.
	DebounceDelay = 500 * time.Millisecond

	// DefaultFlow is the upstream quote mode.
	DefaultFlow = "standard"

	requestTimeout = 20 * time.Second
)

// networkRemap rewrites certain network codes before they are sent
// upstream. Fixed table, not user-configurable.
var networkRemap = map[string]string{
	"avax": "cchain",
	"bsc":  "bep20",
}

// RemapNetwork returns the upstream network code for a catalog network.
func RemapNetwork(network string) string {
	if mapped, ok := networkRemap[strings.ToLower(network)]; ok {
		return mapped
	}
	return network
}

// State is one observable snapshot of the engine. Exactly one of Quote
// and Err is set after a request settles; Loading covers the in-flight
// window.
type State struct {
	Quote      *types.Quote
	Err        error
	Loading    bool
	Generation uint64
}

// Engine fetches quotes for the selected pair, debounced per amount
// keystroke. Each fired request carries a generation number; a response
// is applied only if its generation is still the latest, so late results
// of superseded requests are discarded.
type Engine struct {
	client *client.Client

	// OnUpdate, when set, is invoked with every state change.
	OnUpdate func(State)
	// Logf receives background progress lines.
	Logf func(format string, args ...interface{})

	delay time.Duration
	flow  string

	mu                sync.Mutex
	from, to          types.Currency
	fromWalletAddress string
	state             State
	timer             *time.Timer
	gen               uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDebounce overrides the debounce delay.
func WithDebounce(d time.Duration) EngineOption {
	return func(e *Engine) { e.delay = d }
}

// WithFlow overrides the upstream quote mode.
func WithFlow(flow string) EngineOption {
	return func(e *Engine) { e.flow = flow }
}

// NewEngine creates a quote engine.
func NewEngine(c *client.Client, opts ...EngineOption) *Engine {
	e := &Engine{
		client: c,
		delay:  DebounceDelay,
		flow:   DefaultFlow,
		Logf:   func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPair selects the currency pair. Any pending or held quote belongs
// to the old pair and is cleared.
func (e *Engine) SetPair(from, to types.Currency) {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.from = from
	e.to = to
	e.clearLocked()
	e.mu.Unlock()
	e.notify()
}

// SetFromWalletAddress attaches the connected wallet address sent with
// quote requests.
func (e *Engine) SetFromWalletAddress(addr string) {
	e.mu.Lock()
	e.fromWalletAddress = addr
	e.mu.Unlock()
}

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Request schedules a quote fetch for the amount, resetting the debounce
// timer. An empty or zero amount clears the quote without a request; an
// unparseable or negative amount reports a validation error, also
// without a request.
func (e *Engine) Request(amount string) error {
	amount = strings.TrimSpace(amount)

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if amount == "" {
		e.clearLocked()
		e.mu.Unlock()
		e.notify()
		return nil
	}

	parsed, err := ParseAmount(amount)
	if err != nil {
		// Supersede any in-flight request; its late success must not
		// overwrite this error.
		e.gen++
		e.state = State{Err: err, Generation: e.gen}
		e.mu.Unlock()
		e.notify()
		return err
	}
	if parsed == 0 {
		e.clearLocked()
		e.mu.Unlock()
		e.notify()
		return nil
	}

	e.timer = time.AfterFunc(e.delay, func() { e.fire(amount) })
	e.mu.Unlock()
	return nil
}

// Fetch requests a quote synchronously, bypassing the debounce. Used by
// the one-shot CLI path; the same code backs every debounced fire.
func (e *Engine) Fetch(ctx context.Context, amount string) (*types.Quote, error) {
	e.mu.Lock()
	req := e.buildRequestLocked(amount)
	e.mu.Unlock()

	q, err := e.client.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	applyFallbackFee(q)
	return q, nil
}

// fire issues the debounced request under a fresh generation and applies
// the result only if no newer request was issued meanwhile.
func (e *Engine) fire(amount string) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	req := e.buildRequestLocked(amount)
	e.state.Loading = true
	e.state.Generation = gen
	e.mu.Unlock()
	e.notify()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	q, err := e.client.Quote(ctx, req)

	e.mu.Lock()
	if gen != e.gen {
		// Superseded while in flight; a newer request owns the state.
		e.mu.Unlock()
		e.Logf("[quote] discarding stale response for generation %d", gen)
		return
	}
	if err != nil {
		// An errored fetch must not leave a previous quote selectable.
		e.state = State{Err: err, Generation: gen}
	} else {
		applyFallbackFee(q)
		e.state = State{Quote: q, Generation: gen}
	}
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) buildRequestLocked(amount string) client.QuoteRequest {
	return client.QuoteRequest{
		FromCurrency:      e.from.Symbol,
		FromNetwork:       RemapNetwork(e.from.Network),
		ToCurrency:        e.to.Symbol,
		ToNetwork:         RemapNetwork(e.to.Network),
		FromAmount:        amount,
		FromWalletAddress: e.fromWalletAddress,
		Flow:              e.flow,
	}
}

// clearLocked resets the state and supersedes any in-flight request, so
// a late response cannot repopulate what was just cleared.
func (e *Engine) clearLocked() {
	e.gen++
	e.state = State{Generation: e.gen}
}

func (e *Engine) notify() {
	if e.OnUpdate == nil {
		return
	}
	e.OnUpdate(e.State())
}

// applyFallbackFee synthesizes a display-only fee estimate of 0.1% of
// the input amount when the provider omits one.
func applyFallbackFee(q *types.Quote) {
	if q.NetworkFee != "" {
		return
	}
	amount, err := strconv.ParseFloat(q.FromAmount, 64)
	if err != nil {
		return
	}
	q.NetworkFee = strconv.FormatFloat(amount*0.001, 'f', -1, 64)
	q.EstimatedFee = true
}

// ParseAmount validates a user-entered decimal amount.
func ParseAmount(amount string) (float64, error) {
	parsed, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, &types.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a valid number", amount)}
	}
	if parsed < 0 {
		return 0, &types.ValidationError{Field: "amount", Reason: "amount must not be negative"}
	}
	return parsed, nil
}
