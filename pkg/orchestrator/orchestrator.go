// Package orchestrator owns a swap session: the selected pair, amount, and
// slippage, a debounced and cancellable quote refresh loop, and the swap
// execution state machine.
package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexswap/pkg/swap"
	"dexswap/pkg/wnative"
)

// DefaultDebounce is how long amount edits are coalesced before they trigger
// a quote refresh.
const DefaultDebounce = 150 * time.Millisecond

// Status is the swap execution state. It leaves Idle only through Swap and
// returns to Idle only when a new swap starts or a user rejection resets it.
type Status string

const (
	StatusIdle     Status = "Idle"
	StatusSwapping Status = "Swapping"
	StatusSuccess  Status = "Success"
	StatusFail     Status = "Fail"
)

// Hooks receive session events. All hooks are optional and are invoked
// outside the orchestrator's lock.
type Hooks struct {
	// OnQuote fires on every quote update, including intermediate streaming
	// updates.
	OnQuote func(result *swap.QuoteResult)
	// OnQuoteComplete fires once per refresh, when the provider has no more
	// updates to deliver for the final result.
	OnQuoteComplete func(result *swap.QuoteResult)
	// OnQuoteError fires when a refresh fails for a reason other than
	// cancellation.
	OnQuoteError func(message string)
	OnSwapSuccess func(provider swap.Provider, txHash string)
	OnSwapFailure func(provider swap.Provider, err error)
}

// Config wires an orchestrator.
type Config struct {
	Registry *swap.Registry
	Network  swap.Network
	// UserAddress is the swapping account.
	UserAddress string
	// SignAndSend and SignSolanaTx are the signing collaborators for the
	// network families in use.
	SignAndSend  swap.EVMSignFunc
	SignSolanaTx swap.SolanaSignFunc

	SlippagePercent float64
	FeesEnabled     bool
	PlatformFeeBps  int64

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	Hooks    Hooks
	Logger   *zap.Logger
}

// Orchestrator is a single swap session. All exported methods are safe for
// concurrent use.
type Orchestrator struct {
	cfg      Config
	debounce time.Duration
	logger   *zap.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	fromToken *swap.Token
	toToken   *swap.Token
	amount    *big.Int
	side      swap.Side

	// generation stamps each refresh; results from an older generation are
	// dropped, which is what makes last-request-wins hold even when a stale
	// response arrives late.
	generation    uint64
	cancelCurrent context.CancelFunc
	debounceTimer *time.Timer

	result *swap.QuoteResult
	errMsg string
	status Status
}

// New creates an idle session.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		debounce:   debounce,
		logger:     cfg.Logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		side:       swap.SideSell,
		status:     StatusIdle,
	}
}

// Close aborts any in-flight refresh and stops the debounce timer.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.debounceTimer != nil {
		o.debounceTimer.Stop()
		o.debounceTimer = nil
	}
	o.mu.Unlock()
	o.baseCancel()
}

// SetPair sets both legs and refreshes immediately.
func (o *Orchestrator) SetPair(from, to swap.Token) {
	o.mu.Lock()
	o.fromToken = &from
	o.toToken = &to
	o.mu.Unlock()
	o.Refresh()
}

// SetSide sets which leg the amount fixes and refreshes immediately.
func (o *Orchestrator) SetSide(side swap.Side) {
	o.mu.Lock()
	o.side = side
	o.mu.Unlock()
	o.Refresh()
}

// SetSlippage updates the tolerance and refreshes immediately.
func (o *Orchestrator) SetSlippage(percent float64) {
	o.mu.Lock()
	o.cfg.SlippagePercent = percent
	o.mu.Unlock()
	o.Refresh()
}

// SetAmount records the new amount and schedules a debounced refresh, so a
// burst of edits produces a single request.
func (o *Orchestrator) SetAmount(amount *big.Int) {
	o.mu.Lock()
	o.amount = amount
	if o.debounceTimer != nil {
		o.debounceTimer.Stop()
	}
	o.debounceTimer = time.AfterFunc(o.debounce, o.Refresh)
	o.mu.Unlock()
}

// Refresh starts a new quote request, aborting any in-flight one
// unconditionally. Incomplete sessions clear the current quote instead.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()

	o.generation++
	gen := o.generation
	if o.cancelCurrent != nil {
		o.cancelCurrent()
		o.cancelCurrent = nil
	}

	req, adapter, err := o.buildRequestLocked()
	if adapter == nil {
		o.result = nil
		o.errMsg = ""
		o.mu.Unlock()
		if err != nil {
			o.publishError(gen, err)
		}
		return
	}

	ctx, cancel := context.WithCancel(o.baseCtx)
	o.cancelCurrent = cancel
	o.mu.Unlock()

	go o.fetchQuote(ctx, gen, req, adapter)
}

// buildRequestLocked snapshots the session into a request and picks the
// serving adapter: the wrap provider for a native<->wrapped pair, otherwise
// the first registered adapter supporting the network. A nil adapter with a
// nil error means the session is incomplete and there is nothing to quote.
func (o *Orchestrator) buildRequestLocked() (swap.QuoteRequest, swap.Adapter, error) {
	if o.fromToken == nil || o.toToken == nil || o.amount == nil || o.amount.Sign() <= 0 {
		return swap.QuoteRequest{}, nil, nil
	}
	req := swap.QuoteRequest{
		Network:         o.cfg.Network,
		UserAddress:     o.cfg.UserAddress,
		FromToken:       *o.fromToken,
		ToToken:         *o.toToken,
		Amount:          new(big.Int).Set(o.amount),
		Side:            o.side,
		SlippagePercent: o.cfg.SlippagePercent,
		PlatformFeeBps:  o.cfg.PlatformFeeBps,
	}

	if wnative.Handles(req) {
		if a, err := o.cfg.Registry.Get(swap.ProviderWNative); err == nil {
			return req, a, nil
		}
	}
	for _, a := range o.cfg.Registry.ForNetwork(o.cfg.Network) {
		if a.Kind() != swap.ProviderWNative {
			return req, a, nil
		}
	}
	return swap.QuoteRequest{}, nil, swap.ErrNetworkNotSupported(o.cfg.Network.Name)
}

func (o *Orchestrator) fetchQuote(ctx context.Context, gen uint64, req swap.QuoteRequest, adapter swap.Adapter) {
	req.OnUpdate = func(result *swap.QuoteResult) error {
		if !o.publish(gen, result) {
			return swap.ErrAborted
		}
		return nil
	}

	result, err := adapter.GetQuote(ctx, req)
	if err != nil {
		if swap.IsAborted(err) || errors.Is(err, swap.ErrAborted) {
			return
		}
		o.publishError(gen, err)
		return
	}
	if o.publish(gen, result) && o.cfg.Hooks.OnQuoteComplete != nil {
		o.cfg.Hooks.OnQuoteComplete(result)
	}
}

// publish installs a quote result if its generation is still current.
func (o *Orchestrator) publish(gen uint64, result *swap.QuoteResult) bool {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return false
	}
	o.result = result
	o.errMsg = ""
	o.mu.Unlock()

	if o.cfg.Hooks.OnQuote != nil {
		o.cfg.Hooks.OnQuote(result)
	}
	return true
}

func (o *Orchestrator) publishError(gen uint64, err error) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	msg := HumanizeError(err)
	o.result = nil
	o.errMsg = msg
	o.mu.Unlock()

	o.logger.Warn("orchestrator.quote_failed", zap.Error(err))
	if o.cfg.Hooks.OnQuoteError != nil {
		o.cfg.Hooks.OnQuoteError(msg)
	}
}

// SelectQuote overrides the auto-best selection with the quote at index i.
// The override lasts until the next refresh.
func (o *Orchestrator) SelectQuote(i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result != nil {
		o.result.Select(i)
	}
}

// Result returns the live quote result, or nil.
func (o *Orchestrator) Result() *swap.QuoteResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// ErrorMessage returns the user-facing error from the last refresh, or "".
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// Status returns the swap execution state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// ErrNoQuote is returned by Swap when no quote is selected yet.
var ErrNoQuote = errors.New("no quote available to swap")

// ErrSwapInProgress is returned by Swap while a previous swap is running.
var ErrSwapInProgress = errors.New("swap already in progress")

// Swap executes the selected quote. The status flips to Swapping
// synchronously; the network work runs in the background and lands in
// Success or Fail through the hooks. A user-initiated rejection resets the
// session to Idle without counting as a failure.
func (o *Orchestrator) Swap() error {
	o.mu.Lock()
	if o.status == StatusSwapping {
		o.mu.Unlock()
		return ErrSwapInProgress
	}
	if o.result == nil || o.result.Selected.Quote == nil {
		o.mu.Unlock()
		return ErrNoQuote
	}
	if o.fromToken == nil || o.toToken == nil || o.amount == nil {
		o.mu.Unlock()
		return ErrNoQuote
	}

	params := swap.SwapParams{
		Network:         o.cfg.Network,
		UserAddress:     o.cfg.UserAddress,
		FromToken:       *o.fromToken,
		ToToken:         *o.toToken,
		Amount:          new(big.Int).Set(o.amount),
		Quote:           o.result.Selected,
		Side:            o.side,
		SlippagePercent: o.cfg.SlippagePercent,
		FeesEnabled:     o.cfg.FeesEnabled,
		PlatformFeeBps:  o.cfg.PlatformFeeBps,
		SignAndSend:     o.cfg.SignAndSend,
		SignSolanaTx:    o.cfg.SignSolanaTx,
	}
	provider := o.result.Provider
	o.status = StatusSwapping
	o.mu.Unlock()

	adapter, err := o.cfg.Registry.Get(provider)
	if err != nil {
		o.setStatus(StatusFail)
		return err
	}

	go o.runSwap(adapter, provider, params)
	return nil
}

func (o *Orchestrator) runSwap(adapter swap.Adapter, provider swap.Provider, params swap.SwapParams) {
	hash, err := adapter.Swap(o.baseCtx, params)
	if err != nil {
		if swap.IsUserRejection(err) || swap.IsAborted(err) {
			// Quiet reset, not a failure.
			o.setStatus(StatusIdle)
			return
		}
		o.setStatus(StatusFail)
		o.logger.Warn("orchestrator.swap_failed",
			zap.String("provider", string(provider)),
			zap.Error(err))
		if o.cfg.Hooks.OnSwapFailure != nil {
			o.cfg.Hooks.OnSwapFailure(provider, err)
		}
		return
	}

	o.setStatus(StatusSuccess)
	o.logger.Info("orchestrator.swap_succeeded",
		zap.String("provider", string(provider)),
		zap.String("hash", hash))
	if o.cfg.Hooks.OnSwapSuccess != nil {
		o.cfg.Hooks.OnSwapSuccess(provider, hash)
	}
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}
