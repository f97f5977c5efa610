package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexswap/pkg/swap"
)

const wavax = "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"

type testQuote struct {
	amountOut string
}

func (*testQuote) Provider() swap.Provider { return swap.ProviderMarkr }

// scriptedAdapter serves quotes from a channel-driven script so tests control
// exactly when each request resolves.
type scriptedAdapter struct {
	kind swap.Provider

	mu       sync.Mutex
	requests []*pendingRequest

	swapFn func(ctx context.Context, params swap.SwapParams) (string, error)
}

type pendingRequest struct {
	req     swap.QuoteRequest
	ctx     context.Context
	release chan quoteAnswer
}

type quoteAnswer struct {
	result *swap.QuoteResult
	err    error
}

func newScriptedAdapter() *scriptedAdapter {
	return &scriptedAdapter{kind: swap.ProviderMarkr}
}

func (a *scriptedAdapter) Kind() swap.Provider          { return a.kind }
func (a *scriptedAdapter) Supports(n swap.Network) bool { return !n.Solana }

func (a *scriptedAdapter) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.QuoteResult, error) {
	p := &pendingRequest{req: req, ctx: ctx, release: make(chan quoteAnswer, 1)}
	a.mu.Lock()
	a.requests = append(a.requests, p)
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, swap.Abort(ctx.Err())
	case answer := <-p.release:
		return answer.result, answer.err
	}
}

func (a *scriptedAdapter) Swap(ctx context.Context, params swap.SwapParams) (string, error) {
	if a.swapFn != nil {
		return a.swapFn(ctx, params)
	}
	return "0xhash", nil
}

func (a *scriptedAdapter) waitForRequests(t *testing.T, n int) []*pendingRequest {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		a.mu.Lock()
		if len(a.requests) >= n {
			out := append([]*pendingRequest(nil), a.requests...)
			a.mu.Unlock()
			return out
		}
		a.mu.Unlock()
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d quote requests", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func resultWith(amountOut string) *swap.QuoteResult {
	nq := swap.NormalizedQuote{
		Quote:    &testQuote{amountOut: amountOut},
		Metadata: swap.QuoteMetadata{AmountIn: "1000", AmountOut: amountOut},
	}
	return &swap.QuoteResult{Provider: swap.ProviderMarkr, Quotes: []swap.NormalizedQuote{nq}, Selected: nq}
}

func testTokens() (swap.Token, swap.Token) {
	return swap.Token{Symbol: "AVAX", Native: true, Decimals: 18},
		swap.Token{Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6}
}

func newTestOrchestrator(adapter swap.Adapter, hooks Hooks, debounce time.Duration) *Orchestrator {
	return New(Config{
		Registry:        swap.NewRegistry(adapter),
		Network:         swap.Network{Name: "avalanche", ChainID: 43114, WrappedNativeAddress: wavax},
		UserAddress:     "0x92e658B5962B0A804A24f0e40ab7e77b70b5e148",
		SlippagePercent: 0.5,
		Debounce:        debounce,
		Hooks:           hooks,
	})
}

func TestRefreshPublishesResult(t *testing.T) {
	adapter := newScriptedAdapter()

	done := make(chan *swap.QuoteResult, 1)
	o := newTestOrchestrator(adapter, Hooks{
		OnQuoteComplete: func(r *swap.QuoteResult) { done <- r },
	}, time.Millisecond)
	defer o.Close()

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1000))

	reqs := adapter.waitForRequests(t, 1)
	reqs[len(reqs)-1].release <- quoteAnswer{result: resultWith("2000")}

	select {
	case r := <-done:
		assert.Equal(t, "2000", r.Selected.Metadata.AmountOut)
	case <-time.After(2 * time.Second):
		t.Fatal("quote never completed")
	}
	require.NotNil(t, o.Result())
}

func TestLastRequestWins(t *testing.T) {
	adapter := newScriptedAdapter()

	done := make(chan struct{}, 10)
	o := newTestOrchestrator(adapter, Hooks{
		OnQuoteComplete: func(*swap.QuoteResult) { done <- struct{}{} },
	}, time.Millisecond)
	defer o.Close()

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1))

	adapter.waitForRequests(t, 1)

	// A burst of refreshes; each cancels its predecessor.
	o.Refresh()
	o.Refresh()
	o.Refresh()

	reqs := adapter.waitForRequests(t, 4)

	// A stale response arriving after newer requests must be dropped.
	reqs[0].release <- quoteAnswer{result: resultWith("111")}
	reqs[len(reqs)-1].release <- quoteAnswer{result: resultWith("999")}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("final quote never completed")
	}

	result := o.Result()
	require.NotNil(t, result)
	assert.Equal(t, "999", result.Selected.Metadata.AmountOut)

	// Earlier in-flight requests were cancelled outright.
	assert.Error(t, reqs[0].ctx.Err())
	assert.Error(t, reqs[1].ctx.Err())
	assert.Error(t, reqs[2].ctx.Err())
}

func TestSetAmountDebouncesBursts(t *testing.T) {
	adapter := newScriptedAdapter()
	o := newTestOrchestrator(adapter, Hooks{}, 40*time.Millisecond)
	defer o.Close()

	from, to := testTokens()
	o.mu.Lock()
	o.fromToken, o.toToken = &from, &to
	o.mu.Unlock()

	// Rapid edits within the debounce window coalesce into one request.
	o.SetAmount(big.NewInt(1))
	o.SetAmount(big.NewInt(12))
	o.SetAmount(big.NewInt(123))

	time.Sleep(120 * time.Millisecond)

	adapter.mu.Lock()
	count := len(adapter.requests)
	var amount *big.Int
	if count > 0 {
		amount = adapter.requests[0].req.Amount
	}
	adapter.mu.Unlock()

	require.Equal(t, 1, count)
	assert.Equal(t, "123", amount.String())
}

func TestRefreshClearsWhenSessionIncomplete(t *testing.T) {
	adapter := newScriptedAdapter()
	o := newTestOrchestrator(adapter, Hooks{}, time.Millisecond)
	defer o.Close()

	// No pair set: refresh is a no-op that clears state.
	o.Refresh()
	assert.Nil(t, o.Result())

	adapter.mu.Lock()
	assert.Empty(t, adapter.requests)
	adapter.mu.Unlock()
}

func TestRefreshUnsupportedNetwork(t *testing.T) {
	adapter := newScriptedAdapter()
	adapter.kind = swap.ProviderJupiter

	errCh := make(chan string, 1)
	o := New(Config{
		Registry: swap.NewRegistry(&solanaOnlyAdapter{adapter}),
		Network:  swap.Network{Name: "avalanche", ChainID: 43114},
		Debounce: time.Millisecond,
		Hooks:    Hooks{OnQuoteError: func(msg string) { errCh <- msg }},
	})
	defer o.Close()

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1000))

	select {
	case msg := <-errCh:
		assert.Equal(t, "This network is not supported for swaps.", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("unsupported network never surfaced")
	}
}

type solanaOnlyAdapter struct{ *scriptedAdapter }

func (a *solanaOnlyAdapter) Supports(n swap.Network) bool { return n.Solana }

func TestQuoteErrorSurfacesHumanizedMessage(t *testing.T) {
	adapter := newScriptedAdapter()

	errCh := make(chan string, 1)
	o := newTestOrchestrator(adapter, Hooks{
		OnQuoteError: func(msg string) { errCh <- msg },
	}, time.Millisecond)
	defer o.Close()

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1000))

	reqs := adapter.waitForRequests(t, 1)
	reqs[0].release <- quoteAnswer{err: swap.ErrInvalidQuoteData(errors.New("bad payload"))}

	select {
	case msg := <-errCh:
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, "bad payload")
	case <-time.After(2 * time.Second):
		t.Fatal("error hook never fired")
	}
	assert.Nil(t, o.Result())
}

func TestAbortedRefreshStaysSilent(t *testing.T) {
	adapter := newScriptedAdapter()

	errCh := make(chan string, 1)
	o := newTestOrchestrator(adapter, Hooks{
		OnQuoteError: func(msg string) { errCh <- msg },
	}, time.Millisecond)
	defer o.Close()

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1000))

	reqs := adapter.waitForRequests(t, 1)
	reqs[0].release <- quoteAnswer{err: swap.ErrAborted}

	select {
	case msg := <-errCh:
		t.Fatalf("cancellation surfaced as error: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func swapReady(t *testing.T, adapter *scriptedAdapter) *Orchestrator {
	t.Helper()
	done := make(chan struct{}, 1)
	o := newTestOrchestrator(adapter, Hooks{
		OnQuoteComplete: func(*swap.QuoteResult) { done <- struct{}{} },
	}, time.Millisecond)

	from, to := testTokens()
	o.SetPair(from, to)
	o.SetAmount(big.NewInt(1000))

	reqs := adapter.waitForRequests(t, 1)
	reqs[len(reqs)-1].release <- quoteAnswer{result: resultWith("2000")}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("quote never completed")
	}
	return o
}

func waitForStatus(t *testing.T, o *Orchestrator, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for o.Status() != want {
		select {
		case <-deadline:
			t.Fatalf("status never reached %s (now %s)", want, o.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSwapLifecycle(t *testing.T) {
	adapter := newScriptedAdapter()
	started := make(chan struct{})
	finish := make(chan struct{})
	adapter.swapFn = func(context.Context, swap.SwapParams) (string, error) {
		close(started)
		<-finish
		return "0xhash", nil
	}

	success := make(chan string, 1)
	o := swapReady(t, adapter)
	defer o.Close()
	o.cfg.Hooks.OnSwapSuccess = func(_ swap.Provider, hash string) { success <- hash }

	require.NoError(t, o.Swap())
	assert.Equal(t, StatusSwapping, o.Status())

	<-started
	// A second swap while one runs is refused.
	assert.ErrorIs(t, o.Swap(), ErrSwapInProgress)

	close(finish)
	select {
	case hash := <-success:
		assert.Equal(t, "0xhash", hash)
	case <-time.After(2 * time.Second):
		t.Fatal("success hook never fired")
	}
	waitForStatus(t, o, StatusSuccess)
}

func TestSwapFailure(t *testing.T) {
	adapter := newScriptedAdapter()
	adapter.swapFn = func(context.Context, swap.SwapParams) (string, error) {
		return "", swap.ErrSwapTxFailed(errors.New("nonce too low"))
	}

	failure := make(chan error, 1)
	o := swapReady(t, adapter)
	defer o.Close()
	o.cfg.Hooks.OnSwapFailure = func(_ swap.Provider, err error) { failure <- err }

	require.NoError(t, o.Swap())
	select {
	case err := <-failure:
		assert.Equal(t, swap.KindSwapTxFailed, swap.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook never fired")
	}
	waitForStatus(t, o, StatusFail)
}

func TestSwapUserRejectionResetsQuietly(t *testing.T) {
	adapter := newScriptedAdapter()
	adapter.swapFn = func(context.Context, swap.SwapParams) (string, error) {
		return "", &swap.RejectionError{Code: swap.UserRejectionCode}
	}

	failure := make(chan error, 1)
	o := swapReady(t, adapter)
	defer o.Close()
	o.cfg.Hooks.OnSwapFailure = func(_ swap.Provider, err error) { failure <- err }

	require.NoError(t, o.Swap())
	waitForStatus(t, o, StatusIdle)

	select {
	case err := <-failure:
		t.Fatalf("rejection surfaced as failure: %v", err)
	default:
	}
}

func TestSwapWithoutQuote(t *testing.T) {
	adapter := newScriptedAdapter()
	o := newTestOrchestrator(adapter, Hooks{}, time.Millisecond)
	defer o.Close()

	assert.ErrorIs(t, o.Swap(), ErrNoQuote)
}
