package swap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	kind   Provider
	solana bool
}

func (a *stubAdapter) Kind() Provider            { return a.kind }
func (a *stubAdapter) Supports(n Network) bool   { return n.Solana == a.solana }
func (a *stubAdapter) GetQuote(context.Context, QuoteRequest) (*QuoteResult, error) {
	return nil, nil
}
func (a *stubAdapter) Swap(context.Context, SwapParams) (string, error) { return "", nil }

func TestRegistryGet(t *testing.T) {
	markr := &stubAdapter{kind: ProviderMarkr}
	r := NewRegistry(markr, &stubAdapter{kind: ProviderParaswap})

	got, err := r.Get(ProviderMarkr)
	require.NoError(t, err)
	assert.Same(t, markr, got)

	_, err = r.Get(ProviderJupiter)
	assert.Error(t, err)
}

func TestRegistryForNetworkPreservesOrder(t *testing.T) {
	r := NewRegistry(
		&stubAdapter{kind: ProviderMarkr},
		&stubAdapter{kind: ProviderParaswap},
		&stubAdapter{kind: ProviderWNative},
		&stubAdapter{kind: ProviderJupiter, solana: true},
	)

	evm := r.ForNetwork(Network{Name: "avalanche"})
	require.Len(t, evm, 3)
	assert.Equal(t, ProviderMarkr, evm[0].Kind())
	assert.Equal(t, ProviderParaswap, evm[1].Kind())
	assert.Equal(t, ProviderWNative, evm[2].Kind())

	sol := r.ForNetwork(Network{Name: "solana", Solana: true})
	require.Len(t, sol, 1)
	assert.Equal(t, ProviderJupiter, sol[0].Kind())
}

func TestRegistryDuplicateKindKeepsFirst(t *testing.T) {
	first := &stubAdapter{kind: ProviderMarkr}
	r := NewRegistry(first, &stubAdapter{kind: ProviderMarkr})

	got, err := r.Get(ProviderMarkr)
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Len(t, r.ForNetwork(Network{}), 1)
}

func TestQuoteResultSelect(t *testing.T) {
	q1 := NormalizedQuote{Metadata: QuoteMetadata{AmountOut: "150"}}
	q2 := NormalizedQuote{Metadata: QuoteMetadata{AmountOut: "120"}}
	r := &QuoteResult{Quotes: []NormalizedQuote{q1, q2}, Selected: q1}

	r.Select(1)
	assert.Equal(t, q2, r.Selected)

	// Out-of-range selections leave the current choice untouched.
	r.Select(5)
	assert.Equal(t, q2, r.Selected)
	r.Select(-1)
	assert.Equal(t, q2, r.Selected)
}
