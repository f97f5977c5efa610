package swap

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Provider identifies which adapter produced a quote. Every quote payload
// carries this tag explicitly so callers never have to guess a quote's origin
// from its shape.
type Provider string

const (
	ProviderParaswap Provider = "paraswap"
	ProviderMarkr    Provider = "markr"
	ProviderJupiter  Provider = "jupiter"
	ProviderWNative  Provider = "wnative"
)

// Side selects which leg of the swap is fixed: SELL fixes the input amount,
// BUY fixes the output amount.
type Side string

const (
	SideSell Side = "SELL"
	SideBuy  Side = "BUY"
)

// Token describes one leg of a swap pair.
type Token struct {
	Symbol   string
	Address  string
	Decimals uint8
	Native   bool
}

// Network describes the chain a swap executes on.
type Network struct {
	Name    string
	ChainID int64
	RPCURL  string

	// EVM networks only.
	WrappedNativeAddress string
	GasBufferPercent     int64

	// Solana networks only.
	Solana     bool
	NativeMint string
}

// Quote is implemented by every provider-specific quote payload.
type Quote interface {
	Provider() Provider
}

// QuoteMetadata carries the provider-independent fields used for sorting and
// display. Amounts are base-unit integer strings, decimals not applied.
type QuoteMetadata struct {
	AmountIn  string
	AmountOut string
}

// NormalizedQuote pairs an opaque provider payload with normalized metadata.
type NormalizedQuote struct {
	Quote    Quote
	Metadata QuoteMetadata
}

// QuoteResult is one refresh worth of quotes from a single provider,
// best-first. Selected always references an element of Quotes; it defaults to
// the best quote and changes only on explicit user override.
type QuoteResult struct {
	Provider Provider
	Quotes   []NormalizedQuote
	Selected NormalizedQuote
}

// Select marks the quote at index i as the active choice.
func (r *QuoteResult) Select(i int) {
	if i >= 0 && i < len(r.Quotes) {
		r.Selected = r.Quotes[i]
	}
}

// OnUpdateFunc receives the full re-sorted quote list every time a streaming
// provider produces a new quote. Returning an error stops the stream.
type OnUpdateFunc func(result *QuoteResult) error

// QuoteRequest carries everything an adapter needs to price a swap.
type QuoteRequest struct {
	Network     Network
	UserAddress string
	FromToken   Token
	ToToken     Token
	// Amount is the fixed-leg amount in base units.
	Amount *big.Int
	Side   Side
	// SlippagePercent is the tolerated adverse move, in (0, 100].
	SlippagePercent float64
	// PlatformFeeBps is an optional partner fee in basis points.
	PlatformFeeBps int64
	// OnUpdate is required by streaming providers and ignored by the rest.
	OnUpdate OnUpdateFunc
}

// EVMTx is the transaction request handed to the signing collaborator.
type EVMTx struct {
	From     string
	To       string
	Value    *big.Int
	Data     []byte
	Gas      uint64
	GasPrice *big.Int
}

// TxPurpose tags a signing request so callers can distinguish intermediate
// approval transactions from the swap itself.
type TxPurpose string

const (
	TxPurposeApproval TxPurpose = "approval"
	TxPurposeSwap     TxPurpose = "swap"
)

// EVMSignFunc signs and broadcasts an EVM transaction, returning its hash.
type EVMSignFunc func(ctx context.Context, tx EVMTx, purpose TxPurpose) (string, error)

// SolanaSignFunc signs and broadcasts a Solana transaction, returning its
// signature.
type SolanaSignFunc func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

// SwapParams carries everything an adapter needs to execute a selected quote.
type SwapParams struct {
	Network         Network
	UserAddress     string
	FromToken       Token
	ToToken         Token
	Amount          *big.Int
	Quote           NormalizedQuote
	Side            Side
	SlippagePercent float64
	// FeesEnabled gates the partner fee on providers that support one.
	FeesEnabled    bool
	PlatformFeeBps int64

	SignAndSend  EVMSignFunc
	SignSolanaTx SolanaSignFunc

	// OnFeeAccountNotInitialized is a telemetry hook invoked once per fee
	// mint whose collection account is missing on-chain (Jupiter only).
	OnFeeAccountNotInitialized func(mint string)
}

// ValidSlippage reports whether p lies within the accepted (0, 100] range.
func ValidSlippage(p float64) bool { return p > 0 && p <= 100 }

// Adapter is implemented by every swap provider.
type Adapter interface {
	Kind() Provider
	Supports(network Network) bool
	// GetQuote prices the swap. Streaming providers deliver intermediate
	// results through req.OnUpdate before returning the final result.
	GetQuote(ctx context.Context, req QuoteRequest) (*QuoteResult, error)
	// Swap executes the selected quote and returns the transaction hash.
	Swap(ctx context.Context, params SwapParams) (string, error)
}
