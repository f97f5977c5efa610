// Package markr integrates the Markr aggregation orchestrator: a streaming
// quote endpoint that races multiple DEX aggregators and emits each result as
// a server-sent event, plus a swap build endpoint for the winning quote.
package markr

import (
	"dexswap/pkg/swap"
)

// NativeTokenSentinel is the address Markr uses to denote the chain's native
// asset in place of an ERC-20 contract address.
const NativeTokenSentinel = "0x0000000000000000000000000000000000000000"

// Aggregator identifies the DEX aggregator behind a quote.
type Aggregator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Quote is one aggregator's priced route, as it arrives on the event stream.
// A record with Done set carries no usable amounts: it only signals the end
// of the stream and never appears in quote lists.
type Quote struct {
	UUID             string     `json:"uuid"`
	Aggregator       Aggregator `json:"aggregator"`
	TokenIn          string     `json:"tokenIn"`
	TokenInDecimals  uint8      `json:"tokenInDecimals"`
	AmountIn         string     `json:"amountIn"`
	TokenOut         string     `json:"tokenOut"`
	TokenOutDecimals uint8      `json:"tokenOutDecimals"`
	AmountOut        string     `json:"amountOut"`
	Done             bool       `json:"done,omitempty"`
}

// Provider tags the quote for the orchestrator's dispatch.
func (*Quote) Provider() swap.Provider { return swap.ProviderMarkr }

// quoteRequest is the wire shape of POST /quote.
type quoteRequest struct {
	AppID            string  `json:"appId"`
	ChainID          int64   `json:"chainId"`
	From             string  `json:"from"`
	TokenIn          string  `json:"tokenIn"`
	TokenInDecimals  uint8   `json:"tokenInDecimals"`
	TokenOut         string  `json:"tokenOut"`
	TokenOutDecimals uint8   `json:"tokenOutDecimals"`
	Amount           string  `json:"amount"`
	Slippage         float64 `json:"slippage"`
}

// swapRequest is the wire shape of POST /swap.
type swapRequest struct {
	UUID         string `json:"uuid"`
	ChainID      int64  `json:"chainId"`
	From         string `json:"from"`
	TokenIn      string `json:"tokenIn"`
	TokenOut     string `json:"tokenOut"`
	AmountIn     string `json:"amountIn"`
	MinAmountOut string `json:"minAmountOut"`
	AppID        string `json:"appId"`
}

// SwapTransaction is the built transaction returned by POST /swap.
type SwapTransaction struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}
