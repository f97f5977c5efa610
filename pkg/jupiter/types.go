// Package jupiter integrates the Jupiter aggregator on Solana: a quote
// endpoint, a swap build endpoint, partner fee-account resolution through
// associated token accounts, and bounded on-chain confirmation polling.
package jupiter

import (
	"github.com/goccy/go-json"

	"dexswap/pkg/swap"
)

// Swap modes accepted by the quote endpoint.
const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"
)

// PlatformFee echoes the partner fee applied to a quote.
type PlatformFee struct {
	Amount string `json:"amount"`
	FeeBps int64  `json:"feeBps"`
}

// QuoteResponse is Jupiter's priced route. Route details are kept opaque and
// passed back verbatim when building the swap.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int64           `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct,omitempty"`
	RoutePlan            json.RawMessage `json:"routePlan,omitempty"`
	ContextSlot          uint64          `json:"contextSlot,omitempty"`
}

// Provider tags the quote for the orchestrator's dispatch.
func (*QuoteResponse) Provider() swap.Provider { return swap.ProviderJupiter }

// swapBuildRequest is the wire shape of POST /swap.
type swapBuildRequest struct {
	QuoteResponse           *QuoteResponse `json:"quoteResponse"`
	UserPublicKey           string         `json:"userPublicKey"`
	DynamicComputeUnitLimit bool           `json:"dynamicComputeUnitLimit"`
	FeeAccount              string         `json:"feeAccount,omitempty"`
}

// swapBuildResponse carries the base64 transaction, or an embedded
// simulation error when the build would fail on-chain.
type swapBuildResponse struct {
	SwapTransaction string          `json:"swapTransaction"`
	SimulationError json.RawMessage `json:"simulationError,omitempty"`
}
