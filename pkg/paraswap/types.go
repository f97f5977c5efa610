// Package paraswap integrates the Paraswap aggregator: a single-response
// price endpoint and a transaction build endpoint with transient-failure
// retry.
package paraswap

import (
	"dexswap/pkg/swap"
)

// OptimalRate is Paraswap's priced route for a swap.
type OptimalRate struct {
	SrcToken     string    `json:"srcToken"`
	SrcDecimals  uint8     `json:"srcDecimals"`
	SrcAmount    string    `json:"srcAmount"`
	DestToken    string    `json:"destToken"`
	DestDecimals uint8     `json:"destDecimals"`
	DestAmount   string    `json:"destAmount"`
	Side         swap.Side `json:"side"`
	Network      int64     `json:"network"`
	GasCost      string    `json:"gasCost,omitempty"`
	// ContractAddress is the router the built transaction targets.
	ContractAddress string `json:"contractAddress,omitempty"`
}

// Provider tags the quote for the orchestrator's dispatch.
func (*OptimalRate) Provider() swap.Provider { return swap.ProviderParaswap }

// priceResponse wraps GET /prices.
type priceResponse struct {
	PriceRoute *OptimalRate `json:"priceRoute"`
	Error      string       `json:"error,omitempty"`
}

// txRequest is the wire shape of POST /transactions/{chainId}.
type txRequest struct {
	SrcToken     string       `json:"srcToken"`
	SrcDecimals  uint8        `json:"srcDecimals"`
	DestToken    string       `json:"destToken"`
	DestDecimals uint8        `json:"destDecimals"`
	SrcAmount    string       `json:"srcAmount"`
	DestAmount   string       `json:"destAmount"`
	PriceRoute   *OptimalRate `json:"priceRoute"`
	UserAddress  string       `json:"userAddress"`
	Partner      string       `json:"partner,omitempty"`
}

// TxResponse is the built transaction, or an error-shaped body on transient
// build failure.
type TxResponse struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Error    string `json:"error,omitempty"`
}

// contractsResponse wraps the spender lookup.
type contractsResponse struct {
	TokenTransferProxy string `json:"TokenTransferProxy"`
}
