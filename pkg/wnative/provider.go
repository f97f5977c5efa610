// Package wnative handles the degenerate 1:1 swap between a chain's native
// asset and its wrapped ERC-20 representation. There is no pricing call, no
// slippage, and no approval: the wrap contract's deposit and withdraw methods
// are invoked directly.
package wnative

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexswap/pkg/chain"
	"dexswap/pkg/swap"
)

// Operation distinguishes the two directions.
type Operation string

const (
	OpWrap   Operation = "WRAP"
	OpUnwrap Operation = "UNWRAP"
)

// Quote is the synthetic quote for a wrap or unwrap. Contract is the wrapped
// native token, which is both the call target and the asset being minted or
// burned. The rate is always exactly 1.
type Quote struct {
	Operation Operation
	Contract  string
	Amount    *big.Int
}

// Provider tags the quote for the orchestrator's dispatch.
func (*Quote) Provider() swap.Provider { return swap.ProviderWNative }

// Provider adapts wrap/unwrap to the swap.Adapter contract.
type Provider struct {
	evm    chain.EVM
	logger *zap.Logger
}

// NewProvider wires the wrap/unwrap adapter.
func NewProvider(evm chain.EVM, logger *zap.Logger) *Provider {
	return &Provider{evm: evm, logger: logger}
}

func (p *Provider) Kind() swap.Provider { return swap.ProviderWNative }

// Supports reports true for EVM networks with a configured wrap contract.
func (p *Provider) Supports(n swap.Network) bool {
	return !n.Solana && n.WrappedNativeAddress != ""
}

// Handles reports whether the request is a native<->wrapped pair on this
// network, i.e. whether this provider should serve it instead of a DEX.
func Handles(req swap.QuoteRequest) bool {
	wrapped := req.Network.WrappedNativeAddress
	if wrapped == "" {
		return false
	}
	if req.FromToken.Native && sameAddress(req.ToToken.Address, wrapped) {
		return true
	}
	return req.ToToken.Native && sameAddress(req.FromToken.Address, wrapped)
}

func sameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// GetQuote returns the synthetic 1:1 quote; amount out always equals amount
// in.
func (p *Provider) GetQuote(_ context.Context, req swap.QuoteRequest) (*swap.QuoteResult, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, swap.ErrMissingParam("amount")
	}
	if !Handles(req) {
		return nil, swap.ErrIncorrectTokenAddress(req.ToToken.Address)
	}

	op := OpWrap
	if req.ToToken.Native {
		op = OpUnwrap
	}

	quote := &Quote{
		Operation: op,
		Contract:  req.Network.WrappedNativeAddress,
		Amount:    new(big.Int).Set(req.Amount),
	}
	nq := swap.NormalizedQuote{
		Quote: quote,
		Metadata: swap.QuoteMetadata{
			AmountIn:  req.Amount.String(),
			AmountOut: req.Amount.String(),
		},
	}
	return &swap.QuoteResult{
		Provider: swap.ProviderWNative,
		Quotes:   []swap.NormalizedQuote{nq},
		Selected: nq,
	}, nil
}

// Swap calls deposit or withdraw on the wrap contract.
func (p *Provider) Swap(ctx context.Context, params swap.SwapParams) (string, error) {
	quote, ok := params.Quote.Quote.(*Quote)
	if !ok {
		actual := swap.Provider("unknown")
		if params.Quote.Quote != nil {
			actual = params.Quote.Quote.Provider()
		}
		return "", swap.ErrWrongQuoteProvider(actual)
	}
	if !common.IsHexAddress(params.UserAddress) {
		return "", swap.ErrMissingParam("userAddress")
	}
	if !common.IsHexAddress(quote.Contract) {
		return "", swap.ErrIncorrectTokenAddress(quote.Contract)
	}
	if params.SignAndSend == nil {
		return "", swap.ErrMissingParam("signAndSend")
	}

	var (
		data  []byte
		value *big.Int
		err   error
	)
	switch quote.Operation {
	case OpWrap:
		data, err = chain.PackDeposit()
		value = quote.Amount
	case OpUnwrap:
		data, err = chain.PackWithdraw(quote.Amount)
		value = new(big.Int)
	default:
		return "", swap.ErrInvalidQuoteData(nil)
	}
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	owner := common.HexToAddress(params.UserAddress)
	contract := common.HexToAddress(quote.Contract)
	gas, err := p.evm.EstimateGas(ctx, ethereum.CallMsg{
		From:  owner,
		To:    &contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	hash, err := params.SignAndSend(ctx, swap.EVMTx{
		From:  params.UserAddress,
		To:    quote.Contract,
		Value: value,
		Data:  data,
		Gas:   gas,
	}, swap.TxPurposeSwap)
	if err != nil {
		if swap.IsUserRejection(err) || swap.IsAborted(err) {
			return "", err
		}
		return "", swap.ErrSwapTxFailed(err)
	}
	if hash == "" {
		return "", swap.ErrSwapTxFailed(nil)
	}

	p.logger.Info("wnative.tx_submitted",
		zap.String("operation", string(quote.Operation)),
		zap.String("hash", hash))
	return hash, nil
}
