package markr

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexswap/pkg/allowance"
	"dexswap/pkg/chain"
	"dexswap/pkg/swap"
)

// DefaultGasBufferPercent pads the estimated gas for the swap transaction.
const DefaultGasBufferPercent = 120

// Provider adapts the Markr orchestrator to the swap.Adapter contract.
type Provider struct {
	client    *Client
	evm       chain.EVM
	allowance *allowance.Manager
	logger    *zap.Logger
}

// NewProvider wires the Markr adapter.
func NewProvider(client *Client, evm chain.EVM, allowanceMgr *allowance.Manager, logger *zap.Logger) *Provider {
	return &Provider{client: client, evm: evm, allowance: allowanceMgr, logger: logger}
}

func (p *Provider) Kind() swap.Provider { return swap.ProviderMarkr }

// Supports reports true for EVM networks.
func (p *Provider) Supports(n swap.Network) bool { return !n.Solana }

// GetQuote streams quotes from the orchestrator. The request must carry an
// OnUpdate callback: quote discovery is incremental and callers are expected
// to render intermediate rankings.
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.QuoteResult, error) {
	if req.OnUpdate == nil {
		return nil, swap.ErrMissingParam("onUpdate")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, swap.ErrMissingParam("amount")
	}
	if req.UserAddress == "" {
		return nil, swap.ErrMissingParam("userAddress")
	}

	tokenIn, err := requestAddress(req.FromToken)
	if err != nil {
		return nil, err
	}
	tokenOut, err := requestAddress(req.ToToken)
	if err != nil {
		return nil, err
	}

	quotes, err := p.client.StreamQuotes(ctx, quoteRequest{
		ChainID:          req.Network.ChainID,
		From:             req.UserAddress,
		TokenIn:          tokenIn,
		TokenInDecimals:  req.FromToken.Decimals,
		TokenOut:         tokenOut,
		TokenOutDecimals: req.ToToken.Decimals,
		Amount:           req.Amount.String(),
		Slippage:         req.SlippagePercent,
	}, func(sorted []*Quote) error {
		return req.OnUpdate(normalize(sorted))
	})
	if err != nil {
		return nil, err
	}
	return normalize(quotes), nil
}

// requestAddress maps native tokens to Markr's zero-address sentinel and
// validates ERC-20 addresses.
func requestAddress(t swap.Token) (string, error) {
	if t.Native {
		return NativeTokenSentinel, nil
	}
	if !common.IsHexAddress(t.Address) {
		return "", swap.ErrIncorrectTokenAddress(t.Address)
	}
	return t.Address, nil
}

// normalize converts a sorted Markr quote list into the provider-independent
// result shape. The first (best) quote is pre-selected.
func normalize(quotes []*Quote) *swap.QuoteResult {
	result := &swap.QuoteResult{Provider: swap.ProviderMarkr}
	for _, q := range quotes {
		result.Quotes = append(result.Quotes, swap.NormalizedQuote{
			Quote: q,
			Metadata: swap.QuoteMetadata{
				AmountIn:  q.AmountIn,
				AmountOut: q.AmountOut,
			},
		})
	}
	if len(result.Quotes) > 0 {
		result.Selected = result.Quotes[0]
	}
	return result
}

// Swap executes a previously selected Markr quote: allowance top-up, swap
// build through the orchestrator, gas estimation with a buffer, then signing.
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
	if !swap.ValidSlippage(params.SlippagePercent) {
		return "", swap.ErrMissingParam("slippage")
	}
	if params.SignAndSend == nil {
		return "", swap.ErrMissingParam("signAndSend")
	}

	minAmountOut, err := minAmountOut(quote.AmountOut, params.SlippagePercent)
	if err != nil {
		return "", swap.ErrInvalidQuoteData(err)
	}

	tx, err := p.client.BuildSwapTx(ctx, swapRequest{
		UUID:         quote.UUID,
		ChainID:      params.Network.ChainID,
		From:         params.UserAddress,
		TokenIn:      quote.TokenIn,
		TokenOut:     quote.TokenOut,
		AmountIn:     quote.AmountIn,
		MinAmountOut: minAmountOut,
	})
	if err != nil {
		return "", err
	}

	owner := common.HexToAddress(params.UserAddress)
	spender := common.HexToAddress(tx.To)
	value, err := parseTxValue(tx.Value)
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	if !params.FromToken.Native {
		err = p.allowance.EnsureAllowance(ctx, allowance.EnsureParams{
			Token:       common.HexToAddress(params.FromToken.Address),
			Owner:       owner,
			Spender:     spender,
			Amount:      params.Amount,
			SignAndSend: params.SignAndSend,
		})
		if err != nil {
			return "", err
		}
	}

	data := common.FromHex(tx.Data)
	gas, err := p.evm.EstimateGas(ctx, ethereum.CallMsg{
		From:  owner,
		To:    &spender,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	buffer := params.Network.GasBufferPercent
	if buffer <= 0 {
		buffer = DefaultGasBufferPercent
	}
	gas = gas * uint64(buffer) / 100

	hash, err := params.SignAndSend(ctx, swap.EVMTx{
		From:  params.UserAddress,
		To:    tx.To,
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

	// Confirmation is tracked off the critical path; the hash is returned
	// as soon as the transaction is broadcast.
	go p.confirm(context.WithoutCancel(ctx), hash)

	return hash, nil
}

func (p *Provider) confirm(ctx context.Context, hash string) {
	receipt, err := p.evm.WaitForReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		p.logger.Warn("markr.confirmation_failed", zap.String("hash", hash), zap.Error(err))
		return
	}
	p.logger.Info("markr.swap_confirmed",
		zap.String("hash", hash),
		zap.Uint64("status", receipt.Status))
}

// minAmountOut applies the slippage floor to the quoted output, truncated to
// an integer base-unit amount. The partner fee percent is intentionally not
// applied here; it stays at zero until the fee schedule is settled.
func minAmountOut(amountOut string, slippagePercent float64) (string, error) {
	out, err := decimal.NewFromString(amountOut)
	if err != nil {
		return "", err
	}
	slip := decimal.NewFromFloat(slippagePercent).Div(decimal.NewFromInt(100))
	return out.Mul(decimal.NewFromInt(1).Sub(slip)).Truncate(0).String(), nil
}
