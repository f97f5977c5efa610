package paraswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexswap/pkg/allowance"
	"dexswap/pkg/chain"
	"dexswap/pkg/swap"
)

// Provider adapts Paraswap to the swap.Adapter contract.
type Provider struct {
	client    *Client
	evm       chain.EVM
	allowance *allowance.Manager
	logger    *zap.Logger
}

// NewProvider wires the Paraswap adapter.
func NewProvider(client *Client, evm chain.EVM, allowanceMgr *allowance.Manager, logger *zap.Logger) *Provider {
	return &Provider{client: client, evm: evm, allowance: allowanceMgr, logger: logger}
}

func (p *Provider) Kind() swap.Provider { return swap.ProviderParaswap }

// Supports reports true for EVM networks.
func (p *Provider) Supports(n swap.Network) bool { return !n.Solana }

// GetQuote validates the pair parameters and fetches a single optimal rate,
// wrapped as a one-element quote list.
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.QuoteResult, error) {
	if req.FromToken.Address == "" {
		return nil, swap.ErrMissingParam("fromTokenAddress")
	}
	if req.FromToken.Decimals == 0 {
		return nil, swap.ErrMissingParam("fromTokenDecimals")
	}
	if req.ToToken.Address == "" {
		return nil, swap.ErrMissingParam("toTokenAddress")
	}
	if req.ToToken.Decimals == 0 {
		return nil, swap.ErrMissingParam("toTokenDecimals")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, swap.ErrMissingParam("amount")
	}

	rate, err := p.client.GetRate(ctx, req)
	if err != nil {
		return nil, err
	}

	nq := swap.NormalizedQuote{
		Quote: rate,
		Metadata: swap.QuoteMetadata{
			AmountIn:  rate.SrcAmount,
			AmountOut: rate.DestAmount,
		},
	}
	return &swap.QuoteResult{
		Provider: swap.ProviderParaswap,
		Quotes:   []swap.NormalizedQuote{nq},
		Selected: nq,
	}, nil
}

// Swap executes a Paraswap quote: slippage/fee bounds, allowance top-up
// against the token transfer proxy, transaction build with retry, then
// signing.
func (p *Provider) Swap(ctx context.Context, params swap.SwapParams) (string, error) {
	rate, ok := params.Quote.Quote.(*OptimalRate)
	if !ok {
		actual := swap.Provider("unknown")
		if params.Quote.Quote != nil {
			actual = params.Quote.Quote.Provider()
		}
		return "", swap.ErrWrongQuoteProvider(actual)
	}
	if rate.SrcToken == "" || rate.DestToken == "" || rate.SrcAmount == "" || rate.DestAmount == "" {
		return "", swap.ErrInvalidQuoteData(nil)
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

	feePercent := 0.0
	if params.FeesEnabled {
		feePercent = float64(params.PlatformFeeBps) / 100
	}
	sourceAmount, destinationAmount, err := AdjustedAmounts(rate, params.SlippagePercent, feePercent)
	if err != nil {
		return "", swap.ErrInvalidQuoteData(err)
	}

	owner := common.HexToAddress(params.UserAddress)

	if !params.FromToken.Native {
		spender, err := p.client.GetSpender(ctx, params.Network.ChainID)
		if err != nil {
			return "", err
		}
		if !common.IsHexAddress(spender) {
			return "", swap.ErrCannotFetchSpender(nil)
		}

		required, ok := new(big.Int).SetString(sourceAmount, 10)
		if !ok {
			return "", swap.ErrInvalidQuoteData(nil)
		}
		err = p.allowance.EnsureAllowance(ctx, allowance.EnsureParams{
			Token:       common.HexToAddress(params.FromToken.Address),
			Owner:       owner,
			Spender:     common.HexToAddress(spender),
			Amount:      required,
			SignAndSend: params.SignAndSend,
		})
		if err != nil {
			return "", err
		}
	}

	tx, err := p.client.BuildTx(ctx, txRequest{
		SrcToken:     rate.SrcToken,
		SrcDecimals:  rate.SrcDecimals,
		DestToken:    rate.DestToken,
		DestDecimals: rate.DestDecimals,
		SrcAmount:    sourceAmount,
		DestAmount:   destinationAmount,
		PriceRoute:   rate,
		UserAddress:  params.UserAddress,
	})
	if err != nil {
		return "", err
	}

	value := new(big.Int)
	if tx.Value != "" {
		if _, ok := value.SetString(tx.Value, 10); !ok {
			return "", swap.ErrCannotBuildTx(nil)
		}
	}

	to := common.HexToAddress(tx.To)
	data := common.FromHex(tx.Data)
	gas := tx.Gas
	if gas == 0 {
		gas, err = p.evm.EstimateGas(ctx, ethereum.CallMsg{
			From:  owner,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return "", swap.ErrCannotBuildTx(err)
		}
	}

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

	p.logger.Info("paraswap.swap_submitted", zap.String("hash", hash))
	return hash, nil
}

// AdjustedAmounts applies the slippage and fee tolerance to the quoted
// amounts, truncated to integer base units. On a SELL the input stays fixed
// and the output gets a floor; on a BUY the output stays fixed and the input
// gets a ceiling.
func AdjustedAmounts(rate *OptimalRate, slippagePercent, feePercent float64) (sourceAmount, destinationAmount string, err error) {
	src, err := decimal.NewFromString(rate.SrcAmount)
	if err != nil {
		return "", "", err
	}
	dest, err := decimal.NewFromString(rate.DestAmount)
	if err != nil {
		return "", "", err
	}

	tolerance := decimal.NewFromFloat(slippagePercent).
		Add(decimal.NewFromFloat(feePercent)).
		Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)

	minAmount := dest.Mul(one.Sub(tolerance)).Truncate(0)
	maxAmount := src.Mul(one.Add(tolerance)).Truncate(0)

	if rate.Side == swap.SideBuy {
		return maxAmount.String(), dest.Truncate(0).String(), nil
	}
	return src.Truncate(0).String(), minAmount.String(), nil
}
