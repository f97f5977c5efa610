package jupiter

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

// Confirmation polling cadence and bound. The bound turns a dropped
// transaction into a typed transaction-not-found outcome instead of an
// endless poll.
const (
	ConfirmPollInterval        = 500 * time.Millisecond
	DefaultConfirmPollAttempts = 60
)

// RPC is the Solana chain collaborator the provider needs.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Provider adapts Jupiter to the swap.Adapter contract.
type Provider struct {
	client          *Client
	rpc             RPC
	feeCollector    solana.PublicKey
	confirmAttempts int
	confirmInterval time.Duration
	logger          *zap.Logger
}

// NewProvider wires the Jupiter adapter. feeCollector may be the zero key to
// disable partner fee collection entirely.
func NewProvider(client *Client, rpcClient RPC, feeCollector solana.PublicKey, logger *zap.Logger) *Provider {
	return &Provider{
		client:          client,
		rpc:             rpcClient,
		feeCollector:    feeCollector,
		confirmAttempts: DefaultConfirmPollAttempts,
		confirmInterval: ConfirmPollInterval,
		logger:          logger,
	}
}

func (p *Provider) Kind() swap.Provider { return swap.ProviderJupiter }

// Supports reports true for Solana networks.
func (p *Provider) Supports(n swap.Network) bool { return n.Solana }

// GetQuote fetches a single-response quote, mapping the destination side onto
// Jupiter's swap mode.
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.QuoteResult, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, swap.ErrMissingParam("amount")
	}
	if _, err := solana.PublicKeyFromBase58(req.FromToken.Address); err != nil {
		return nil, swap.ErrIncorrectTokenAddress(req.FromToken.Address)
	}
	if _, err := solana.PublicKeyFromBase58(req.ToToken.Address); err != nil {
		return nil, swap.ErrIncorrectTokenAddress(req.ToToken.Address)
	}
	if !swap.ValidSlippage(req.SlippagePercent) {
		return nil, swap.ErrMissingParam("slippage")
	}

	swapMode := SwapModeExactIn
	if req.Side == swap.SideBuy {
		swapMode = SwapModeExactOut
	}
	slippageBps := int64(req.SlippagePercent * 100)

	quote, err := p.client.GetQuote(ctx,
		req.FromToken.Address, req.ToToken.Address,
		swapMode, req.Amount.String(),
		slippageBps, req.PlatformFeeBps)
	if err != nil {
		return nil, err
	}

	nq := swap.NormalizedQuote{
		Quote: quote,
		Metadata: swap.QuoteMetadata{
			AmountIn:  quote.InAmount,
			AmountOut: quote.OutAmount,
		},
	}
	return &swap.QuoteResult{
		Provider: swap.ProviderJupiter,
		Quotes:   []swap.NormalizedQuote{nq},
		Selected: nq,
	}, nil
}

// Swap builds, signs, and broadcasts a Jupiter swap. The signature is
// returned as soon as the transaction is sent; confirmation is polled off the
// critical path.
func (p *Provider) Swap(ctx context.Context, params swap.SwapParams) (string, error) {
	quote, ok := params.Quote.Quote.(*QuoteResponse)
	if !ok {
		actual := swap.Provider("unknown")
		if params.Quote.Quote != nil {
			actual = params.Quote.Quote.Provider()
		}
		return "", swap.ErrWrongQuoteProvider(actual)
	}
	if params.SignSolanaTx == nil {
		return "", swap.ErrMissingParam("signSolanaTx")
	}
	if _, err := solana.PublicKeyFromBase58(params.UserAddress); err != nil {
		return "", swap.ErrMissingParam("userAddress")
	}

	feeAccount := ""
	if params.FeesEnabled && !p.feeCollector.IsZero() {
		feeAccount = p.resolveFeeAccount(ctx, quote, params.Network.NativeMint, params.OnFeeAccountNotInitialized)
	}

	encodedTx, err := p.client.BuildSwap(ctx, quote, params.UserAddress, feeAccount)
	if err != nil {
		return "", err
	}

	tx, err := solana.TransactionFromBase64(encodedTx)
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	sig, err := params.SignSolanaTx(ctx, tx)
	if err != nil {
		if swap.IsUserRejection(err) || swap.IsAborted(err) {
			return "", err
		}
		return "", swap.ErrSwapTxFailed(err)
	}
	if sig.IsZero() {
		return "", swap.ErrSwapTxFailed(nil)
	}

	go p.confirm(context.WithoutCancel(ctx), sig)

	return sig.String(), nil
}

// FeeMintCandidates returns the ordered fee-mint preference for a quote: the
// network's native SOL mint when it is one of the pair's legs, otherwise the
// fixed leg first (input for ExactOut, output for ExactIn).
func FeeMintCandidates(quote *QuoteResponse, nativeMint string) []string {
	if nativeMint != "" {
		if quote.InputMint == nativeMint {
			return []string{nativeMint, quote.OutputMint}
		}
		if quote.OutputMint == nativeMint {
			return []string{nativeMint, quote.InputMint}
		}
	}
	if quote.SwapMode == SwapModeExactOut {
		return []string{quote.InputMint, quote.OutputMint}
	}
	return []string{quote.OutputMint, quote.InputMint}
}

// resolveFeeAccount walks the fee-mint candidates and returns the first whose
// associated token account for the fee collector exists on-chain. When none
// is initialized the swap proceeds with no fee collection; each miss is
// reported through the telemetry hook.
func (p *Provider) resolveFeeAccount(ctx context.Context, quote *QuoteResponse, nativeMint string, onMiss func(mint string)) string {
	for _, mintAddr := range FeeMintCandidates(quote, nativeMint) {
		mint, err := solana.PublicKeyFromBase58(mintAddr)
		if err != nil {
			continue
		}
		ata, _, err := solana.FindAssociatedTokenAddress(p.feeCollector, mint)
		if err != nil {
			continue
		}

		exists, err := p.accountExists(ctx, ata)
		if err != nil {
			p.logger.Warn("jupiter.fee_account_check_failed",
				zap.String("mint", mintAddr), zap.Error(err))
			continue
		}
		if exists {
			return ata.String()
		}
		if onMiss != nil {
			onMiss(mintAddr)
		}
	}
	return ""
}

func (p *Provider) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := p.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, err
	}
	return info != nil && info.Value != nil, nil
}

// confirm polls for the transaction at a fixed cadence until it lands or the
// attempt bound runs out.
func (p *Provider) confirm(ctx context.Context, sig solana.Signature) {
	for attempt := 0; attempt < p.confirmAttempts; attempt++ {
		txInfo, err := p.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding: solana.EncodingBase64,
		})
		if err == nil && txInfo != nil {
			if txInfo.Meta != nil && txInfo.Meta.Err != nil {
				p.logger.Warn("jupiter.swap_reverted",
					zap.String("signature", sig.String()),
					zap.Any("error", txInfo.Meta.Err))
				return
			}
			p.logger.Info("jupiter.swap_confirmed",
				zap.String("signature", sig.String()),
				zap.Uint64("slot", txInfo.Slot))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.confirmInterval):
		}
	}

	p.logger.Warn("jupiter.confirmation_timeout",
		zap.String("signature", sig.String()),
		zap.Error(swap.ErrTransactionNotFound(sig.String())))
}
