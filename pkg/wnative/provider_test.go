package wnative

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

const (
	wavax = "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"
	usdc  = "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"
	owner = "0x92e658B5962B0A804A24f0e40ab7e77b70b5e148"
)

type fakeEVM struct {
	gas          uint64
	estimateErr  error
	lastEstimate ethereum.CallMsg
}

func (e *fakeEVM) ChainID() int64 { return 43114 }
func (e *fakeEVM) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, nil
}
func (e *fakeEVM) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	e.lastEstimate = msg
	return e.gas, e.estimateErr
}
func (e *fakeEVM) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (e *fakeEVM) WaitForReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	return nil, nil
}
func (e *fakeEVM) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	return nil, nil
}

func evmNetwork() swap.Network {
	return swap.Network{Name: "avalanche", ChainID: 43114, WrappedNativeAddress: wavax}
}

func TestHandles(t *testing.T) {
	tests := []struct {
		name string
		req  swap.QuoteRequest
		want bool
	}{
		{
			name: "native to wrapped",
			req: swap.QuoteRequest{
				Network:   evmNetwork(),
				FromToken: swap.Token{Native: true},
				ToToken:   swap.Token{Address: wavax},
			},
			want: true,
		},
		{
			name: "wrapped to native",
			req: swap.QuoteRequest{
				Network:   evmNetwork(),
				FromToken: swap.Token{Address: wavax},
				ToToken:   swap.Token{Native: true},
			},
			want: true,
		},
		{
			name: "case-insensitive address match",
			req: swap.QuoteRequest{
				Network:   evmNetwork(),
				FromToken: swap.Token{Native: true},
				ToToken:   swap.Token{Address: "0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7"},
			},
			want: true,
		},
		{
			name: "native to unrelated token",
			req: swap.QuoteRequest{
				Network:   evmNetwork(),
				FromToken: swap.Token{Native: true},
				ToToken:   swap.Token{Address: usdc},
			},
			want: false,
		},
		{
			name: "no wrap contract configured",
			req: swap.QuoteRequest{
				Network:   swap.Network{Name: "avalanche", ChainID: 43114},
				FromToken: swap.Token{Native: true},
				ToToken:   swap.Token{Address: wavax},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Handles(tt.req))
		})
	}
}

func TestGetQuoteIsOneToOne(t *testing.T) {
	p := NewProvider(&fakeEVM{}, zap.NewNop())

	result, err := p.GetQuote(context.Background(), swap.QuoteRequest{
		Network:   evmNetwork(),
		FromToken: swap.Token{Native: true},
		ToToken:   swap.Token{Address: wavax},
		Amount:    big.NewInt(500),
	})
	require.NoError(t, err)
	require.Len(t, result.Quotes, 1)

	assert.Equal(t, "500", result.Selected.Metadata.AmountIn)
	assert.Equal(t, "500", result.Selected.Metadata.AmountOut)

	quote, ok := result.Selected.Quote.(*Quote)
	require.True(t, ok)
	assert.Equal(t, OpWrap, quote.Operation)
	assert.Equal(t, wavax, quote.Contract)

	rate := swap.CalculateRate(result.Selected, 18, 18)
	assert.Equal(t, "1", rate.String())
}

func TestGetQuoteUnwrapDirection(t *testing.T) {
	p := NewProvider(&fakeEVM{}, zap.NewNop())

	result, err := p.GetQuote(context.Background(), swap.QuoteRequest{
		Network:   evmNetwork(),
		FromToken: swap.Token{Address: wavax},
		ToToken:   swap.Token{Native: true},
		Amount:    big.NewInt(1000),
	})
	require.NoError(t, err)
	quote := result.Selected.Quote.(*Quote)
	assert.Equal(t, OpUnwrap, quote.Operation)
}

func TestGetQuoteRejectsUnrelatedPair(t *testing.T) {
	p := NewProvider(&fakeEVM{}, zap.NewNop())

	_, err := p.GetQuote(context.Background(), swap.QuoteRequest{
		Network:   evmNetwork(),
		FromToken: swap.Token{Native: true},
		ToToken:   swap.Token{Address: usdc},
		Amount:    big.NewInt(500),
	})
	assert.Equal(t, swap.KindIncorrectTokenAddress, swap.KindOf(err))
}

func TestSwapWrapSendsValue(t *testing.T) {
	evm := &fakeEVM{gas: 42000}
	p := NewProvider(evm, zap.NewNop())

	var sent swap.EVMTx
	hash, err := p.Swap(context.Background(), swap.SwapParams{
		Network:     evmNetwork(),
		UserAddress: owner,
		Quote: swap.NormalizedQuote{Quote: &Quote{
			Operation: OpWrap,
			Contract:  wavax,
			Amount:    big.NewInt(500),
		}},
		SignAndSend: func(_ context.Context, tx swap.EVMTx, purpose swap.TxPurpose) (string, error) {
			sent = tx
			assert.Equal(t, swap.TxPurposeSwap, purpose)
			return "0xhash", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)

	// Deposit carries the wrapped amount as transaction value.
	assert.Equal(t, "500", sent.Value.String())
	assert.Equal(t, wavax, sent.To)
	assert.Equal(t, uint64(42000), sent.Gas)
	assert.NotEmpty(t, sent.Data)
}

func TestSwapUnwrapSendsZeroValue(t *testing.T) {
	evm := &fakeEVM{gas: 42000}
	p := NewProvider(evm, zap.NewNop())

	var sent swap.EVMTx
	_, err := p.Swap(context.Background(), swap.SwapParams{
		Network:     evmNetwork(),
		UserAddress: owner,
		Quote: swap.NormalizedQuote{Quote: &Quote{
			Operation: OpUnwrap,
			Contract:  wavax,
			Amount:    big.NewInt(500),
		}},
		SignAndSend: func(_ context.Context, tx swap.EVMTx, _ swap.TxPurpose) (string, error) {
			sent = tx
			return "0xhash", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "0", sent.Value.String())
}

func TestSwapRejectsForeignQuote(t *testing.T) {
	p := NewProvider(&fakeEVM{}, zap.NewNop())

	_, err := p.Swap(context.Background(), swap.SwapParams{
		Quote: swap.NormalizedQuote{Quote: &foreignQuote{}},
	})
	assert.Equal(t, swap.KindWrongQuoteProvider, swap.KindOf(err))
}

type foreignQuote struct{}

func (*foreignQuote) Provider() swap.Provider { return swap.ProviderParaswap }

func TestSwapUserRejectionPropagatesRaw(t *testing.T) {
	p := NewProvider(&fakeEVM{gas: 42000}, zap.NewNop())

	rejection := &swap.RejectionError{Code: swap.UserRejectionCode}
	_, err := p.Swap(context.Background(), swap.SwapParams{
		Network:     evmNetwork(),
		UserAddress: owner,
		Quote: swap.NormalizedQuote{Quote: &Quote{
			Operation: OpWrap,
			Contract:  wavax,
			Amount:    big.NewInt(500),
		}},
		SignAndSend: func(context.Context, swap.EVMTx, swap.TxPurpose) (string, error) {
			return "", rejection
		},
	})
	assert.True(t, errors.Is(err, rejection))
	assert.NotEqual(t, swap.KindSwapTxFailed, swap.KindOf(err))
}

func TestSwapGasEstimateFailure(t *testing.T) {
	p := NewProvider(&fakeEVM{estimateErr: errors.New("execution reverted")}, zap.NewNop())

	_, err := p.Swap(context.Background(), swap.SwapParams{
		Network:     evmNetwork(),
		UserAddress: owner,
		Quote: swap.NormalizedQuote{Quote: &Quote{
			Operation: OpWrap,
			Contract:  wavax,
			Amount:    big.NewInt(500),
		}},
		SignAndSend: func(context.Context, swap.EVMTx, swap.TxPurpose) (string, error) {
			t.Fatal("sign must not be reached when estimation fails")
			return "", nil
		},
	})
	assert.Equal(t, swap.KindCannotBuildTx, swap.KindOf(err))
}
