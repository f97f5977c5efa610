package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"dexswap/pkg/swap"
)

func TestHumanizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing param", swap.ErrMissingParam("amount"), "Invalid swap parameters. Please review the token pair and amount."},
		{"bad token address", swap.ErrIncorrectTokenAddress("0x00"), "Invalid swap parameters. Please review the token pair and amount."},
		{"invalid quote data", swap.ErrInvalidQuoteData(nil), "Received an invalid quote. Please try again."},
		{"swap failed", swap.ErrSwapTxFailed(nil), "The swap transaction failed."},
		{"approval failed", swap.ErrApprovalTxFailed(nil), "The token approval transaction failed."},
		{"tx not found", swap.ErrTransactionNotFound("0x1234"), "The transaction could not be found on-chain."},
		{"foreign error", errors.New("dial tcp: connection refused"), "Swap quote failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeError(tt.err))
		})
	}
}

func TestHumanizeErrorNeverLeaksCause(t *testing.T) {
	err := swap.ErrCannotBuildTx(errors.New("secret-internal-detail"))
	assert.NotContains(t, HumanizeError(err), "secret-internal-detail")
}
