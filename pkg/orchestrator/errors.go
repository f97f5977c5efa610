package orchestrator

import (
	"dexswap/pkg/swap"
)

// HumanizeError maps a failure onto the string shown to the user. Aborts and
// user rejections never reach this point.
func HumanizeError(err error) string {
	switch swap.KindOf(err) {
	case swap.KindMissingParam, swap.KindIncorrectTokenAddress:
		return "Invalid swap parameters. Please review the token pair and amount."
	case swap.KindNetworkNotSupported:
		return "This network is not supported for swaps."
	case swap.KindWrongQuoteProvider:
		return "The selected quote is no longer valid. Please refresh and try again."
	case swap.KindInvalidQuoteData:
		return "Received an invalid quote. Please try again."
	case swap.KindCannotBuildTx:
		return "Unable to build the swap transaction. Please try again."
	case swap.KindCannotFetchAllowance:
		return "Unable to check the token allowance. Please try again."
	case swap.KindCannotFetchSpender:
		return "Unable to resolve the swap contract. Please try again."
	case swap.KindApprovalTxFailed:
		return "The token approval transaction failed."
	case swap.KindSwapTxFailed:
		return "The swap transaction failed."
	case swap.KindTransactionNotFound:
		return "The transaction could not be found on-chain."
	default:
		return "Swap quote failed. Please try again."
	}
}
