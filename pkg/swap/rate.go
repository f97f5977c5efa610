package swap

import (
	"github.com/shopspring/decimal"
)

// CalculateRate converts a normalized quote into a human-displayable exchange
// rate (destination tokens per source token). Wrap and unwrap quotes are
// always exactly 1. Missing or unparsable amounts yield 0, never an error.
func CalculateRate(q NormalizedQuote, srcDecimals, destDecimals uint8) decimal.Decimal {
	if q.Quote != nil && q.Quote.Provider() == ProviderWNative {
		return decimal.NewFromInt(1)
	}

	if q.Metadata.AmountIn == "" || q.Metadata.AmountOut == "" {
		return decimal.Zero
	}
	amountIn, err := decimal.NewFromString(q.Metadata.AmountIn)
	if err != nil || amountIn.IsZero() {
		return decimal.Zero
	}
	amountOut, err := decimal.NewFromString(q.Metadata.AmountOut)
	if err != nil {
		return decimal.Zero
	}

	src := amountIn.Shift(-int32(srcDecimals))
	dst := amountOut.Shift(-int32(destDecimals))
	if src.IsZero() {
		return decimal.Zero
	}
	return dst.DivRound(src, 18)
}
