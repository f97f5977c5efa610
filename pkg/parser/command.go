package parser

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SwapCommand is the parsed form of a natural-language swap request.
type SwapCommand struct {
	Amount      string
	SourceToken string
	DestToken   string
}

var commandPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 AVAX to USDC"
//   - "1.5 WAVAX to USDT"
//   - "100 USDC to SOL"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '1 AVAX to USDC')")
	}

	return &SwapCommand{
		Amount:      matches[1],
		SourceToken: matches[2],
		DestToken:   matches[3],
	}, nil
}

// AmountToBaseUnits converts a human-readable amount into base units for the
// given token decimals. The conversion is exact: an amount with more
// fractional digits than the token supports is rejected rather than rounded.
func AmountToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", amount)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// FormatBaseUnits renders a base-unit integer string with decimals applied.
// Unparsable input renders as-is.
func FormatBaseUnits(amount string, decimals uint8) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.Shift(-int32(decimals)).String()
}
