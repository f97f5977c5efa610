package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ABI fragments for the contract calls the swap path needs.
const (
	erc20ABI = `[
		{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
	]`
	wrappedNativeABI = `[
		{"constant":false,"inputs":[],"name":"deposit","outputs":[],"payable":true,"type":"function"},
		{"constant":false,"inputs":[{"name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"type":"function"}
	]`
)

var (
	erc20   = mustParseABI(erc20ABI)
	wrapped = mustParseABI(wrappedNativeABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid embedded ABI: %v", err))
	}
	return parsed
}

// PackAllowance encodes an ERC-20 allowance(owner, spender) call.
func PackAllowance(owner, spender common.Address) ([]byte, error) {
	data, err := erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}
	return data, nil
}

// UnpackAllowance decodes the uint256 result of an allowance call.
func UnpackAllowance(result []byte) *big.Int {
	return new(big.Int).SetBytes(result)
}

// PackApprove encodes an ERC-20 approve(spender, amount) call.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return data, nil
}

// PackDeposit encodes the wrapped-native deposit() call. The native amount
// travels in the transaction value.
func PackDeposit() ([]byte, error) {
	data, err := wrapped.Pack("deposit")
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit data: %w", err)
	}
	return data, nil
}

// PackWithdraw encodes the wrapped-native withdraw(amount) call.
func PackWithdraw(amount *big.Int) ([]byte, error) {
	data, err := wrapped.Pack("withdraw", amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw data: %w", err)
	}
	return data, nil
}
