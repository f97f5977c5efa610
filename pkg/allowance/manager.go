// Package allowance gates ERC-20 swaps on spender approval: it reads the
// current on-chain allowance and, only when it falls short, submits an
// approval transaction and waits for it to confirm.
package allowance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexswap/pkg/chain"
	"dexswap/pkg/swap"
)

// Manager checks and tops up ERC-20 allowances.
type Manager struct {
	evm    chain.EVM
	logger *zap.Logger
}

// NewManager creates an allowance manager over the given chain client.
func NewManager(evm chain.EVM, logger *zap.Logger) *Manager {
	return &Manager{evm: evm, logger: logger}
}

// EnsureParams carries one allowance check-and-approve request.
type EnsureParams struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
	// SignAndSend broadcasts the approval transaction when one is needed.
	SignAndSend swap.EVMSignFunc
}

// HasEnoughAllowance reads the on-chain allowance and compares it against the
// required amount. A failed read propagates as a typed error; it is never
// treated as either sufficient or insufficient.
func (m *Manager) HasEnoughAllowance(ctx context.Context, token, owner, spender common.Address, required *big.Int) (bool, error) {
	data, err := chain.PackAllowance(owner, spender)
	if err != nil {
		return false, swap.ErrCannotFetchAllowance(err)
	}

	result, err := m.evm.CallContract(ctx, token, data)
	if err != nil {
		return false, swap.ErrCannotFetchAllowance(err)
	}

	current := chain.UnpackAllowance(result)
	return current.Cmp(required) >= 0, nil
}

// EnsureAllowance is a no-op when the spender is already approved for the
// amount. Otherwise it submits an approval transaction and blocks until its
// receipt lands: a swap must never be attempted against a pending approval.
func (m *Manager) EnsureAllowance(ctx context.Context, params EnsureParams) error {
	enough, err := m.HasEnoughAllowance(ctx, params.Token, params.Owner, params.Spender, params.Amount)
	if err != nil {
		return err
	}
	if enough {
		return nil
	}

	data, err := chain.PackApprove(params.Spender, params.Amount)
	if err != nil {
		return swap.ErrCannotBuildTx(err)
	}

	token := params.Token
	gas, err := m.evm.EstimateGas(ctx, ethereum.CallMsg{
		From: params.Owner,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return swap.ErrCannotBuildTx(err)
	}

	hash, err := params.SignAndSend(ctx, swap.EVMTx{
		From: params.Owner.Hex(),
		To:   params.Token.Hex(),
		Data: data,
		Gas:  gas,
	}, swap.TxPurposeApproval)
	if err != nil {
		if swap.IsUserRejection(err) || swap.IsAborted(err) {
			return err
		}
		return swap.ErrApprovalTxFailed(err)
	}

	m.logger.Info("allowance.approval_submitted",
		zap.String("token", params.Token.Hex()),
		zap.String("spender", params.Spender.Hex()),
		zap.String("hash", hash))

	receipt, err := m.evm.WaitForReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if swap.IsAborted(err) {
			return err
		}
		return swap.ErrApprovalTxFailed(err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return swap.ErrApprovalTxFailed(nil)
	}

	return nil
}
