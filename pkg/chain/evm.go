// Package chain wraps on-chain access for EVM networks: contract reads, gas
// estimation, transaction signing and broadcast, and receipt tracking.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

// ReceiptPollInterval is the delay between receipt lookups while waiting for
// a transaction to be mined.
const ReceiptPollInterval = 500 * time.Millisecond

// DefaultReceiptPollAttempts bounds receipt polling; past it the transaction
// is reported as not found rather than waited on forever.
const DefaultReceiptPollAttempts = 60

// EVM is the on-chain collaborator consumed by EVM swap providers and the
// allowance manager. Implementations must be safe for concurrent use.
type EVM interface {
	ChainID() int64
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Client is the ethclient-backed EVM implementation.
type Client struct {
	eth             *ethclient.Client
	chainID         int64
	logger          *zap.Logger
	receiptAttempts int
	receiptInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithReceiptPolicy overrides the receipt polling cadence and bound.
func WithReceiptPolicy(attempts int, interval time.Duration) ClientOption {
	return func(c *Client) {
		c.receiptAttempts = attempts
		c.receiptInterval = interval
	}
}

// Dial connects to the network's RPC endpoint.
func Dial(network swap.Network, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if network.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", network.Name)
	}
	eth, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	c := &Client{
		eth:             eth,
		chainID:         network.ChainID,
		logger:          logger,
		receiptAttempts: DefaultReceiptPollAttempts,
		receiptInterval: ReceiptPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ChainID() int64 { return c.chainID }

func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	return c.eth.CallContract(ctx, msg, nil)
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.eth.EstimateGas(ctx, msg)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, hash)
}

// WaitForReceipt polls for the transaction receipt at a fixed cadence. The
// attempt count is bounded; a transaction that never surfaces yields a typed
// transaction-not-found error instead of an endless wait.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	backoffCfg := backoff.NewConstantBackOff(c.receiptInterval)

	for attempt := 0; attempt < c.receiptAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, swap.Abort(ctx.Err())
		default:
		}

		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			return nil, swap.Abort(ctx.Err())
		case <-time.After(sleep):
		}
	}

	return nil, swap.ErrTransactionNotFound(hash.Hex())
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// KeySigner signs transactions with a locally held private key and broadcasts
// them through the client. Its SignAndSend method satisfies swap.EVMSignFunc.
type KeySigner struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger
}

// NewKeySigner parses a hex private key and binds it to the client.
func NewKeySigner(client *Client, privateKeyHex string, logger *zap.Logger) (*KeySigner, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key not configured")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}
	return &KeySigner{
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
		logger:     logger,
	}, nil
}

// Address returns the signer's account address.
func (s *KeySigner) Address() common.Address { return s.address }

// SignAndSend signs the request under EIP-155 and broadcasts it.
func (s *KeySigner) SignAndSend(ctx context.Context, tx swap.EVMTx, purpose swap.TxPurpose) (string, error) {
	if !common.IsHexAddress(tx.To) {
		return "", swap.ErrIncorrectTokenAddress(tx.To)
	}

	nonce, err := s.client.eth.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice := tx.GasPrice
	if gasPrice == nil {
		gasPrice, err = s.client.SuggestGasPrice(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get gas price: %w", err)
		}
	}

	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}

	rawTx := types.NewTransaction(nonce, common.HexToAddress(tx.To), value, tx.Gas, gasPrice, tx.Data)

	signedTx, err := types.SignTx(rawTx, types.NewEIP155Signer(big.NewInt(s.client.chainID)), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("evm.tx_sent",
		zap.String("hash", signedTx.Hash().Hex()),
		zap.String("to", tx.To),
		zap.String("purpose", string(purpose)),
		zap.Uint64("nonce", nonce))

	return signedTx.Hash().Hex(), nil
}
