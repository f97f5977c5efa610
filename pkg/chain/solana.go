package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// SolanaSigner signs transactions with a locally held key and broadcasts
// them through a Solana RPC client. Its SignAndSend method satisfies
// swap.SolanaSignFunc.
type SolanaSigner struct {
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewSolanaSigner parses a base58 private key and binds it to the client.
func NewSolanaSigner(client *rpc.Client, privateKeyBase58, commitment string, logger *zap.Logger) (*SolanaSigner, error) {
	if privateKeyBase58 == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &SolanaSigner{
		client:     client,
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		commitment: parseCommitment(commitment),
		logger:     logger,
	}, nil
}

// PublicKey returns the signer's account.
func (s *SolanaSigner) PublicKey() solana.PublicKey { return s.publicKey }

// SignAndSend signs the prepared transaction and broadcasts it.
func (s *SolanaSigner) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("solana.tx_sent", zap.String("signature", sig.String()))
	return sig, nil
}

func parseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
