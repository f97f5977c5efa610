package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"dexswap/config"
	"dexswap/pkg/allowance"
	"dexswap/pkg/chain"
	"dexswap/pkg/jupiter"
	"dexswap/pkg/markr"
	"dexswap/pkg/paraswap"
	"dexswap/pkg/swap"
	"dexswap/pkg/wnative"
)

// session bundles everything a command needs to quote and swap on one
// network.
type session struct {
	cfg         *config.Config
	network     swap.Network
	registry    *swap.Registry
	userAddress string
	signEVM     swap.EVMSignFunc
	signSolana  swap.SolanaSignFunc
	logger      *zap.Logger
	closeFn     func()
}

func (s *session) close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// newSession resolves the network from config and wires the adapters that
// serve it.
func newSession(networkName string, logger *zap.Logger) (*session, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	network, err := cfg.Network(networkName)
	if err != nil {
		return nil, err
	}

	if network.Solana {
		return newSolanaSession(cfg, network, logger)
	}
	return newEVMSession(cfg, network, logger)
}

func newSolanaSession(cfg *config.Config, network swap.Network, logger *zap.Logger) (*session, error) {
	rpcClient := solrpc.New(network.RPCURL)
	signer, err := chain.NewSolanaSigner(rpcClient, cfg.Solana.PrivateKey, cfg.Solana.Commitment, logger)
	if err != nil {
		return nil, err
	}

	feeCollector := solana.PublicKey{}
	if cfg.Jupiter.FeeCollector != "" {
		feeCollector, err = solana.PublicKeyFromBase58(cfg.Jupiter.FeeCollector)
		if err != nil {
			return nil, fmt.Errorf("invalid jupiter fee collector address: %w", err)
		}
	}

	jup := jupiter.NewProvider(
		jupiter.NewClient(cfg.Jupiter.BaseURL, nil, logger),
		rpcClient, feeCollector, logger)

	return &session{
		cfg:         cfg,
		network:     network,
		registry:    swap.NewRegistry(jup),
		userAddress: signer.PublicKey().String(),
		signSolana:  signer.SignAndSend,
		logger:      logger,
	}, nil
}

func newEVMSession(cfg *config.Config, network swap.Network, logger *zap.Logger) (*session, error) {
	client, err := chain.Dial(network, logger)
	if err != nil {
		return nil, err
	}

	evmCfg := cfg.EVMNetworks[network.Name]
	signer, err := chain.NewKeySigner(client, evmCfg.PrivateKey, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	allowanceMgr := allowance.NewManager(client, logger)

	// Markr leads when configured; Paraswap is the fallback aggregator.
	var adapters []swap.Adapter
	if cfg.Markr.OrchestratorURL != "" {
		adapters = append(adapters, markr.NewProvider(
			markr.NewClient(cfg.Markr.OrchestratorURL, cfg.Markr.AppID, nil, logger),
			client, allowanceMgr, logger))
	}
	adapters = append(adapters,
		paraswap.NewProvider(
			paraswap.NewClient(cfg.Paraswap.BaseURL, cfg.Paraswap.Partner, nil, logger),
			client, allowanceMgr, logger),
		wnative.NewProvider(client, logger))

	return &session{
		cfg:         cfg,
		network:     network,
		registry:    swap.NewRegistry(adapters...),
		userAddress: signer.Address().Hex(),
		signEVM:     signer.SignAndSend,
		logger:      logger,
		closeFn:     client.Close,
	}, nil
}
