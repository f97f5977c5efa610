package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"dexswap/config"
	"dexswap/pkg/chain"
	"dexswap/pkg/swap"
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the on-chain status of a swap transaction",
	Long: `Look up a transaction by hash (EVM) or signature (Solana) and
report whether it succeeded, reverted, or has not been found yet.

Examples:
  dexswap status 0x1234... --network avalanche
  dexswap status 5Uj3... --network solana`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Get()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	network, err := cfg.Network(networkFlag)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if network.Solana {
		err = solanaStatus(ctx, network, args[0])
	} else {
		err = evmStatus(ctx, network, args[0])
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func evmStatus(ctx context.Context, network swap.Network, hash string) error {
	client, err := chain.Dial(network, newLogger())
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		// Not found is a distinct outcome from reverted: the transaction
		// may still be pending or may have been dropped.
		fmt.Printf("\nTransaction %s not found on %s (it may still be pending)\n\n", hash, network.Name)
		return nil
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		printSuccess(color.GreenString("Transaction succeeded in block %d (gas used: %d)",
			receipt.BlockNumber.Uint64(), receipt.GasUsed))
	} else {
		printError(fmt.Errorf("transaction reverted in block %d", receipt.BlockNumber.Uint64()))
	}
	return nil
}

func solanaStatus(ctx context.Context, network swap.Network, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("invalid transaction signature: %w", err)
	}

	client := solrpc.New(network.RPCURL)
	txInfo, err := client.GetTransaction(ctx, sig, &solrpc.GetTransactionOpts{
		Encoding: solana.EncodingBase64,
	})
	if err != nil || txInfo == nil {
		fmt.Printf("\nTransaction %s not found on solana (it may still be pending)\n\n", signature)
		return nil
	}

	if txInfo.Meta != nil && txInfo.Meta.Err != nil {
		printError(fmt.Errorf("transaction failed: %v", txInfo.Meta.Err))
		return nil
	}
	printSuccess(color.GreenString("Transaction confirmed in slot %d", txInfo.Slot))
	return nil
}
