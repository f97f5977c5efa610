package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	networkFlag string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "dexswap",
	Short: "A CLI for multi-provider DEX token swaps",
	Long: `dexswap aggregates swap quotes from multiple liquidity providers
(Markr, Paraswap, Jupiter) across EVM and Solana networks, streams live
price discovery, and executes the selected quote.

Examples:
  dexswap quote 1 AVAX to USDC
  dexswap swap 0.5 AVAX to WAVAX --network avalanche
  dexswap swap 10 USDC to SOL --network solana
  dexswap status 0x1234... --network avalanche
  dexswap providers`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "Network to operate on (defaults to configured default)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
}

func newLogger() *zap.Logger {
	logConfig := zap.NewProductionConfig()
	if verboseFlag {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
