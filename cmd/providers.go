package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dexswap/config"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured networks, providers, and tokens",
	Run:   runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) {
	cfg, err := config.Get()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	names := make([]string, 0, len(cfg.EVMNetworks))
	for name := range cfg.EVMNetworks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	for _, name := range names {
		n := cfg.EVMNetworks[name]
		bold.Printf("%s", name)
		if name == cfg.DefaultNetwork {
			fmt.Print(" (default)")
		}
		fmt.Printf("  chain-id %d\n", n.ChainID)

		providers := []string{"paraswap", "wnative"}
		if cfg.Markr.OrchestratorURL != "" {
			providers = append([]string{"markr"}, providers...)
		}
		fmt.Printf("  providers: %s\n", cyan.Sprint(strings.Join(providers, ", ")))
		fmt.Printf("  tokens:    %s\n\n", tokenList(n.Tokens))
	}

	if cfg.Solana.RPCURL != "" {
		bold.Print("solana")
		if cfg.DefaultNetwork == "solana" {
			fmt.Print(" (default)")
		}
		fmt.Println()
		fmt.Printf("  providers: %s\n", cyan.Sprint("jupiter"))
		fmt.Printf("  tokens:    %s\n\n", tokenList(cfg.Solana.Tokens))
	}
}

func tokenList(tokens map[string]config.TokenConfig) string {
	if len(tokens) == 0 {
		return "(none configured)"
	}
	symbols := make([]string, 0, len(tokens))
	for symbol := range tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return strings.Join(symbols, ", ")
}
