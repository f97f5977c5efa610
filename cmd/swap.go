package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const swapTimeout = 5 * time.Minute

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Execute a token swap through the best available quote",
	Long: `Fetch quotes for a token pair and execute the best one. ERC-20
swaps top up the spender allowance automatically before execution.

Examples:
  dexswap swap 1 AVAX to USDC
  dexswap swap 0.5 AVAX to WAVAX --network avalanche
  dexswap swap 10 USDC to SOL --network solana --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	outcome, err := fetchQuote(strings.Join(args, " "))
	if outcome != nil {
		defer outcome.close()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Println()
	outcome.render()
	fmt.Println()

	if !noConfirm && !confirmSwap() {
		fmt.Println("Swap cancelled.")
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing swap..."
	s.Start()

	if err := outcome.orch.Swap(); err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}

	select {
	case hash := <-outcome.swapSuccess:
		s.Stop()
		printSuccess(color.GreenString("Swap submitted: %s", hash))
	case err := <-outcome.swapFailure:
		s.Stop()
		printError(err)
		os.Exit(1)
	case <-time.After(swapTimeout):
		s.Stop()
		printError(fmt.Errorf("timed out waiting for swap to complete"))
		os.Exit(1)
	}
}

func confirmSwap() bool {
	fmt.Print("Proceed with this swap? (y/N): ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
