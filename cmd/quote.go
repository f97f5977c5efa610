package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"dexswap/pkg/markr"
	"dexswap/pkg/orchestrator"
	"dexswap/pkg/parser"
	"dexswap/pkg/paraswap"
	"dexswap/pkg/swap"
)

const quoteTimeout = 60 * time.Second

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Fetch live swap quotes across providers",
	Long: `Fetch quotes for a token pair. When the network's aggregation
orchestrator streams quotes, the ranking updates live as each aggregator
responds.

Examples:
  dexswap quote 1 AVAX to USDC
  dexswap quote 250 USDC to WAVAX --network avalanche
  dexswap quote 10 USDC to SOL --network solana`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

// quoteOutcome bundles a final quote result with the session that produced
// it, so follow-up steps (rendering, execution) share the wiring.
type quoteOutcome struct {
	result    *swap.QuoteResult
	orch      *orchestrator.Orchestrator
	sess      *session
	fromToken swap.Token
	toToken   swap.Token
	amount    string

	swapSuccess chan string
	swapFailure chan error
}

func runQuote(cmd *cobra.Command, args []string) {
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
}

func (o *quoteOutcome) close() {
	if o.orch != nil {
		o.orch.Close()
	}
	if o.sess != nil {
		o.sess.close()
	}
}

// fetchQuote drives one orchestrator session to a final quote result.
func fetchQuote(commandStr string) (*quoteOutcome, error) {
	swapReq, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	sess, err := newSession(networkFlag, logger)
	if err != nil {
		return nil, err
	}
	outcome := &quoteOutcome{
		sess:        sess,
		amount:      swapReq.Amount,
		swapSuccess: make(chan string, 1),
		swapFailure: make(chan error, 1),
	}

	outcome.fromToken, err = sess.cfg.Token(sess.network.Name, swapReq.SourceToken)
	if err != nil {
		return outcome, err
	}
	outcome.toToken, err = sess.cfg.Token(sess.network.Name, swapReq.DestToken)
	if err != nil {
		return outcome, err
	}
	amount, err := parser.AmountToBaseUnits(swapReq.Amount, outcome.fromToken.Decimals)
	if err != nil {
		return outcome, err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Fetching quotes for %s %s -> %s...", swapReq.Amount, outcome.fromToken.Symbol, outcome.toToken.Symbol)
	s.Start()
	defer s.Stop()

	doneCh := make(chan *swap.QuoteResult, 1)
	errCh := make(chan string, 1)

	outcome.orch = orchestrator.New(orchestrator.Config{
		Registry:        sess.registry,
		Network:         sess.network,
		UserAddress:     sess.userAddress,
		SignAndSend:     sess.signEVM,
		SignSolanaTx:    sess.signSolana,
		SlippagePercent: sess.cfg.SlippagePercent,
		FeesEnabled:     sess.cfg.FeesEnabled,
		PlatformFeeBps:  sess.cfg.PlatformFeeBps,
		Hooks: orchestrator.Hooks{
			OnQuote: func(result *swap.QuoteResult) {
				s.Suffix = fmt.Sprintf(" %d quote(s) received...", len(result.Quotes))
			},
			OnQuoteComplete: func(result *swap.QuoteResult) {
				doneCh <- result
			},
			OnQuoteError: func(message string) {
				errCh <- message
			},
			OnSwapSuccess: func(_ swap.Provider, txHash string) {
				outcome.swapSuccess <- txHash
			},
			OnSwapFailure: func(_ swap.Provider, err error) {
				outcome.swapFailure <- err
			},
		},
		Logger: logger,
	})

	outcome.orch.SetPair(outcome.fromToken, outcome.toToken)
	outcome.orch.SetAmount(amount)

	select {
	case result := <-doneCh:
		outcome.result = result
		return outcome, nil
	case message := <-errCh:
		return outcome, fmt.Errorf("%s", message)
	case <-time.After(quoteTimeout):
		return outcome, fmt.Errorf("timed out waiting for quotes")
	}
}

func (o *quoteOutcome) render() {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	bold.Printf("Provider: %s on %s\n\n", o.result.Provider, o.sess.network.Name)

	for i, q := range o.result.Quotes {
		marker := "  "
		if q == o.result.Selected {
			marker = green.Sprint("> ")
		}

		name := string(o.result.Provider)
		if mq, ok := q.Quote.(*markr.Quote); ok && mq.Aggregator.Name != "" {
			name = mq.Aggregator.Name
		}

		out := parser.FormatBaseUnits(q.Metadata.AmountOut, o.toToken.Decimals)
		fmt.Printf("%s%d. %-16s out: %s %s  (rate %s)\n",
			marker, i+1, name,
			cyan.Sprint(out), o.toToken.Symbol,
			o.rate(q).StringFixed(6))
	}
}

func (o *quoteOutcome) rate(q swap.NormalizedQuote) decimal.Decimal {
	srcDecimals := o.fromToken.Decimals
	dstDecimals := o.toToken.Decimals
	switch pq := q.Quote.(type) {
	case *markr.Quote:
		srcDecimals, dstDecimals = pq.TokenInDecimals, pq.TokenOutDecimals
	case *paraswap.OptimalRate:
		srcDecimals, dstDecimals = pq.SrcDecimals, pq.DestDecimals
	}
	return swap.CalculateRate(q, srcDecimals, dstDecimals)
}
