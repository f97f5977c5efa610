package jupiter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

// Client talks to the Jupiter HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Jupiter client. httpClient may be nil to use the
// default.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// GetQuote fetches a single-response quote for the pair.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, swapMode, amount string, slippageBps, platformFeeBps int64) (*QuoteResponse, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("swapMode", swapMode)
	q.Set("amount", amount)
	q.Set("slippageBps", strconv.FormatInt(slippageBps, 10))
	if platformFeeBps > 0 {
		q.Set("platformFeeBps", strconv.FormatInt(platformFeeBps, 10))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("jupiter.quote_http_error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return nil, fmt.Errorf("jupiter returned status %d", resp.StatusCode)
	}

	var quote QuoteResponse
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, swap.ErrInvalidQuoteData(err)
	}
	if quote.OutAmount == "" {
		return nil, swap.ErrInvalidQuoteData(fmt.Errorf("quote missing outAmount"))
	}
	return &quote, nil
}

// BuildSwap asks Jupiter to assemble the swap transaction. A response that
// embeds a simulation error is a failed build even when a transaction blob is
// present.
func (c *Client) BuildSwap(ctx context.Context, quote *QuoteResponse, userPublicKey, feeAccount string) (string, error) {
	body, err := json.Marshal(swapBuildRequest{
		QuoteResponse:           quote,
		UserPublicKey:           userPublicKey,
		DynamicComputeUnitLimit: true,
		FeeAccount:              feeAccount,
	})
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", swap.Abort(ctx.Err())
		}
		return "", swap.ErrCannotBuildTx(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("jupiter.swap_http_error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return "", swap.ErrCannotBuildTx(fmt.Errorf("jupiter returned status %d", resp.StatusCode))
	}

	var built swapBuildResponse
	if err := json.Unmarshal(raw, &built); err != nil {
		return "", swap.ErrCannotBuildTx(err)
	}
	if simErr := strings.TrimSpace(string(built.SimulationError)); simErr != "" && simErr != "null" {
		return "", swap.ErrCannotBuildTx(fmt.Errorf("simulation error: %s", simErr))
	}
	if built.SwapTransaction == "" {
		return "", swap.ErrCannotBuildTx(fmt.Errorf("empty swap transaction"))
	}
	return built.SwapTransaction, nil
}
