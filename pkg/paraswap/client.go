package paraswap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

// BuildTxMaxAttempts bounds the transaction build retry loop.
const BuildTxMaxAttempts = 10

// Client talks to the Paraswap API.
type Client struct {
	baseURL string
	partner string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Paraswap client. httpClient may be nil to use the
// default.
func NewClient(baseURL, partner string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		partner: partner,
		http:    httpClient,
		logger:  logger,
	}
}

// GetRate fetches the optimal route for the pair.
func (c *Client) GetRate(ctx context.Context, req swap.QuoteRequest) (*OptimalRate, error) {
	q := url.Values{}
	q.Set("srcToken", req.FromToken.Address)
	q.Set("srcDecimals", strconv.Itoa(int(req.FromToken.Decimals)))
	q.Set("destToken", req.ToToken.Address)
	q.Set("destDecimals", strconv.Itoa(int(req.ToToken.Decimals)))
	q.Set("amount", req.Amount.String())
	q.Set("side", string(req.Side))
	q.Set("network", strconv.FormatInt(req.Network.ChainID, 10))
	if c.partner != "" {
		q.Set("partner", c.partner)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prices?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create price request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read price response: %w", err)
	}

	var priced priceResponse
	if err := json.Unmarshal(raw, &priced); err != nil {
		return nil, swap.ErrInvalidQuoteData(err)
	}
	if priced.Error != "" {
		return nil, fmt.Errorf("paraswap: %s", priced.Error)
	}
	if resp.StatusCode != http.StatusOK || priced.PriceRoute == nil {
		return nil, fmt.Errorf("paraswap returned status %d", resp.StatusCode)
	}
	return priced.PriceRoute, nil
}

// GetSpender resolves the token transfer proxy that must be approved before
// an ERC-20 swap.
func (c *Client) GetSpender(ctx context.Context, chainID int64) (string, error) {
	u := fmt.Sprintf("%s/adapters/contracts?network=%d", c.baseURL, chainID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", swap.ErrCannotFetchSpender(err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", swap.Abort(ctx.Err())
		}
		return "", swap.ErrCannotFetchSpender(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", swap.ErrCannotFetchSpender(fmt.Errorf("status %d", resp.StatusCode))
	}

	var contracts contractsResponse
	if err := json.NewDecoder(resp.Body).Decode(&contracts); err != nil {
		return "", swap.ErrCannotFetchSpender(err)
	}
	if contracts.TokenTransferProxy == "" {
		return "", swap.ErrCannotFetchSpender(fmt.Errorf("empty spender address"))
	}
	return contracts.TokenTransferProxy, nil
}

// BuildTx asks Paraswap to build the swap transaction. Error-shaped responses
// that look transient ("server too busy" and friends) are retried with no
// initial delay, up to BuildTxMaxAttempts.
func (c *Client) BuildTx(ctx context.Context, req txRequest) (*TxResponse, error) {
	if c.partner != "" && req.Partner == "" {
		req.Partner = c.partner
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < BuildTxMaxAttempts; attempt++ {
		if attempt > 0 {
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

		tx, retryable, err := c.buildTxOnce(ctx, body, req.PriceRoute.Network)
		if err == nil {
			return tx, nil
		}
		if swap.IsAborted(err) || !retryable {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("paraswap.build_tx_retry",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return nil, swap.ErrCannotBuildTx(lastErr)
}

func (c *Client) buildTxOnce(ctx context.Context, body []byte, chainID int64) (*TxResponse, bool, error) {
	u := fmt.Sprintf("%s/transactions/%d", c.baseURL, chainID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, false, swap.ErrCannotBuildTx(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, swap.Abort(ctx.Err())
		}
		return nil, true, fmt.Errorf("build request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read build response: %w", err)
	}

	var tx TxResponse
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, false, swap.ErrCannotBuildTx(err)
	}
	if tx.Error != "" {
		return nil, isTransientBuildError(tx.Error), fmt.Errorf("paraswap: %s", tx.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("paraswap returned status %d", resp.StatusCode)
	}
	if tx.To == "" || tx.Data == "" {
		return nil, false, swap.ErrCannotBuildTx(fmt.Errorf("malformed transaction response"))
	}
	return &tx, false, nil
}

func isTransientBuildError(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "server too busy") ||
		strings.Contains(lower, "try again") ||
		strings.Contains(lower, "timeout")
}
