package markr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"dexswap/pkg/swap"
)

// Client talks to a Markr orchestrator instance.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Markr client. httpClient may be nil to use the default.
func NewClient(baseURL, appID string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		appID:   appID,
		http:    httpClient,
		logger:  logger,
	}
}

// StreamQuotes opens the streaming quote endpoint and consumes it to
// completion, invoking onUpdate per accepted event. The returned list is the
// final sorted set of quotes.
func (c *Client) StreamQuotes(ctx context.Context, req quoteRequest, onUpdate UpdateFunc) ([]*Quote, error) {
	req.AppID = c.appID

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Warn("markr.quote_http_error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return nil, fmt.Errorf("markr returned status %d", resp.StatusCode)
	}

	parser := NewStreamParser(onUpdate)
	quotes, err := parser.Consume(ctx, resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("markr.stream_complete", zap.Int("quotes", len(quotes)))
	return quotes, nil
}

// BuildSwapTx asks the orchestrator to build the transaction for a selected
// quote. The response is validated strictly: a malformed transaction is a
// hard error, never silently accepted.
func (c *Client) BuildSwapTx(ctx context.Context, req swapRequest) (*SwapTransaction, error) {
	req.AppID = c.appID

	body, err := json.Marshal(req)
	if err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}
		return nil, swap.ErrCannotBuildTx(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("markr.swap_http_error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return nil, swap.ErrCannotBuildTx(fmt.Errorf("markr returned status %d", resp.StatusCode))
	}

	var tx SwapTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}
	if err := validateSwapTransaction(&tx); err != nil {
		return nil, swap.ErrCannotBuildTx(err)
	}
	return &tx, nil
}

func validateSwapTransaction(tx *SwapTransaction) error {
	if !common.IsHexAddress(tx.To) {
		return fmt.Errorf("malformed swap transaction: bad to address %q", tx.To)
	}
	if tx.Data == "" {
		return fmt.Errorf("malformed swap transaction: empty calldata")
	}
	if _, err := parseTxValue(tx.Value); err != nil {
		return err
	}
	return nil
}

// parseTxValue accepts the transaction value as a decimal or 0x-hex string.
// An empty value means zero.
func parseTxValue(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	base := 10
	digits := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		digits = value[2:]
	}
	parsed, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("malformed swap transaction: bad value %q", value)
	}
	return parsed, nil
}
