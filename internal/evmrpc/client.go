// Package evmrpc implements a JSON-RPC 2.0 client for EVM nodes, covering
// the three methods the ingestion layer needs: eth_blockNumber, eth_getLogs
// and eth_getTransactionReceipt. Log queries carry an adaptive block-range
// algorithm that degrades gracefully under provider span limits.
package evmrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/hexutil"
)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// MaxBlockSpan is the widest eth_getLogs range sent to a provider.
	// Public endpoints commonly reject anything above ~3000 blocks.
	MaxBlockSpan = 3000

	// MinBlockSpan is the narrowest range worth retrying. A rejection at or
	// below this span returns an empty result instead of recursing further.
	MinBlockSpan = 100
)

// Client issues JSON-RPC 2.0 calls over HTTP POST.
type Client struct {
	endpoint     string
	client       *http.Client
	log          logrus.FieldLogger
	observe      func(method string, seconds float64)
	observeRetry func()
	requestID    atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger used for per-item decode warnings.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithLatencyObserver registers a callback receiving per-call latency.
func WithLatencyObserver(fn func(method string, seconds float64)) ClientOption {
	return func(c *Client) {
		c.observe = fn
	}
}

// WithRangeRetryObserver registers a callback invoked on every range-halving
// retry of eth_getLogs.
func WithRangeRetryObserver(fn func()) ClientOption {
	return func(c *Client) {
		c.observeRetry = fn
	}
}

// NewClient creates a new EVM JSON-RPC client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a single JSON-RPC round trip. Transport and protocol errors
// are surfaced as-is; nothing here retries.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observe != nil {
		c.observe(method, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newProtocolError(resp.StatusCode, respBody)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, newProtocolError(resp.StatusCode, respBody)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// BlockNumber returns the current block height via eth_blockNumber.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}

	var hexNum string
	if err := json.Unmarshal(result, &hexNum); err != nil {
		return 0, newProtocolError(http.StatusOK, result)
	}

	n, err := hexutil.ParseQuantity(hexNum)
	if err != nil {
		return 0, fmt.Errorf("decode block number: %w", err)
	}
	return n, nil
}

// TransactionReceipt returns the receipt for a transaction hash via
// eth_getTransactionReceipt. A JSON null result means the transaction is
// unknown or pending and maps to (nil, nil), not an error.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var raw rawReceipt
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, newProtocolError(http.StatusOK, result)
	}

	return &Receipt{
		TxHash:          raw.TransactionHash,
		BlockNumber:     hexutil.QuantityOrZero(raw.BlockNumber),
		Status:          hexutil.QuantityOrZero(raw.Status),
		From:            raw.From,
		To:              raw.To,
		ContractAddress: raw.ContractAddress,
	}, nil
}
