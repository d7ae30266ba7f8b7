package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/solmirror/solmirror-backend/internal/httputil"
)

// ErrRateLimited is returned when the endpoint keeps answering 429 after the
// whole retry budget has been spent. Callers treat it like a transport
// failure: warn and retry the wallet next cycle.
var ErrRateLimited = errors.New("rpc rate limit exceeded after retries")

const lamportsPerSOL = 1e9

// Client is a rate-limited Solana JSON-RPC client. All callers of the same
// endpoint must share one Client so bursts from one pipeline stage cannot
// starve another: the token bucket is the single serialization point for
// outbound RPC traffic.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      httputil.RetryConfig
	reqID      atomic.Int64
}

func NewClient(endpoint string, requestsPerMinute int, retry httputil.RetryConfig) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 6
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerMinute)/60.0, 1),
		retry:      retry,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call waits for a rate-limit slot, issues the request with retries, and
// decodes the JSON-RPC result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "HTTP 429") {
			return fmt.Errorf("%w: %s", ErrRateLimited, method)
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// GetSignaturesForAddress fetches recent transaction signatures for a wallet,
// newest first. until bounds the scan at an already-seen signature.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int, until string) ([]SignatureInfo, error) {
	opts := map[string]any{
		"limit":      limit,
		"commitment": "finalized",
	}
	if until != "" {
		opts["until"] = until
	}

	var sigs []SignatureInfo
	if err := c.call(ctx, "getSignaturesForAddress", []any{address, opts}, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// GetTransaction fetches a finalized transaction with full metadata.
// Returns (nil, nil) when the node has no record of the signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	opts := map[string]any{
		"commitment":                     "finalized",
		"encoding":                       "json",
		"maxSupportedTransactionVersion": 0,
	}

	var tx *Transaction
	if err := c.call(ctx, "getTransaction", []any{signature, opts}, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SendTransaction broadcasts a signed, base64-encoded transaction and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	opts := map[string]any{
		"encoding":            "base64",
		"preflightCommitment": "confirmed",
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", []any{txBase64, opts}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// GetBalance returns the wallet's SOL balance.
func (c *Client) GetBalance(ctx context.Context, address string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address, map[string]any{"commitment": "finalized"}}, &result); err != nil {
		return 0, err
	}
	return float64(result.Value) / lamportsPerSOL, nil
}
