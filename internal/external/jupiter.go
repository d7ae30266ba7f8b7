package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/solmirror/solmirror-backend/internal/httputil"
)

// JupiterClient talks to the Jupiter aggregator: price lookups for position
// monitoring and quote/swap construction for live execution.
type JupiterClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

type JupiterOptions struct {
	BaseURL string // overridable for tests
}

func NewJupiterClient(opts JupiterOptions) *JupiterClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://lite-api.jup.ag"
	}
	return &JupiterClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Jitter:      0.2,
		},
	}
}

// Price returns the current USD price for a mint.
func (j *JupiterClient) Price(ctx context.Context, mint string) (float64, error) {
	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			j.baseURL+"/price/v2?ids="+url.QueryEscape(mint), nil)
	})
	if err != nil {
		return 0, fmt.Errorf("jupiter price fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("jupiter price returned status %d", resp.StatusCode)
	}

	var data struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}

	entry, ok := data.Data[mint]
	if !ok || entry.Price == "" {
		return 0, fmt.Errorf("no price for %s", mint)
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid price %q for %s", entry.Price, mint)
	}
	return price, nil
}

// SwapQuote is the subset of the Jupiter quote response the executor needs.
// The full RoutePlan is retained opaquely for the swap request.
type SwapQuote struct {
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	InAmount    string          `json:"inAmount"`
	OutAmount   string          `json:"outAmount"`
	PriceImpact string          `json:"priceImpactPct"`
	SlippageBps int             `json:"slippageBps"`
	RoutePlan   json.RawMessage `json:"routePlan"`
	raw         json.RawMessage
}

// PriceImpactPct parses the quoted impact, 100 (worst case) when missing.
func (q *SwapQuote) PriceImpactPct() float64 {
	v, err := strconv.ParseFloat(q.PriceImpact, 64)
	if err != nil {
		return 100
	}
	return v
}

// Quote asks Jupiter for the best route swapping amount base units of
// inputMint into outputMint.
func (j *JupiterClient) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*SwapQuote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			j.baseURL+"/swap/v1/quote?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote returned status %d", resp.StatusCode)
	}

	raw := readAll(resp)
	var quote SwapQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	quote.raw = raw
	if quote.OutAmount == "" {
		return nil, fmt.Errorf("jupiter returned no route for %s -> %s", inputMint, outputMint)
	}
	return &quote, nil
}

// SwapTransaction asks Jupiter to build the serialized swap transaction for
// a quote. The result is a base64 unsigned transaction the caller signs and
// submits.
func (j *JupiterClient) SwapTransaction(ctx context.Context, quote *SwapQuote, userPublicKey string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"quoteResponse":             json.RawMessage(quote.raw),
		"userPublicKey":             userPublicKey,
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	})
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/swap/v1/swap", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jupiter swap returned status %d", resp.StatusCode)
	}

	var data struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if data.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter returned an empty swap transaction")
	}
	return data.SwapTransaction, nil
}

func readAll(resp *http.Response) []byte {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes()
}
