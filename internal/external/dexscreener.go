package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/solmirror/solmirror-backend/internal/httputil"
	"github.com/solmirror/solmirror-backend/internal/models"
)

// DexScreenerClient fetches token market data and trending pairs. Token
// lookups are cached per mint for the configured TTL so one cycle touching
// the same token many times costs a single upstream request.
type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig

	mu    sync.Mutex
	cache map[string]models.TokenInfo
	ttl   time.Duration

	now func() time.Time
}

type DexScreenerOptions struct {
	BaseURL  string // overridable for tests
	CacheTTL time.Duration
}

func NewDexScreenerClient(opts DexScreenerOptions) *DexScreenerClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &DexScreenerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      map[string]models.TokenInfo{},
		ttl:        ttl,
		now:        time.Now,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Jitter:      0.2,
		},
	}
}

// pair is the slice of the DexScreener pair schema we read. priceUsd comes
// back as a string.
type pair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	URL       string `json:"url"`
	PriceUSD  string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// TokenInfo returns market data for a mint, served from cache while fresh.
// The deepest Solana pool for the mint is taken as the reference market.
func (d *DexScreenerClient) TokenInfo(ctx context.Context, mint string) (models.TokenInfo, error) {
	d.mu.Lock()
	if cached, ok := d.cache[mint]; ok && d.now().Sub(cached.FetchedAt) < d.ttl {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	pairs, err := d.fetchPairs(ctx, "/latest/dex/tokens/"+mint)
	if err != nil {
		return models.TokenInfo{}, err
	}

	best, ok := deepestSolanaPair(pairs, mint)
	if !ok {
		return models.TokenInfo{}, fmt.Errorf("no solana market found for %s", mint)
	}

	price, _ := strconv.ParseFloat(best.PriceUSD, 64)
	info := models.TokenInfo{
		Symbol:         best.BaseToken.Symbol,
		Mint:           mint,
		PriceUSD:       price,
		LiquidityUSD:   best.Liquidity.USD,
		DailyVolumeUSD: best.Volume.H24,
		FetchedAt:      d.now(),
	}

	d.mu.Lock()
	d.cache[mint] = info
	d.mu.Unlock()

	fmt.Printf("[DEXSCREENER] %s: $%.6f, liquidity $%.0f, 24h volume $%.0f\n",
		info.Symbol, info.PriceUSD, info.LiquidityUSD, info.DailyVolumeUSD)

	return info, nil
}

// TrendingPairs returns the highest-volume Solana pairs matching the search
// feed, capped at limit.
func (d *DexScreenerClient) TrendingPairs(ctx context.Context, limit int) ([]models.TrendingPair, error) {
	pairs, err := d.fetchPairs(ctx, "/latest/dex/search?q=SOL")
	if err != nil {
		return nil, err
	}

	var solana []pair
	for _, p := range pairs {
		if p.ChainID == "solana" {
			solana = append(solana, p)
		}
	}
	sort.Slice(solana, func(i, j int) bool {
		return solana[i].Volume.H24 > solana[j].Volume.H24
	})
	if limit > 0 && len(solana) > limit {
		solana = solana[:limit]
	}

	out := make([]models.TrendingPair, 0, len(solana))
	for _, p := range solana {
		price, _ := strconv.ParseFloat(p.PriceUSD, 64)
		out = append(out, models.TrendingPair{
			TokenAddress: p.BaseToken.Address,
			Symbol:       p.BaseToken.Symbol,
			DexID:        p.DexID,
			PriceUSD:     price,
			Volume24h:    p.Volume.H24,
			LiquidityUSD: p.Liquidity.USD,
			URL:          p.URL,
		})
	}
	return out, nil
}

func (d *DexScreenerClient) fetchPairs(ctx context.Context, path string) ([]pair, error) {
	resp, err := httputil.Do(ctx, d.httpClient, d.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	var data struct {
		Pairs []pair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return data.Pairs, nil
}

// deepestSolanaPair picks the Solana pool with the most liquidity where the
// mint is the base token.
func deepestSolanaPair(pairs []pair, mint string) (pair, bool) {
	var best pair
	found := false
	for _, p := range pairs {
		if p.ChainID != "solana" || p.BaseToken.Address != mint {
			continue
		}
		if !found || p.Liquidity.USD > best.Liquidity.USD {
			best = p
			found = true
		}
	}
	return best, found
}
