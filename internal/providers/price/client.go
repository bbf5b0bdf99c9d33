package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stableview/stableview/internal/cache"
	"github.com/stableview/stableview/internal/clock"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers/providererr"
	"github.com/stableview/stableview/internal/ratelimit"
	"go.uber.org/zap"
)

// TokenPrice is one spot-price observation.
type TokenPrice struct {
	Price           float64
	PriceChange24h  float64
	UpdateUnixTime  int64
	UpdateHumanTime string
}

// Lookup is the outcome of one address in a batch fetch.
type Lookup struct {
	Price *TokenPrice
	Err   error
}

// Client wraps the spot-price provider. Every outbound call goes through the
// shared interval gate; cache hits bypass both the gate and the network.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	gate       *ratelimit.IntervalGate
	cache      *cache.Cache[string, TokenPrice]
	cacheTTL   time.Duration
	batchDelay time.Duration
	clk        clock.Clock
	log        *zap.Logger
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	BatchDelay time.Duration
}

func NewClient(cfg Config, gate *ratelimit.IntervalGate, clk clock.Clock, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		gate:       gate,
		cache:      cache.New[string, TokenPrice](clk),
		cacheTTL:   cfg.CacheTTL,
		batchDelay: cfg.BatchDelay,
		clk:        clk,
		log:        log.Named("price.client"),
	}
}

type priceResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Value           float64 `json:"value"`
		PriceChange24h  float64 `json:"priceChange24h"`
		UpdateUnixTime  int64   `json:"updateUnixTime"`
		UpdateHumanTime string  `json:"updateHumanTime"`
	} `json:"data"`
}

// GetPrice returns the current price for a token address. ErrNoData means the
// provider has no price for the token; a non-2xx response is logged and also
// reported as no data so one bad token never aborts a batch.
func (c *Client) GetPrice(ctx context.Context, address string) (*TokenPrice, error) {
	if cached, ok := c.cache.Get(address); ok {
		return &cached, nil
	}

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("address", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/defi/price?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obsmetrics.Refresh().IncProviderCall("price", "error")
		return nil, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("price provider non-2xx, treating as no data",
			zap.Int("status", resp.StatusCode),
			zap.String("address", address),
			zap.ByteString("body", body),
		)
		obsmetrics.Refresh().IncProviderCall("price", "no_data")
		return nil, providererr.ErrNoData
	}

	var out priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		obsmetrics.Refresh().IncProviderCall("price", "error")
		return nil, fmt.Errorf("price decode: %w", err)
	}
	if !out.Success || out.Data == nil {
		obsmetrics.Refresh().IncProviderCall("price", "no_data")
		return nil, providererr.ErrNoData
	}
	obsmetrics.Refresh().IncProviderCall("price", "ok")

	price := TokenPrice{
		Price:           out.Data.Value,
		PriceChange24h:  out.Data.PriceChange24h,
		UpdateUnixTime:  out.Data.UpdateUnixTime,
		UpdateHumanTime: out.Data.UpdateHumanTime,
	}
	c.cache.Set(address, price, c.cacheTTL)
	return &price, nil
}

// GetPrices fetches a batch of addresses strictly serially, so the interval
// gate's global spacing holds under batch load. A fixed delay between calls
// adds safety margin on top of the gate.
func (c *Client) GetPrices(ctx context.Context, addresses []string) map[string]Lookup {
	results := make(map[string]Lookup, len(addresses))
	for i, address := range addresses {
		if i > 0 && c.batchDelay > 0 {
			c.clk.Sleep(ctx, c.batchDelay)
		}
		if err := ctx.Err(); err != nil {
			results[address] = Lookup{Err: err}
			continue
		}
		price, err := c.GetPrice(ctx, address)
		results[address] = Lookup{Price: price, Err: err}
	}
	return results
}

// ClearCache drops all cached prices. Manual operation.
func (c *Client) ClearCache() {
	c.cache.Clear()
}
