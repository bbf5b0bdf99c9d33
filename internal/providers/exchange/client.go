package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stableview/stableview/internal/cache"
	"github.com/stableview/stableview/internal/clock"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers/providererr"
	"go.uber.org/zap"
)

// Client wraps the fiat/crypto exchange-rate provider. Full rate tables are
// cached per base currency so resolving many pegged assets sharing a base
// costs one call per table per TTL window.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tables     *cache.Cache[string, map[string]float64]
	tableTTL   time.Duration
	log        *zap.Logger
}

func NewClient(baseURL string, timeout, tableTTL time.Duration, clk clock.Clock, log *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tables:     cache.New[string, map[string]float64](clk),
		tableTTL:   tableTTL,
		log:        log.Named("exchange.client"),
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// GetRate converts one unit of from into to. Identical codes short-circuit to
// 1.0 with no network call. ErrNoData means the provider's table has no entry
// for the target code.
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, fmt.Errorf("exchange: empty currency code")
	}
	if from == to {
		return 1.0, nil
	}

	table, err := c.rateTable(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := table[to]
	if !ok || rate <= 0 {
		return 0, providererr.ErrNoData
	}
	return rate, nil
}

func (c *Client) rateTable(ctx context.Context, base string) (map[string]float64, error) {
	if table, ok := c.tables.Get(base); ok {
		return table, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?base="+base, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obsmetrics.Refresh().IncProviderCall("exchange", "error")
		return nil, fmt.Errorf("exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("exchange provider error",
			zap.Int("status", resp.StatusCode),
			zap.String("base", base),
			zap.ByteString("body", body),
		)
		obsmetrics.Refresh().IncProviderCall("exchange", "error")
		return nil, fmt.Errorf("exchange provider status %d", resp.StatusCode)
	}

	var out ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		obsmetrics.Refresh().IncProviderCall("exchange", "error")
		return nil, fmt.Errorf("exchange decode: %w", err)
	}
	if len(out.Rates) == 0 {
		obsmetrics.Refresh().IncProviderCall("exchange", "no_data")
		return nil, providererr.ErrNoData
	}
	obsmetrics.Refresh().IncProviderCall("exchange", "ok")

	c.tables.Set(base, out.Rates, c.tableTTL)
	return out.Rates, nil
}
