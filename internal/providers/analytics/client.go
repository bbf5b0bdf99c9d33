package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers/providererr"
	"go.uber.org/zap"
)

// TokenInfo is one entry of the provider's tracked-token feed, used by the
// discovery/sync step.
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	PeggedAsset string `json:"pegged_asset"`
}

// TokenMetrics holds the latest on-chain figures for one token. Decimal
// strings, matching the store's metric columns.
type TokenMetrics struct {
	TotalSupply           string
	DailyActiveUsers      string
	TransactionVolume30d  string
	DailyTransactionCount string
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("analytics.client"),
	}
}

type tokenListResponse struct {
	Data []TokenInfo `json:"data"`
}

// ListTokens returns the provider's full tracked-token list.
func (c *Client) ListTokens(ctx context.Context) ([]TokenInfo, error) {
	var out tokenListResponse
	if err := c.get(ctx, "/v1/tokens", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type seriesRow struct {
	BlockDate   string `json:"block_date"`
	TotalSupply any    `json:"total_supply"`
	HolderCount any    `json:"holder_count"`
	Volume      any    `json:"volume"`
	FeePayer    any    `json:"fee_payer"`
}

type seriesResponse struct {
	Data []seriesRow `json:"data"`
}

// GetTokenMetrics fetches the token's daily series and reduces it: latest row
// for supply and holder count, trailing 30-day sums for volume and transaction
// count. Missing or non-numeric series values count as zero rather than
// failing the token. Returns ErrNoData when the provider has no series for
// the address.
func (c *Client) GetTokenMetrics(ctx context.Context, address string) (*TokenMetrics, error) {
	query := url.Values{}
	query.Set("address", address)

	var out seriesResponse
	if err := c.get(ctx, "/v1/tokens/daily", query, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, providererr.ErrNoData
	}

	latest := out.Data[len(out.Data)-1]

	cutoff := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	volume := decimal.Zero
	txCount := decimal.Zero
	for _, row := range out.Data {
		if row.BlockDate < cutoff {
			continue
		}
		volume = volume.Add(toDecimal(row.Volume))
		txCount = txCount.Add(toDecimal(row.FeePayer))
	}

	return &TokenMetrics{
		TotalSupply:           toDecimal(latest.TotalSupply).String(),
		DailyActiveUsers:      toDecimal(latest.HolderCount).String(),
		TransactionVolume30d:  volume.String(),
		DailyTransactionCount: txCount.String(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obsmetrics.Refresh().IncProviderCall("analytics", "error")
		return fmt.Errorf("analytics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		obsmetrics.Refresh().IncProviderCall("analytics", "no_data")
		return providererr.ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("analytics provider error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.ByteString("body", body),
		)
		obsmetrics.Refresh().IncProviderCall("analytics", "error")
		return fmt.Errorf("analytics provider status %d", resp.StatusCode)
	}

	obsmetrics.Refresh().IncProviderCall("analytics", "ok")
	return json.NewDecoder(resp.Body).Decode(out)
}

// toDecimal coerces a raw JSON value to a decimal, treating anything
// non-numeric as zero.
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
