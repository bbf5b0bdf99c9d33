package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/config"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers"
	"github.com/stableview/stableview/internal/providers/analytics"
	priceclient "github.com/stableview/stableview/internal/providers/price"
	"github.com/stableview/stableview/internal/refresh"
	"github.com/stableview/stableview/internal/stablecoin/domain"
	"github.com/stableview/stableview/internal/stablecoin/repository"
	"github.com/stableview/stableview/internal/stablecoin/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Prometheus collectors register once per process.
var (
	httpMetricsOnce sync.Once
	httpMetrics     *obsmetrics.HTTPMetrics
)

func sharedHTTPMetrics() *obsmetrics.HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetrics = obsmetrics.NewHTTPMetrics()
	})
	return httpMetrics
}

// -- Provider stubs --

type analyticsStub struct {
	tokens []analytics.TokenInfo
}

func (a *analyticsStub) ListTokens(ctx context.Context) ([]analytics.TokenInfo, error) {
	return a.tokens, nil
}

func (a *analyticsStub) GetTokenMetrics(ctx context.Context, address string) (*analytics.TokenMetrics, error) {
	return nil, providers.ErrNoData
}

type priceProviderStub struct {
	prices map[string]float64
	errs   map[string]error
	calls  atomic.Int64
}

func (p *priceProviderStub) GetPrice(ctx context.Context, address string) (*priceclient.TokenPrice, error) {
	p.calls.Add(1)
	if err, ok := p.errs[address]; ok {
		return nil, err
	}
	if v, ok := p.prices[address]; ok {
		return &priceclient.TokenPrice{Price: v}, nil
	}
	return nil, providers.ErrNoData
}

func (p *priceProviderStub) GetPrices(ctx context.Context, addresses []string) map[string]priceclient.Lookup {
	out := make(map[string]priceclient.Lookup, len(addresses))
	for _, addr := range addresses {
		tp, err := p.GetPrice(ctx, addr)
		out[addr] = priceclient.Lookup{Price: tp, Err: err}
	}
	return out
}

type rateProviderStub struct {
	rates map[string]float64
	calls atomic.Int64
}

func (r *rateProviderStub) GetRate(ctx context.Context, from, to string) (float64, error) {
	r.calls.Add(1)
	if v, ok := r.rates[from]; ok {
		return v, nil
	}
	return 0, providers.ErrNoData
}

// -- Harness --

type testEnv struct {
	server *Server
	db     *gorm.DB
	clk    *clock.FakeClock
	node   *snowflake.Node
	prices *priceProviderStub
	rates  *rateProviderStub
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Stablecoin{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	repo := repository.Provide()

	prices := &priceProviderStub{prices: map[string]float64{}, errs: map[string]error{}}
	rates := &rateProviderStub{rates: map[string]float64{"EUR": 1.08}}

	refresher, err := refresh.New(refresh.Params{
		DB:        conn,
		Log:       log,
		Clock:     clk,
		GenID:     node,
		Repo:      repo,
		Analytics: &analyticsStub{},
		Prices:    prices,
		Rates:     rates,
	})
	require.NoError(t, err)

	svc := service.New(service.Params{DB: conn, Log: log, GenID: node, Repo: repo})

	engine := NewEngine(sharedHTTPMetrics())
	s := NewServer(Params{
		Gin:           engine,
		Cfg:           config.Config{CronSecret: "s3cret"},
		Log:           log,
		Clock:         clk,
		StablecoinSvc: svc,
		Refresher:     refresher,
		RefreshCfg: refresh.Config{
			PriceStaleAfter:    time.Hour,
			PegPriceStaleAfter: 24 * time.Hour,
		},
		PriceClient: priceclient.NewClient(priceclient.Config{}, nil, clk, log),
	})
	RegisterRoutes(s)

	return &testEnv{server: s, db: conn, clk: clk, node: node, prices: prices, rates: rates}
}

func (e *testEnv) seedCoin(t *testing.T, address, symbol, pegged string) *domain.Stablecoin {
	t.Helper()
	coin := &domain.Stablecoin{
		ID:                    e.node.Generate(),
		Address:               address,
		Name:                  symbol + " Coin",
		Symbol:                symbol,
		PeggedAsset:           pegged,
		TotalSupply:           "0",
		TransactionVolume30d:  "0",
		DailyTransactionCount: "0",
		DailyActiveUsers:      "0",
	}
	require.NoError(t, e.db.Create(coin).Error)
	return coin
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.engine.ServeHTTP(w, req)
	return w
}

type coinPayload struct {
	Data struct {
		ID                string     `json:"id"`
		Symbol            string     `json:"symbol"`
		PeggedAsset       string     `json:"peggedAsset"`
		Price             string     `json:"price"`
		PegPrice          *float64   `json:"pegPrice"`
		PriceUpdatedAt    *time.Time `json:"priceUpdatedAt"`
		PegPriceUpdatedAt *time.Time `json:"pegPriceUpdatedAt"`
	} `json:"data"`
}

// -- Reads with staleness gating --

func TestGetStablecoinFreshPriceServedAsIs(t *testing.T) {
	env := setupServer(t)
	coin := env.seedCoin(t, "addr-1", "USDX", "USD")

	at := env.clk.Now().Add(-30 * time.Minute)
	require.NoError(t, env.db.Exec(
		`UPDATE stablecoins SET price = ?, price_updated_at = ? WHERE id = ?`,
		"1.0001", at, int64(coin.ID),
	).Error)
	env.prices.prices["addr-1"] = 0.5 // would be visible if a refresh ran

	w := env.do(t, http.MethodGet, "/v1/stablecoins/"+coin.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "1.0001", payload.Data.Price)
	require.Equal(t, int64(0), env.prices.calls.Load(), "a fresh price must not trigger a refresh")
}

func TestGetStablecoinStalePriceRefreshedInline(t *testing.T) {
	env := setupServer(t)
	coin := env.seedCoin(t, "addr-1", "USDX", "USD")

	at := env.clk.Now().Add(-2 * time.Hour)
	require.NoError(t, env.db.Exec(
		`UPDATE stablecoins SET price = ?, price_updated_at = ? WHERE id = ?`,
		"1.0001", at, int64(coin.ID),
	).Error)
	env.prices.prices["addr-1"] = 0.9987

	w := env.do(t, http.MethodGet, "/v1/stablecoins/"+coin.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "0.9987", payload.Data.Price)
	require.NotNil(t, payload.Data.PriceUpdatedAt)
	require.True(t, payload.Data.PriceUpdatedAt.After(at))
}

func TestGetStablecoinRefreshFailureServesStaleValue(t *testing.T) {
	env := setupServer(t)
	coin := env.seedCoin(t, "addr-1", "USDX", "USD")

	at := env.clk.Now().Add(-2 * time.Hour)
	require.NoError(t, env.db.Exec(
		`UPDATE stablecoins SET price = ?, price_updated_at = ? WHERE id = ?`,
		"1.0001", at, int64(coin.ID),
	).Error)
	env.prices.errs["addr-1"] = errors.New("provider down")

	w := env.do(t, http.MethodGet, "/v1/stablecoins/"+coin.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code, "a failed refresh must not fail the read")

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "1.0001", payload.Data.Price)
}

func TestGetPegPriceStaleEURCoinRefreshed(t *testing.T) {
	env := setupServer(t)
	coin := env.seedCoin(t, "addr-eur", "EURX", "EUR")

	at := env.clk.Now().Add(-25 * time.Hour)
	require.NoError(t, env.db.Exec(
		`UPDATE stablecoins SET peg_price = ?, peg_price_updated_at = ? WHERE id = ?`,
		1.05, at, int64(coin.ID),
	).Error)

	w := env.do(t, http.MethodGet, "/v1/stablecoins/"+coin.ID.String()+"/peg-price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Data.PegPrice)
	require.Equal(t, 1.08, *payload.Data.PegPrice)
	require.Equal(t, int64(1), env.rates.calls.Load(), "one stale read costs exactly one rate lookup")
}

func TestGetPegPriceFreshEURCoinServedAsIs(t *testing.T) {
	env := setupServer(t)
	coin := env.seedCoin(t, "addr-eur", "EURX", "EUR")

	at := env.clk.Now().Add(-23 * time.Hour)
	require.NoError(t, env.db.Exec(
		`UPDATE stablecoins SET peg_price = ?, peg_price_updated_at = ? WHERE id = ?`,
		1.05, at, int64(coin.ID),
	).Error)

	w := env.do(t, http.MethodGet, "/v1/stablecoins/"+coin.ID.String()+"/peg-price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Data.PegPrice)
	require.Equal(t, 1.05, *payload.Data.PegPrice)
	require.Equal(t, int64(0), env.rates.calls.Load())
}

func TestGetStablecoinNotFound(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodGet, "/v1/stablecoins/424242", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// -- Create --

func TestCreateStablecoin(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/v1/stablecoins",
		`{"address":"addr-1","name":"USD Coin X","symbol":"usdx"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload coinPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "USDX", payload.Data.Symbol)
	require.Equal(t, "USD", payload.Data.PeggedAsset)
}

func TestCreateStablecoinValidation(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/v1/stablecoins", `{"name":"No Address","symbol":"NOA"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStablecoinDuplicateAddress(t *testing.T) {
	env := setupServer(t)
	env.seedCoin(t, "addr-1", "USDX", "USD")

	w := env.do(t, http.MethodPost, "/v1/stablecoins",
		`{"address":"addr-1","name":"USD Coin X","symbol":"USDX"}`, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

// -- Triggers --

func TestTriggerPriceRefreshReportsTally(t *testing.T) {
	env := setupServer(t)
	env.seedCoin(t, "addr-good", "GOOD", "USD")
	env.seedCoin(t, "addr-bad", "BAD", "USD")
	env.prices.prices["addr-good"] = 1.0002
	env.prices.errs["addr-bad"] = errors.New("provider down")

	w := env.do(t, http.MethodPost, "/v1/refresh/prices", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "per-coin failures stay in the body")

	var payload struct {
		Data refresh.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, 2, payload.Data.Total)
	require.Equal(t, 1, payload.Data.Succeeded)
	require.Equal(t, 1, payload.Data.Failed)
}

func TestClearPriceCache(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/v1/refresh/price-cache/clear", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

// -- Cron --

func TestCronRefreshRejectsMissingToken(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/v1/cron/refresh", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCronRefreshRejectsWrongToken(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/v1/cron/refresh", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCronRefreshRunsFullPass(t *testing.T) {
	env := setupServer(t)
	env.seedCoin(t, "addr-1", "USDX", "USD")
	env.prices.prices["addr-1"] = 1.0001

	w := env.do(t, http.MethodPost, "/v1/cron/refresh", "", map[string]string{
		"Authorization": "Bearer s3cret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data map[string]*refresh.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 4)
	require.Equal(t, 1, payload.Data[refresh.JobPrices].Succeeded)
	require.Equal(t, 1, payload.Data[refresh.JobPegPrices].Succeeded)
}
