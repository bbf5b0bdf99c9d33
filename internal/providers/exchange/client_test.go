package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/providers/providererr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *clock.FakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewClient(srv.URL, 5*time.Second, time.Hour, clk, zap.NewNop()), clk
}

func ratesHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		base := r.URL.Query().Get("base")
		fmt.Fprintf(w, `{"base":%q,"rates":{"USD":1.0842,"GBP":0.8517}}`, base)
	}
}

func TestGetRateIdenticalCodesNoCall(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, ratesHandler(&calls))

	rate, err := c.GetRate(context.Background(), "USD", "USD")
	require.NoError(t, err)
	require.Equal(t, 1.0, rate)
	require.Equal(t, int64(0), calls.Load())

	// Case and whitespace normalize before the comparison.
	rate, err = c.GetRate(context.Background(), " usd ", "USD")
	require.NoError(t, err)
	require.Equal(t, 1.0, rate)
	require.Equal(t, int64(0), calls.Load())
}

func TestGetRateUsesCachedTable(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, ratesHandler(&calls))

	rate, err := c.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	require.Equal(t, 1.0842, rate)

	// Second code off the same base resolves from the cached table.
	rate, err = c.GetRate(context.Background(), "EUR", "GBP")
	require.NoError(t, err)
	require.Equal(t, 0.8517, rate)
	require.Equal(t, int64(1), calls.Load())
}

func TestGetRateRefetchesAfterTTL(t *testing.T) {
	var calls atomic.Int64
	c, clk := newTestClient(t, ratesHandler(&calls))

	_, err := c.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)

	clk.Advance(61 * time.Minute)

	_, err = c.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestGetRateMissingCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base":"EUR","rates":{"USD":1.0842}}`)
	})

	_, err := c.GetRate(context.Background(), "EUR", "JPY")
	require.ErrorIs(t, err, providererr.ErrNoData)
}

func TestGetRateProviderFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.GetRate(context.Background(), "EUR", "USD")
	require.Error(t, err)
	require.NotErrorIs(t, err, providererr.ErrNoData, "a transport failure is not the same as a missing rate")
}

func TestGetRateEmptyCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.GetRate(context.Background(), "", "USD")
	require.Error(t, err)
}
