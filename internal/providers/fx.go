package providers

import (
	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/config"
	"github.com/stableview/stableview/internal/providers/analytics"
	"github.com/stableview/stableview/internal/providers/exchange"
	"github.com/stableview/stableview/internal/providers/price"
	"github.com/stableview/stableview/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers",
	fx.Provide(ProvideAnalytics),
	fx.Provide(ProvidePrice),
	fx.Provide(ProvideExchange),
)

func ProvideAnalytics(cfg config.Config, log *zap.Logger) *analytics.Client {
	return analytics.NewClient(cfg.AnalyticsAPIURL, cfg.AnalyticsAPIKey, cfg.ProviderTimeout, log)
}

func ProvidePrice(cfg config.Config, gate *ratelimit.IntervalGate, clk clock.Clock, log *zap.Logger) *price.Client {
	return price.NewClient(price.Config{
		BaseURL:    cfg.PriceAPIURL,
		APIKey:     cfg.PriceAPIKey,
		Timeout:    cfg.ProviderTimeout,
		CacheTTL:   cfg.PriceCacheTTL,
		BatchDelay: cfg.RefreshCallDelay,
	}, gate, clk, log)
}

func ProvideExchange(cfg config.Config, clk clock.Clock, log *zap.Logger) *exchange.Client {
	return exchange.NewClient(cfg.ExchangeAPIURL, cfg.ProviderTimeout, cfg.RateTableCacheTTL, clk, log)
}
