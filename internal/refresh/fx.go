package refresh

import (
	"context"

	"github.com/stableview/stableview/internal/providers/analytics"
	"github.com/stableview/stableview/internal/providers/exchange"
	"github.com/stableview/stableview/internal/providers/price"
	"go.uber.org/fx"
)

var Module = fx.Module("refresh",
	fx.Provide(ProvideConfig),
	fx.Provide(func(c *analytics.Client) AnalyticsProvider { return c }),
	fx.Provide(func(c *price.Client) PriceProvider { return c }),
	fx.Provide(func(c *exchange.Client) RateProvider { return c }),
	fx.Provide(New),
)

// ScheduleModule additionally starts the periodic refresh loop; entrypoints
// that only expose manual triggers omit it.
var ScheduleModule = fx.Module("refresh.schedule",
	fx.Invoke(StartLoop),
)

func StartLoop(lc fx.Lifecycle, r *Refresher) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go r.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
