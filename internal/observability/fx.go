package observability

import (
	"github.com/stableview/stableview/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		metrics.Refresh,
		metrics.NewHTTPMetrics,
	),
)
