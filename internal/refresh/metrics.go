package refresh

import (
	"context"
	"errors"

	"github.com/stableview/stableview/internal/providers"
	"github.com/stableview/stableview/internal/stablecoin/domain"
	"go.uber.org/zap"
)

// refreshMetrics updates on-chain metrics for every tracked coin, one
// analytics call per coin with a pacing delay between calls. Writes go
// through the repository's metric allow-list; a payload that strays outside
// it is dropped loudly and the run continues.
func (r *Refresher) refreshMetrics(ctx context.Context) (*Summary, error) {
	coins, err := r.repo.List(ctx, r.db, domain.ListFilter{})
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i := range coins {
		coin := &coins[i]
		if i > 0 && r.cfg.CallDelay > 0 {
			r.clock.Sleep(ctx, r.cfg.CallDelay)
		}
		if err := ctx.Err(); err != nil {
			summary.add(Result{CoinID: coin.ID.String(), Symbol: coin.Symbol, Error: err.Error()})
			continue
		}
		summary.add(r.refreshCoinMetrics(ctx, coin))
	}
	return summary, nil
}

func (r *Refresher) refreshCoinMetrics(ctx context.Context, coin *domain.Stablecoin) Result {
	result := Result{CoinID: coin.ID.String(), Symbol: coin.Symbol}

	metrics, err := r.analytics.GetTokenMetrics(ctx, coin.Address)
	if err != nil {
		if errors.Is(err, providers.ErrNoData) {
			result.Error = "no data"
			return result
		}
		result.Error = err.Error()
		return result
	}

	fields := map[string]any{
		"total_supply":            metrics.TotalSupply,
		"transaction_volume_30d":  metrics.TransactionVolume30d,
		"daily_transaction_count": metrics.DailyTransactionCount,
		"daily_active_users":      metrics.DailyActiveUsers,
		"updated_at":              r.clock.Now(),
	}

	if err := r.repo.UpdateMetrics(ctx, r.db, int64(coin.ID), fields); err != nil {
		if errors.Is(err, domain.ErrUnsafeField) {
			// Never reaches the store; surfaced loudly so a bad payload
			// mapping is caught instead of silently mutating identity fields.
			r.log.Error("SAFETY VIOLATION: metrics update touched a non-allow-listed field",
				zap.String("coin_id", coin.ID.String()),
				zap.Error(err),
			)
			result.Error = "safety violation: " + err.Error()
			return result
		}
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Value = metrics.TotalSupply
	return result
}
