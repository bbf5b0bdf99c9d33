package refresh

import (
	"context"
	"strconv"
	"strings"

	"github.com/stableview/stableview/internal/stablecoin/domain"
	"go.uber.org/zap"
)

const usdCode = "USD"

// refreshPegPrices converts each coin's pegged asset to USD. Coins are
// grouped by pegged-asset code so one rate lookup serves every coin sharing
// the code; USD-pegged coins are written with a constant 1.0 and never touch
// the provider.
func (r *Refresher) refreshPegPrices(ctx context.Context) (*Summary, error) {
	coins, err := r.repo.List(ctx, r.db, domain.ListFilter{})
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*domain.Stablecoin)
	for i := range coins {
		code := strings.ToUpper(strings.TrimSpace(coins[i].PeggedAsset))
		if code == "" {
			code = usdCode
		}
		groups[code] = append(groups[code], &coins[i])
	}

	summary := &Summary{}
	for code, group := range groups {
		rate, err := r.pegRate(ctx, code)
		if err != nil {
			for _, coin := range group {
				summary.add(Result{CoinID: coin.ID.String(), Symbol: coin.Symbol, Error: err.Error()})
			}
			continue
		}
		for _, coin := range group {
			summary.add(r.writePegPrice(ctx, coin, rate))
		}
	}
	return summary, nil
}

// RefreshCoinPegPrice refreshes one coin's peg price, used by the
// staleness-gated read path.
func (r *Refresher) RefreshCoinPegPrice(ctx context.Context, id int64) (*Result, error) {
	coin, err := r.repo.FindByID(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if coin == nil {
		return nil, domain.ErrNotFound
	}

	code := strings.ToUpper(strings.TrimSpace(coin.PeggedAsset))
	if code == "" {
		code = usdCode
	}
	rate, err := r.pegRate(ctx, code)
	if err != nil {
		return &Result{CoinID: coin.ID.String(), Symbol: coin.Symbol, Error: err.Error()}, nil
	}

	result := r.writePegPrice(ctx, coin, rate)
	return &result, nil
}

func (r *Refresher) pegRate(ctx context.Context, code string) (float64, error) {
	if code == usdCode {
		return 1.0, nil
	}
	rate, err := r.rates.GetRate(ctx, code, usdCode)
	if err != nil {
		r.log.Warn("peg rate lookup failed",
			zap.String("pegged_asset", code),
			zap.Error(err),
		)
		return 0, err
	}
	return rate, nil
}

func (r *Refresher) writePegPrice(ctx context.Context, coin *domain.Stablecoin, rate float64) Result {
	result := Result{CoinID: coin.ID.String(), Symbol: coin.Symbol}

	update := domain.PegPriceUpdate{PegPrice: rate, UpdatedAt: r.clock.Now()}
	if err := r.repo.UpdatePegPrice(ctx, r.db, int64(coin.ID), update); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Value = strconv.FormatFloat(rate, 'f', -1, 64)
	return result
}
