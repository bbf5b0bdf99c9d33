package refresh

import (
	"context"
	"errors"
	"strconv"

	"github.com/stableview/stableview/internal/providers"
	priceclient "github.com/stableview/stableview/internal/providers/price"
	"github.com/stableview/stableview/internal/stablecoin/domain"
)

// refreshPrices batch-fetches spot prices (serially, behind the shared
// interval gate) and fans the writes out. A provider with no price for a
// token stores the PriceNotAvailable sentinel so downstream readers can tell
// "known absent" from "never fetched".
func (r *Refresher) refreshPrices(ctx context.Context) (*Summary, error) {
	coins, err := r.repo.List(ctx, r.db, domain.ListFilter{})
	if err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(coins))
	for i := range coins {
		addresses = append(addresses, coins[i].Address)
	}
	lookups := r.prices.GetPrices(ctx, addresses)

	summary := &Summary{}
	for i := range coins {
		coin := &coins[i]
		summary.add(r.applyPriceLookup(ctx, coin, lookups[coin.Address]))
	}
	return summary, nil
}

// RefreshCoinPrice refreshes one coin's spot price, used by the
// staleness-gated read path.
func (r *Refresher) RefreshCoinPrice(ctx context.Context, id int64) (*Result, error) {
	coin, err := r.repo.FindByID(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if coin == nil {
		return nil, domain.ErrNotFound
	}

	tp, lookupErr := r.prices.GetPrice(ctx, coin.Address)
	result := r.applyPriceLookup(ctx, coin, priceclient.Lookup{Price: tp, Err: lookupErr})
	return &result, nil
}

func (r *Refresher) applyPriceLookup(ctx context.Context, coin *domain.Stablecoin, lookup priceclient.Lookup) Result {
	result := Result{CoinID: coin.ID.String(), Symbol: coin.Symbol}

	var value string
	switch {
	case lookup.Err == nil && lookup.Price != nil:
		value = strconv.FormatFloat(lookup.Price.Price, 'f', -1, 64)
	case errors.Is(lookup.Err, providers.ErrNoData):
		// Known absent, distinct from "not yet fetched".
		value = domain.PriceNotAvailable
	default:
		if lookup.Err != nil {
			result.Error = lookup.Err.Error()
		} else {
			result.Error = "no price returned"
		}
		return result
	}

	update := domain.PriceUpdate{Price: value, UpdatedAt: r.clock.Now()}
	if err := r.repo.UpdatePrice(ctx, r.db, int64(coin.ID), update); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Value = value
	return result
}
