package refresh

import (
	"context"
	"strings"

	"github.com/stableview/stableview/internal/stablecoin/domain"
	"github.com/stableview/stableview/pkg/db"
	"go.uber.org/zap"
)

// syncCoins reconciles the store against the analytics provider's tracked
// token list. Provider tokens missing from the store are inserted with zeroed
// metric fields. Creation is idempotent under races: existence is re-checked
// immediately before insert and a duplicate-key error counts as success.
func (r *Refresher) syncCoins(ctx context.Context) (*Summary, error) {
	tokens, err := r.analytics.ListTokens(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := r.repo.List(ctx, r.db, domain.ListFilter{})
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, coin := range existing {
		known[coin.Address] = true
	}

	summary := &Summary{}
	for _, token := range tokens {
		address := strings.TrimSpace(token.Address)
		if address == "" || known[address] {
			continue
		}
		if r.cfg.denied(token.Symbol) {
			r.log.Debug("skipping denylisted symbol", zap.String("symbol", token.Symbol))
			continue
		}

		result := r.createCoin(ctx, token.Address, token.Name, token.Symbol, token.PeggedAsset)
		if result != nil {
			summary.add(*result)
		}
	}
	return summary, nil
}

func (r *Refresher) createCoin(ctx context.Context, address, name, symbol, peggedAsset string) *Result {
	// Re-check just before insert; a concurrent sync may have won the race.
	coin, err := r.repo.FindByAddress(ctx, r.db, address)
	if err != nil {
		return &Result{Symbol: symbol, Error: err.Error()}
	}
	if coin != nil {
		return nil
	}

	pegged := strings.ToUpper(strings.TrimSpace(peggedAsset))
	if pegged == "" {
		pegged = "USD"
	}
	now := r.clock.Now()
	record := &domain.Stablecoin{
		ID:                    r.genID.Generate(),
		Address:               address,
		Name:                  strings.TrimSpace(name),
		Symbol:                strings.ToUpper(strings.TrimSpace(symbol)),
		PeggedAsset:           pegged,
		TotalSupply:           "0",
		TransactionVolume30d:  "0",
		DailyTransactionCount: "0",
		DailyActiveUsers:      "0",
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := r.repo.Create(ctx, r.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost the race; the coin exists, which is what we wanted.
			return nil
		}
		return &Result{Symbol: record.Symbol, Error: err.Error()}
	}

	r.log.Info("discovered new stablecoin",
		zap.String("id", record.ID.String()),
		zap.String("symbol", record.Symbol),
		zap.String("address", record.Address),
	)
	return &Result{
		CoinID:  record.ID.String(),
		Symbol:  record.Symbol,
		Success: true,
		Value:   record.Address,
	}
}
