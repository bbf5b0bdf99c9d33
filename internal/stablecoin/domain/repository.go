package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// MetricColumns is the fixed set of columns an automated metrics refresh may
// write. UpdateMetrics rejects any payload touching a column outside this set
// before issuing SQL.
var MetricColumns = map[string]bool{
	"total_supply":            true,
	"transaction_volume_30d":  true,
	"daily_transaction_count": true,
	"daily_active_users":      true,
	"updated_at":              true,
}

// PriceUpdate and PegPriceUpdate are the only projections through which the
// price paths can touch the store; anything outside them does not compile.
type PriceUpdate struct {
	Price     string
	UpdatedAt time.Time
}

type PegPriceUpdate struct {
	PegPrice  float64
	UpdatedAt time.Time
}

type ListFilter struct {
	PeggedAsset string
	Symbol      string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, coin *Stablecoin) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Stablecoin, error)
	FindByAddress(ctx context.Context, db *gorm.DB, address string) (*Stablecoin, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Stablecoin, error)
	UpdateMetrics(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error
	UpdatePrice(ctx context.Context, db *gorm.DB, id int64, update PriceUpdate) error
	UpdatePegPrice(ctx context.Context, db *gorm.DB, id int64, update PegPriceUpdate) error
}
