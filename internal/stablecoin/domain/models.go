package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PriceNotAvailable marks a token the price provider confirmed has no price.
// Distinct from the empty string, which means "not yet fetched".
const PriceNotAvailable = "N/A"

// Stablecoin is one tracked coin. Identity fields (address, name, symbol) are
// set at creation and never written by the refresh pipeline; metric fields are
// written only by the refresh pipeline.
type Stablecoin struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	Address string       `gorm:"type:text;not null;uniqueIndex:ux_stablecoins_address"`
	Name    string       `gorm:"type:text;not null"`
	Symbol  string       `gorm:"type:text;not null"`

	PeggedAsset string `gorm:"column:pegged_asset;type:text;not null;default:'USD'"`

	// Metric fields are decimal strings; Price additionally admits the
	// PriceNotAvailable sentinel.
	TotalSupply           string `gorm:"column:total_supply;type:text;not null;default:'0'"`
	TransactionVolume30d  string `gorm:"column:transaction_volume_30d;type:text;not null;default:'0'"`
	DailyTransactionCount string `gorm:"column:daily_transaction_count;type:text;not null;default:'0'"`
	DailyActiveUsers      string `gorm:"column:daily_active_users;type:text;not null;default:'0'"`
	Price                 string `gorm:"type:text;not null;default:''"`

	PegPrice          *float64   `gorm:"column:peg_price"`
	PriceUpdatedAt    *time.Time `gorm:"column:price_updated_at"`
	PegPriceUpdatedAt *time.Time `gorm:"column:peg_price_updated_at"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Stablecoin) TableName() string { return "stablecoins" }

// PriceStale reports whether the spot price needs a refresh before serving.
func (s *Stablecoin) PriceStale(now time.Time, threshold time.Duration) bool {
	return stale(s.PriceUpdatedAt, now, threshold)
}

// PegPriceStale reports whether the peg price needs a refresh before serving.
func (s *Stablecoin) PegPriceStale(now time.Time, threshold time.Duration) bool {
	return stale(s.PegPriceUpdatedAt, now, threshold)
}

func stale(lastUpdated *time.Time, now time.Time, threshold time.Duration) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) > threshold
}
