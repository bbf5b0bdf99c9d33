package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/stableview/stableview/internal/stablecoin/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, coin *domain.Stablecoin) error {
	return db.WithContext(ctx).Create(coin).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Stablecoin, error) {
	var coin domain.Stablecoin
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&coin).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &coin, nil
}

func (r *repo) FindByAddress(ctx context.Context, db *gorm.DB, address string) (*domain.Stablecoin, error) {
	var coin domain.Stablecoin
	err := db.WithContext(ctx).
		Where("address = ?", address).
		First(&coin).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &coin, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Stablecoin, error) {
	var coins []domain.Stablecoin
	stmt := db.WithContext(ctx).Model(&domain.Stablecoin{})

	if filter.PeggedAsset != "" {
		stmt = stmt.Where("pegged_asset = ?", filter.PeggedAsset)
	}
	if filter.Symbol != "" {
		stmt = stmt.Where("symbol = ?", filter.Symbol)
	}

	if err := stmt.Order("id").Find(&coins).Error; err != nil {
		return nil, err
	}
	return coins, nil
}

// UpdateMetrics writes a metrics payload. Every column must be in the metric
// allow-list; a payload touching anything else is rejected whole, before any
// SQL is issued.
func (r *repo) UpdateMetrics(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	for column := range fields {
		if !domain.MetricColumns[strings.ToLower(column)] {
			return fmt.Errorf("%w: %s", domain.ErrUnsafeField, column)
		}
	}
	return db.WithContext(ctx).
		Model(&domain.Stablecoin{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, id int64, update domain.PriceUpdate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stablecoins SET price = ?, price_updated_at = ?, updated_at = ? WHERE id = ?`,
		update.Price,
		update.UpdatedAt,
		update.UpdatedAt,
		id,
	).Error
}

func (r *repo) UpdatePegPrice(ctx context.Context, db *gorm.DB, id int64, update domain.PegPriceUpdate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stablecoins SET peg_price = ?, peg_price_updated_at = ?, updated_at = ? WHERE id = ?`,
		update.PegPrice,
		update.UpdatedAt,
		update.UpdatedAt,
		id,
	).Error
}
