package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolio-tracker/models"
)

// GetBaseline returns the owner's baseline portfolio value for a market.
// A missing row reads as zero; the baseline exists implicitly.
func (s *Store) GetBaseline(ctx context.Context, owner, market string) (decimal.Decimal, error) {
	var b models.Baseline
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND market = ?", owner, market).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get baseline %s: %w", market, err)
	}
	return b.BaselinePortfolioValue, nil
}

// SetBaseline upserts the owner's baseline portfolio value for a market.
func (s *Store) SetBaseline(ctx context.Context, owner, market string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("baseline must be non-negative: %w", ErrInvalidInput)
	}

	b := models.Baseline{
		OwnerID:                owner,
		Market:                 market,
		BaselinePortfolioValue: value,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "market"}},
			DoUpdates: clause.AssignmentColumns([]string{"baseline_portfolio_value", "updated_at"}),
		}).
		Create(&b).Error
	if err != nil {
		return fmt.Errorf("set baseline %s: %w", market, err)
	}
	return nil
}
