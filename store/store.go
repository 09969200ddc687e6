package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portfolio-tracker/models"
)

var (
	ErrNotFound      = errors.New("holding not found")
	ErrAlreadyExists = errors.New("holding already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

const quoteBatchSize = 100

// Store persists holdings, baselines and quote records. Every holding query
// is scoped by owner and market, so cross-user reads are impossible by
// construction.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) scoped(ctx context.Context, owner, market, symbol string) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("owner_id = ? AND market = ? AND symbol = ?", owner, market, symbol)
}

// Get returns one holding, or ErrNotFound.
func (s *Store) Get(ctx context.Context, owner, market, symbol string) (*models.Holding, error) {
	var h models.Holding
	err := s.scoped(ctx, owner, market, symbol).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", market, symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get holding %s/%s: %w", market, symbol, err)
	}
	return &h, nil
}

// List returns all of the owner's holdings in one market, ordered by symbol.
func (s *Store) List(ctx context.Context, owner, market string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND market = ?", owner, market).
		Order("symbol").
		Find(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("list holdings %s: %w", market, err)
	}
	return holdings, nil
}

// Create inserts a new holding. The (owner, market, symbol) key must be free.
func (s *Store) Create(ctx context.Context, h *models.Holding) error {
	if err := validateHolding(h); err != nil {
		return err
	}

	err := s.scoped(ctx, h.OwnerID, h.Market, h.Symbol).First(&models.Holding{}).Error
	if err == nil {
		return fmt.Errorf("%s/%s: %w", h.Market, h.Symbol, ErrAlreadyExists)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("create holding %s/%s: %w", h.Market, h.Symbol, err)
	}

	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return createError(h.Market, h.Symbol, err)
	}
	return nil
}

// createError classifies an insert failure. Two concurrent adds of the same
// symbol can both pass the pre-check; the loser's unique-key violation is a
// duplicate, not an internal error.
func createError(market, symbol string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s/%s: %w", market, symbol, ErrAlreadyExists)
	}
	return fmt.Errorf("create holding %s/%s: %w", market, symbol, err)
}

// UpsertValuation writes both valuation fields of an existing holding. A
// missing holding is ErrNotFound; a refresh must never create holdings.
func (s *Store) UpsertValuation(ctx context.Context, owner, market, symbol string, pricePerShare, totalValue decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Holding{}).
		Where("owner_id = ? AND market = ? AND symbol = ?", owner, market, symbol).
		Updates(map[string]interface{}{
			"price_per_share": pricePerShare,
			"total_value":     totalValue,
		})
	if res.Error != nil {
		return fmt.Errorf("upsert valuation %s/%s: %w", market, symbol, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", market, symbol, ErrNotFound)
	}
	return nil
}

// UpdateHolding rewrites the share count together with its recomputed
// valuation, keeping totalValue consistent with sharesHeld in a single write.
func (s *Store) UpdateHolding(ctx context.Context, owner, market, symbol string, sharesHeld, pricePerShare, totalValue decimal.Decimal) error {
	if sharesHeld.IsNegative() {
		return fmt.Errorf("shares held must be non-negative: %w", ErrInvalidInput)
	}

	res := s.db.WithContext(ctx).Model(&models.Holding{}).
		Where("owner_id = ? AND market = ? AND symbol = ?", owner, market, symbol).
		Updates(map[string]interface{}{
			"shares_held":     sharesHeld,
			"price_per_share": pricePerShare,
			"total_value":     totalValue,
		})
	if res.Error != nil {
		return fmt.Errorf("update holding %s/%s: %w", market, symbol, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", market, symbol, ErrNotFound)
	}
	return nil
}

// Delete removes a holding, or fails with ErrNotFound.
func (s *Store) Delete(ctx context.Context, owner, market, symbol string) error {
	res := s.scoped(ctx, owner, market, symbol).Delete(&models.Holding{})
	if res.Error != nil {
		return fmt.Errorf("delete holding %s/%s: %w", market, symbol, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", market, symbol, ErrNotFound)
	}
	return nil
}

// Owners lists the distinct owner IDs with holdings in a market.
func (s *Store) Owners(ctx context.Context, market string) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).Model(&models.Holding{}).
		Where("market = ?", market).
		Distinct().
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("list owners %s: %w", market, err)
	}
	return owners, nil
}

// RecordQuotes journals fetched price observations in batches.
func (s *Store) RecordQuotes(ctx context.Context, records []models.QuoteRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, quoteBatchSize).Error; err != nil {
		return fmt.Errorf("record quotes: %w", err)
	}
	return nil
}

func validateHolding(h *models.Holding) error {
	if h.OwnerID == "" {
		return fmt.Errorf("owner id required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(h.Symbol) == "" {
		return fmt.Errorf("symbol required: %w", ErrInvalidInput)
	}
	if h.SharesHeld.IsNegative() {
		return fmt.Errorf("shares held must be non-negative: %w", ErrInvalidInput)
	}
	return nil
}
