package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is one owner's position in a single ticker symbol within a market.
// PricePerShare and TotalValue stay nil until the first valuation and are
// always written together.
//
// No DeletedAt field: holdings delete hard. A soft-deleted row would stay in
// the (owner, market, symbol) unique index and block re-adding the symbol.
type Holding struct {
	ID            uint             `gorm:"primarykey"`
	CreatedAt     time.Time        `json:"-"`
	UpdatedAt     time.Time        `json:"updated_at"`
	OwnerID       string           `gorm:"index:idx_owner_market_symbol,unique" json:"-"`
	Market        string           `gorm:"index:idx_owner_market_symbol,unique" json:"market"`
	Symbol        string           `gorm:"index:idx_owner_market_symbol,unique" json:"symbol"`
	SharesHeld    decimal.Decimal  `gorm:"type:numeric(20,4)" json:"shares_held"`
	PricePerShare *decimal.Decimal `gorm:"type:numeric(20,4)" json:"price_per_share,omitempty"`
	TotalValue    *decimal.Decimal `gorm:"type:numeric(20,4)" json:"total_value,omitempty"`
}

// Valued reports whether the holding carries a computed valuation.
func (h *Holding) Valued() bool {
	return h.PricePerShare != nil && h.TotalValue != nil
}

// SetValuation writes both valuation fields together.
func (h *Holding) SetValuation(pricePerShare, totalValue decimal.Decimal) {
	h.PricePerShare = &pricePerShare
	h.TotalValue = &totalValue
}

// Baseline is the owner's reference portfolio value for one market.
// Created implicitly on first write; reads of a missing row yield zero.
type Baseline struct {
	gorm.Model
	OwnerID                string          `gorm:"index:idx_owner_market,unique" json:"-"`
	Market                 string          `gorm:"index:idx_owner_market,unique" json:"market"`
	BaselinePortfolioValue decimal.Decimal `gorm:"type:numeric(20,4)" json:"baseline_portfolio_value"`
}
