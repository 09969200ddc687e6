package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteRecord journals one fetched price observation. Prices are stored in the
// upstream's native unit; normalization happens at valuation time.
type QuoteRecord struct {
	gorm.Model
	Symbol    string          `gorm:"index" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:numeric(20,6)" json:"price"`
	FetchedAt time.Time       `json:"fetched_at"`
}
