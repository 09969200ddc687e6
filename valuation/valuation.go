package valuation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/quotes"
)

// ErrInvalidPrice means the normalized price was not a usable non-negative
// amount. The caller decides whether to keep the previous persisted valuation
// or surface the error.
var ErrInvalidPrice = errors.New("invalid price")

var minorUnitFactor = decimal.NewFromInt(100)

// Valuation is the computed worth of one holding at a quoted price, in the
// market's major currency unit.
type Valuation struct {
	PricePerShare decimal.Decimal
	TotalValue    decimal.Decimal
}

// Normalize converts a fetched price into major currency units according to
// the market's unit rule.
func Normalize(price decimal.Decimal, rule config.UnitRule) decimal.Decimal {
	if rule == config.UnitMinor {
		return price.Div(minorUnitFactor)
	}
	return price
}

// Compute values sharesHeld at the quoted price. The per-share price is
// rounded to two decimal places before multiplying, so the stored total always
// equals the stored per-share price times the share count; the total is then
// rounded to the market's display convention.
func Compute(sharesHeld decimal.Decimal, quote quotes.Quote, market config.Market) (Valuation, error) {
	norm := Normalize(quote.Price, market.Unit)
	if norm.IsNegative() {
		return Valuation{}, fmt.Errorf("%s: normalized price %s: %w", quote.Symbol, norm, ErrInvalidPrice)
	}

	pricePerShare := norm.Round(2)
	totalValue := pricePerShare.Mul(sharesHeld).Round(market.DisplayDecimals)
	return Valuation{PricePerShare: pricePerShare, TotalValue: totalValue}, nil
}
