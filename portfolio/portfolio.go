package portfolio

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

// Summary is the aggregate value of a set of holdings. Holdings that have
// never been valued contribute zero and are listed as stale so the caller
// never has to infer freshness from absent fields.
type Summary struct {
	Total        decimal.Decimal `json:"total"`
	StaleSymbols []string        `json:"stale_symbols"`
}

// Aggregate sums the persisted total values across holdings.
func Aggregate(holdings []models.Holding) Summary {
	total := decimal.Zero
	for i := range holdings {
		if holdings[i].Valued() {
			total = total.Add(*holdings[i].TotalValue)
		}
	}

	stale := lo.FilterMap(holdings, func(h models.Holding, _ int) (string, bool) {
		return h.Symbol, !h.Valued()
	})
	return Summary{Total: total, StaleSymbols: stale}
}

// Deviation measures distance from a baseline portfolio value.
type Deviation struct {
	Absolute   decimal.Decimal `json:"absolute"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ComputeDeviation compares a portfolio total against a baseline. A zero
// baseline yields a zero percentage rather than a division error.
func ComputeDeviation(total, baseline decimal.Decimal) Deviation {
	absolute := total.Sub(baseline)

	percentage := decimal.Zero
	if !baseline.IsZero() {
		percentage = absolute.Div(baseline).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Deviation{Absolute: absolute, Percentage: percentage}
}
