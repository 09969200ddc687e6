package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/refresh"
)

type BaselineInput struct {
	BaselinePortfolioValue decimal.Decimal `json:"baseline_portfolio_value"`
}

// GetPortfolio refreshes the owner's holdings (unless ?refresh=false) and
// returns the aggregate value with its deviation from the stored baseline.
func (h *Handler) GetPortfolio(c *gin.Context) {
	marketID, market, ok := h.market(c)
	if !ok {
		return
	}
	owner := h.owner(c)
	ctx := c.Request.Context()

	var holdings []models.Holding
	var failedRefresh []string
	if c.DefaultQuery("refresh", "true") == "false" {
		stored, err := h.Store.List(ctx, owner, marketID)
		if err != nil {
			fail(c, err)
			return
		}
		holdings = stored
	} else {
		results, err := h.Refresh.RefreshAll(ctx, owner, marketID)
		if err != nil {
			fail(c, err)
			return
		}
		holdings = lo.Map(results, func(r refresh.Result, _ int) models.Holding {
			return r.Holding
		})
		// A holding valued on some earlier cycle still counts as stale when
		// this refresh failed for it.
		failedRefresh = lo.FilterMap(results, func(r refresh.Result, _ int) (string, bool) {
			return r.Holding.Symbol, r.Stale
		})
	}

	summary := portfolio.Aggregate(holdings)
	summary.StaleSymbols = lo.Uniq(append(summary.StaleSymbols, failedRefresh...))
	baseline, err := h.Store.GetBaseline(ctx, owner, marketID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market":        marketID,
		"currency":      market.Currency,
		"total":         summary.Total,
		"stale_symbols": summary.StaleSymbols,
		"baseline":      baseline,
		"deviation":     portfolio.ComputeDeviation(summary.Total, baseline),
	})
}

// GetBaseline returns the owner's baseline portfolio value; zero when never set.
func (h *Handler) GetBaseline(c *gin.Context) {
	marketID, _, ok := h.market(c)
	if !ok {
		return
	}

	baseline, err := h.Store.GetBaseline(c.Request.Context(), h.owner(c), marketID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"baseline_portfolio_value": baseline})
}

// SetBaseline upserts the owner's baseline portfolio value.
func (h *Handler) SetBaseline(c *gin.Context) {
	marketID, _, ok := h.market(c)
	if !ok {
		return
	}

	var input BaselineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.SetBaseline(c.Request.Context(), h.owner(c), marketID, input.BaselinePortfolioValue); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "baseline updated"})
}
