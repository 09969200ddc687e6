package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
	"portfolio-tracker/refresh"
	"portfolio-tracker/valuation"
)

type HoldingInput struct {
	Symbol     string          `json:"symbol" binding:"required"`
	SharesHeld decimal.Decimal `json:"shares_held"`
}

type UpdateHoldingInput struct {
	SharesHeld decimal.Decimal `json:"shares_held"`
}

// holdingView is a holding plus refresh metadata for list responses.
type holdingView struct {
	models.Holding
	Stale bool   `json:"stale"`
	Error string `json:"error,omitempty"`
}

// normalizeSymbol maps user-supplied tickers onto the stored form so that
// "vod.l" in a path or body addresses the same holding as "VOD.L".
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func viewOf(r refresh.Result) holdingView {
	v := holdingView{Holding: r.Holding, Stale: r.Stale}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// ListHoldings returns the owner's holdings for a market, refreshing each one
// first unless ?refresh=false. Refresh failures surface per symbol; the list
// itself always comes back complete.
func (h *Handler) ListHoldings(c *gin.Context) {
	marketID, _, ok := h.market(c)
	if !ok {
		return
	}
	owner := h.owner(c)

	if c.DefaultQuery("refresh", "true") == "false" {
		holdings, err := h.Store.List(c.Request.Context(), owner, marketID)
		if err != nil {
			fail(c, err)
			return
		}
		views := lo.Map(holdings, func(hd models.Holding, _ int) holdingView {
			return holdingView{Holding: hd, Stale: !hd.Valued()}
		})
		c.JSON(http.StatusOK, views)
		return
	}

	results, err := h.Refresh.RefreshAll(c.Request.Context(), owner, marketID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(results, func(r refresh.Result, _ int) holdingView {
		return viewOf(r)
	}))
}

// GetHolding refreshes and returns a single holding. Unlike the batch path,
// a failed refresh here is a hard failure.
func (h *Handler) GetHolding(c *gin.Context) {
	marketID, _, ok := h.market(c)
	if !ok {
		return
	}

	holding, err := h.Refresh.RefreshOne(c.Request.Context(), h.owner(c), marketID, normalizeSymbol(c.Param("symbol")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, holding)
}

// AddHolding registers a new position and values it immediately. Without a
// prior valuation to fall back to, a fetch failure aborts the add.
func (h *Handler) AddHolding(c *gin.Context) {
	marketID, market, ok := h.market(c)
	if !ok {
		return
	}

	var input HoldingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := normalizeSymbol(input.Symbol)
	if input.SharesHeld.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shares_held must be non-negative"})
		return
	}

	ctx := c.Request.Context()
	quote, err := h.Fetcher.Fetch(ctx, symbol)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := valuation.Compute(input.SharesHeld, quote, market)
	if err != nil {
		fail(c, err)
		return
	}

	holding := models.Holding{
		OwnerID:    h.owner(c),
		Market:     marketID,
		Symbol:     symbol,
		SharesHeld: input.SharesHeld,
	}
	holding.SetValuation(v.PricePerShare, v.TotalValue)

	if err := h.Store.Create(ctx, &holding); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, holding)
}

// UpdateHolding changes the share count and revalues the position, writing
// shares and valuation together so the stored total never drifts from the
// stored share count.
func (h *Handler) UpdateHolding(c *gin.Context) {
	marketID, market, ok := h.market(c)
	if !ok {
		return
	}

	var input UpdateHoldingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.SharesHeld.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shares_held must be non-negative"})
		return
	}

	owner := h.owner(c)
	symbol := normalizeSymbol(c.Param("symbol"))
	ctx := c.Request.Context()

	holding, err := h.Store.Get(ctx, owner, marketID, symbol)
	if err != nil {
		fail(c, err)
		return
	}

	quote, err := h.Fetcher.Fetch(ctx, holding.Symbol)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := valuation.Compute(input.SharesHeld, quote, market)
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.Store.UpdateHolding(ctx, owner, marketID, symbol, input.SharesHeld, v.PricePerShare, v.TotalValue); err != nil {
		fail(c, err)
		return
	}

	holding.SharesHeld = input.SharesHeld
	holding.SetValuation(v.PricePerShare, v.TotalValue)
	c.JSON(http.StatusOK, holding)
}

// DeleteHolding removes a position.
func (h *Handler) DeleteHolding(c *gin.Context) {
	marketID, _, ok := h.market(c)
	if !ok {
		return
	}

	symbol := normalizeSymbol(c.Param("symbol"))
	if err := h.Store.Delete(c.Request.Context(), h.owner(c), marketID, symbol); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "holding " + symbol + " deleted"})
}
