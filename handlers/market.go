package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetIndexQuote fetches the current value of a market index (e.g. ^FTSE)
// straight from the upstream. Index values are points, not currency, so no
// unit normalization applies and nothing is persisted against the owner.
func (h *Handler) GetIndexQuote(c *gin.Context) {
	if _, _, ok := h.market(c); !ok {
		return
	}

	symbol := c.Param("symbol")
	quote, err := h.Fetcher.Fetch(c.Request.Context(), symbol)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":     quote.Symbol,
		"price":      quote.Price.Round(2),
		"fetched_at": quote.FetchedAt,
	})
}
