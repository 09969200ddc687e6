package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/quotes"
	"portfolio-tracker/refresh"
	"portfolio-tracker/store"
	"portfolio-tracker/valuation"
)

// HoldingStore is the persistence surface the HTTP layer needs.
type HoldingStore interface {
	Get(ctx context.Context, owner, market, symbol string) (*models.Holding, error)
	List(ctx context.Context, owner, market string) ([]models.Holding, error)
	Create(ctx context.Context, h *models.Holding) error
	UpdateHolding(ctx context.Context, owner, market, symbol string, sharesHeld, pricePerShare, totalValue decimal.Decimal) error
	Delete(ctx context.Context, owner, market, symbol string) error
	GetBaseline(ctx context.Context, owner, market string) (decimal.Decimal, error)
	SetBaseline(ctx context.Context, owner, market string, value decimal.Decimal) error
}

// Refresher runs valuation refresh cycles.
type Refresher interface {
	RefreshOne(ctx context.Context, owner, market, symbol string) (*models.Holding, error)
	RefreshAll(ctx context.Context, owner, market string) ([]refresh.Result, error)
}

// Handler serves the caller-facing portfolio operations. One handler set
// covers all markets; the market table supplies what differs between them.
type Handler struct {
	Store   HoldingStore
	Refresh Refresher
	Fetcher quotes.Fetcher
	Markets map[string]config.Market
}

func (h *Handler) owner(c *gin.Context) string {
	return c.MustGet(middleware.OwnerKey).(string)
}

// market resolves the :market path segment against the market table,
// answering 400 itself when the identifier is unknown.
func (h *Handler) market(c *gin.Context) (string, config.Market, bool) {
	id := c.Param("market")
	m, ok := h.Markets[id]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown market: %s", id)})
		return "", config.Market{}, false
	}
	return id, m, true
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, quotes.ErrMissingPriceData):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, quotes.ErrInvalidSymbol),
		errors.Is(err, refresh.ErrUnknownMarket):
		return http.StatusBadRequest
	case errors.Is(err, quotes.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, quotes.ErrUpstreamUnavailable), errors.Is(err, valuation.ErrInvalidPrice):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}
