package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single fetched price observation for a symbol. The price is in
// the upstream's native unit, which varies by market (pence on the London
// exchange, major units elsewhere); unit normalization is the valuation
// engine's job.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Fetcher retrieves the current market price for a ticker symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

var (
	// ErrUpstreamTimeout means the quote provider did not answer within the
	// fetch timeout.
	ErrUpstreamTimeout = errors.New("quote provider timed out")
	// ErrUpstreamUnavailable covers network failures and non-OK responses.
	ErrUpstreamUnavailable = errors.New("quote provider unavailable")
	// ErrMissingPriceData means the provider answered but the response carried
	// no usable price for the symbol.
	ErrMissingPriceData = errors.New("no price data for symbol")
	// ErrInvalidSymbol means the caller passed an empty or malformed ticker.
	ErrInvalidSymbol = errors.New("invalid symbol")
)
