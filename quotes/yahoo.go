package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// fetchTimeout bounds a single upstream call.
const fetchTimeout = 5 * time.Second

// YahooFetcher implements Fetcher against the Yahoo Finance chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooFetcher creates a fetcher with the production endpoint and timeout.
func NewYahooFetcher() *YahooFetcher {
	return &YahooFetcher{
		Client:  &http.Client{Timeout: fetchTimeout},
		BaseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
	}
}

// yahooChart is the subset of the chart API response we read.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch issues a single request for the symbol's current price. No retries;
// the caller decides whether to propagate or degrade.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("fetch quote: %w", ErrInvalidSymbol)
	}

	u := fmt.Sprintf("%s/%s", f.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrUpstreamTimeout)
		}
		return Quote{}, fmt.Errorf("quote %s: %v: %w", symbol, err, ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrMissingPriceData)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote %s: status %d: %w", symbol, resp.StatusCode, ErrUpstreamUnavailable)
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return Quote{}, fmt.Errorf("quote %s: decode: %v: %w", symbol, err, ErrUpstreamUnavailable)
	}
	if chart.Chart.Error != nil {
		return Quote{}, fmt.Errorf("quote %s: %s: %w", symbol, chart.Chart.Error.Description, ErrMissingPriceData)
	}
	if len(chart.Chart.Result) == 0 || chart.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrMissingPriceData)
	}

	price := *chart.Chart.Result[0].Meta.RegularMarketPrice
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrMissingPriceData)
	}

	return Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(price),
		FetchedAt: time.Now(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
